package pubsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Billy-Davies-2/championship-draft/internal/logger"
	"github.com/Billy-Davies-2/championship-draft/internal/metrics"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// SnapshotSource loads the full collections observers see
type SnapshotSource interface {
	Tournaments(ctx context.Context) ([]models.TournamentView, error)
	Users(ctx context.Context) ([]models.User, error)
}

// Broadcaster publishes full collection snapshots after every change.
// Change notifications coalesce: a burst of mutations produces one snapshot
// per collection, always read after the last of them was persisted.
type Broadcaster struct {
	bus    Bus
	source SnapshotSource

	tournaments chan struct{}
	users       chan struct{}
	timeout     time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewBroadcaster starts the publish loop
func NewBroadcaster(bus Bus, source SnapshotSource) *Broadcaster {
	b := &Broadcaster{
		bus:         bus,
		source:      source,
		tournaments: make(chan struct{}, 1),
		users:       make(chan struct{}, 1),
		timeout:     5 * time.Second,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go b.run()
	return b
}

// TournamentsChanged schedules a tournaments snapshot. Never blocks.
func (b *Broadcaster) TournamentsChanged() {
	signal(b.tournaments)
}

// UsersChanged schedules a users snapshot. Never blocks.
func (b *Broadcaster) UsersChanged() {
	signal(b.users)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (b *Broadcaster) run() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case <-b.tournaments:
			b.publish(EventTournaments)
		case <-b.users:
			b.publish(EventUsers)
		}
	}
}

func (b *Broadcaster) publish(eventType string) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	event, err := b.snapshot(ctx, eventType)
	if err != nil {
		logger.Error("Failed to load snapshot for broadcast", "type", eventType, "error", err)
		return
	}

	b.bus.Publish(event)
	metrics.Broadcasts.WithLabelValues(eventType).Inc()
}

func (b *Broadcaster) snapshot(ctx context.Context, eventType string) (Event, error) {
	var (
		data any
		err  error
	)
	switch eventType {
	case EventTournaments:
		data, err = b.source.Tournaments(ctx)
	case EventUsers:
		data, err = b.source.Users(ctx)
	default:
		return Event{}, fmt.Errorf("unknown event type %q", eventType)
	}
	if err != nil {
		return Event{}, err
	}
	return NewEvent(eventType, data)
}

// Subscribe registers an observer and returns the current full snapshots.
// Registration happens first, so any change after the snapshot was read
// also arrives on the channel.
func (b *Broadcaster) Subscribe(ctx context.Context) (chan Event, []Event, error) {
	ch := b.bus.Subscribe()

	initial := make([]Event, 0, 2)
	for _, eventType := range []string{EventUsers, EventTournaments} {
		event, err := b.snapshot(ctx, eventType)
		if err != nil {
			b.bus.Unsubscribe(ch)
			return nil, nil, err
		}
		initial = append(initial, event)
	}

	metrics.Subscribers.Inc()
	return ch, initial, nil
}

// Unsubscribe releases an observer channel
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.bus.Unsubscribe(ch)
	metrics.Subscribers.Dec()
}

// Close stops the publish loop. Pending notifications are dropped.
func (b *Broadcaster) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
}
