package pubsub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Billy-Davies-2/championship-draft/internal/logger"
)

// Event types carried on the bus
const (
	EventTournaments = "tournaments"
	EventUsers       = "users"
)

// Event is one realtime message: a full collection snapshot tagged by type
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewEvent marshals data into an event stamped with the current time
func NewEvent(eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: raw, Timestamp: time.Now().UnixMilli()}, nil
}

// Bus is what the broadcaster publishes into
type Bus interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// Upstream is an interface for upstream publishers (e.g., NATS)
type Upstream interface {
	Bus
	Close()
}

// subscriberSet fans events out to local channels. Slow subscribers are
// skipped; the next full snapshot supersedes what they missed.
type subscriberSet struct {
	mu          sync.RWMutex
	subscribers []chan Event
	bufferSize  int
}

func (s *subscriberSet) add() chan Event {
	ch := make(chan Event, s.bufferSize)

	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	total := len(s.subscribers)
	s.mu.Unlock()

	logger.Debug("PubSub: New subscriber added", "totalSubscribers", total)
	return ch
}

func (s *subscriberSet) remove(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			close(ch)
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			break
		}
	}
}

// deliver holds the read lock while sending so a concurrent close never
// races a send; sends never block.
func (s *subscriberSet) deliver(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			logger.Warn("PubSub: Skipping slow subscriber", "type", event.Type)
		}
	}
}

func (s *subscriberSet) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
}

func (s *subscriberSet) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// PubSub implements a simple publish-subscribe system
type PubSub struct {
	local    subscriberSet
	upstream Upstream // Optional upstream publisher (e.g., NATS)
}

// New creates a new PubSub instance
func New() *PubSub {
	return &PubSub{local: subscriberSet{bufferSize: 10}}
}

// NewWithUpstream creates a PubSub that bridges to an upstream publisher (e.g., NATS)
// When Publish is called, events are sent to the upstream, which broadcasts to all instances.
// Events from the upstream are forwarded to local subscribers.
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := &PubSub{
		local:    subscriberSet{bufferSize: 10},
		upstream: upstream,
	}

	ch := upstream.Subscribe()
	go func() {
		logger.Debug("PubSub: Subscribed to upstream, waiting for events")
		for event := range ch {
			logger.Debug("PubSub: Received event from upstream, forwarding to local", "type", event.Type)
			ps.local.deliver(event)
		}
		logger.Debug("PubSub: Upstream channel closed")
	}()

	return ps
}

// Subscribe adds a new subscriber and returns a channel for receiving events
func (ps *PubSub) Subscribe() chan Event {
	return ps.local.add()
}

// Unsubscribe removes a subscriber
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.local.remove(ch)
}

// Publish sends an event to all subscribers
// If an upstream is configured, the event is published to the upstream,
// which will broadcast it back to all instances (including this one)
func (ps *PubSub) Publish(event Event) {
	if ps.upstream != nil {
		logger.Debug("PubSub: Forwarding to upstream", "type", event.Type)
		ps.upstream.Publish(event)
		return
	}
	logger.Debug("PubSub: Publishing locally (no upstream)", "type", event.Type)
	ps.local.deliver(event)
}

// SubscriberCount returns the number of local subscribers
func (ps *PubSub) SubscriberCount() int {
	return ps.local.count()
}

// DisconnectSubscribers closes every local subscriber channel so streaming
// handlers return. The bus and its upstream keep working.
func (ps *PubSub) DisconnectSubscribers() {
	ps.local.closeAll()
}

// Close closes every local subscriber and the upstream, if any
func (ps *PubSub) Close() {
	if ps.upstream != nil {
		ps.upstream.Close()
	}
	ps.local.closeAll()
}
