package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

type fakeSource struct {
	mu          sync.Mutex
	tournaments []models.TournamentView
	users       []models.User
	err         error
	loads       int
}

func (f *fakeSource) Tournaments(ctx context.Context) ([]models.TournamentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.tournaments, f.err
}

func (f *fakeSource) Users(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.users, f.err
}

func (f *fakeSource) setTournamentName(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tournaments = []models.TournamentView{{Tournament: models.Tournament{ID: "t1", Name: name}}}
}

func receive(t *testing.T, ch chan Event) Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
		return Event{}
	}
}

func TestSubscribeReturnsInitialSnapshot(t *testing.T) {
	source := &fakeSource{users: []models.User{{AccountID: "p1", DisplayName: "Alpha"}}}
	source.setTournamentName("Spring Cup")
	b := NewBroadcaster(New(), source)
	defer b.Close()

	ch, initial, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	defer b.Unsubscribe(ch)

	require.Len(t, initial, 2)
	assert.Equal(t, EventUsers, initial[0].Type)
	assert.Equal(t, EventTournaments, initial[1].Type)

	var views []models.TournamentView
	require.NoError(t, json.Unmarshal(initial[1].Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Spring Cup", views[0].Name)
}

func TestSubscribeFailsWhenSnapshotFails(t *testing.T) {
	bus := New()
	b := NewBroadcaster(bus, &fakeSource{err: errors.New("store down")})
	defer b.Close()

	_, _, err := b.Subscribe(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, bus.SubscriberCount(), "failed subscribe must not leak a channel")
}

func TestTournamentsChangedPublishesFullSnapshot(t *testing.T) {
	source := &fakeSource{}
	source.setTournamentName("before")
	b := NewBroadcaster(New(), source)
	defer b.Close()

	ch, _, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	defer b.Unsubscribe(ch)

	source.setTournamentName("after")
	b.TournamentsChanged()

	event := receive(t, ch)
	assert.Equal(t, EventTournaments, event.Type)
	assert.NotZero(t, event.Timestamp)
	assert.Contains(t, string(event.Data), `"after"`)
}

func TestUsersChangedPublishesUsers(t *testing.T) {
	source := &fakeSource{users: []models.User{{AccountID: "p2", Role: models.RolePlayer}}}
	b := NewBroadcaster(New(), source)
	defer b.Close()

	ch, _, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	defer b.Unsubscribe(ch)

	b.UsersChanged()

	event := receive(t, ch)
	assert.Equal(t, EventUsers, event.Type)
	assert.Contains(t, string(event.Data), `"p2"`)
}

func TestChangeNotificationsNeverBlock(t *testing.T) {
	source := &fakeSource{}
	source.setTournamentName("x")
	b := NewBroadcaster(New(), source)
	defer b.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.TournamentsChanged()
			b.UsersChanged()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notifications blocked")
	}
}

func TestBurstCoalescesToLatestState(t *testing.T) {
	source := &fakeSource{}
	source.setTournamentName("v0")
	b := NewBroadcaster(New(), source)
	defer b.Close()

	ch, _, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	defer b.Unsubscribe(ch)

	for _, name := range []string{"v1", "v2", "v3"} {
		source.setTournamentName(name)
		b.TournamentsChanged()
	}

	// Whatever was coalesced, the last snapshot reflects the final state
	var last Event
	deadline := time.After(time.Second)
	for {
		select {
		case last = <-ch:
			if containsName(last, "v3") {
				return
			}
		case <-deadline:
			t.Fatalf("never saw final state, last event %s", last.Data)
		}
	}
}

func containsName(event Event, name string) bool {
	var views []models.TournamentView
	if err := json.Unmarshal(event.Data, &views); err != nil || len(views) == 0 {
		return false
	}
	return views[0].Name == name
}

func TestBroadcastFailureIsNotFatal(t *testing.T) {
	source := &fakeSource{err: errors.New("store down")}
	bus := New()
	b := NewBroadcaster(bus, source)
	defer b.Close()

	ch := bus.Subscribe()
	b.TournamentsChanged()

	select {
	case event := <-ch:
		t.Fatalf("unexpected event %s", event.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	b := NewBroadcaster(New(), &fakeSource{})
	b.Close()
	b.Close()
}
