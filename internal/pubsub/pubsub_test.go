package pubsub

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	ps := New()
	if ps == nil {
		t.Fatal("New() returned nil")
	}
	if ps.upstream != nil {
		t.Error("upstream should be nil for basic PubSub")
	}
	if ps.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", ps.SubscriberCount())
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now().UnixMilli()
	event, err := NewEvent(EventUsers, []map[string]string{{"accountId": "p1"}})
	if err != nil {
		t.Fatalf("NewEvent() failed: %v", err)
	}
	if event.Type != EventUsers {
		t.Errorf("expected type %s, got %s", EventUsers, event.Type)
	}
	if event.Timestamp < before {
		t.Errorf("timestamp %d earlier than %d", event.Timestamp, before)
	}
	if string(event.Data) != `[{"accountId":"p1"}]` {
		t.Errorf("unexpected data %s", event.Data)
	}
}

func TestNewEventMarshalFailure(t *testing.T) {
	if _, err := NewEvent(EventUsers, make(chan int)); err == nil {
		t.Error("expected marshal error for a channel")
	}
}

func TestEventWireShape(t *testing.T) {
	event := Event{Type: EventTournaments, Data: json.RawMessage(`[]`), Timestamp: 42}
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"type":"tournaments","data":[],"timestamp":42}` {
		t.Errorf("unexpected wire shape %s", data)
	}
}

func TestSubscribeMultiple(t *testing.T) {
	ps := New()

	ch1 := ps.Subscribe()
	ch2 := ps.Subscribe()
	ch3 := ps.Subscribe()

	if ch1 == nil || ch2 == nil || ch3 == nil {
		t.Fatal("Subscribe() returned nil channel")
	}
	if ps.SubscriberCount() != 3 {
		t.Errorf("expected 3 subscribers, got %d", ps.SubscriberCount())
	}
}

func TestUnsubscribe(t *testing.T) {
	ps := New()

	ch := ps.Subscribe()
	ps.Unsubscribe(ch)

	if ps.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after unsubscribe, got %d", ps.SubscriberCount())
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("channel should be closed after unsubscribe")
		}
	default:
		t.Error("channel should be closed and readable")
	}
}

func TestUnsubscribeMiddle(t *testing.T) {
	ps := New()

	ch1 := ps.Subscribe()
	ch2 := ps.Subscribe()
	ch3 := ps.Subscribe()

	ps.Unsubscribe(ch2)

	if ps.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", ps.SubscriberCount())
	}

	ps.Publish(Event{Type: EventUsers})

	for i, ch := range []chan Event{ch1, ch3} {
		select {
		case received := <-ch:
			if received.Type != EventUsers {
				t.Errorf("subscriber %d: expected type %s, got %s", i, EventUsers, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	ps := New()
	// Should not panic
	ps.Publish(Event{Type: EventTournaments})
}

func TestPublishDropsWhenChannelFull(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()

	// Buffer is 10; the rest are dropped without blocking
	done := make(chan struct{})
	go func() {
		for i := 0; i < 25; i++ {
			ps.Publish(Event{Type: EventTournaments, Timestamp: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if len(ch) != 10 {
		t.Errorf("expected 10 buffered events, got %d", len(ch))
	}
}

func TestConcurrentPublish(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ps.Publish(Event{Type: fmt.Sprintf("publisher:%d", id)})
		}(i)
	}
	wg.Wait()

	received := 0
	for received < 5 {
		select {
		case <-ch:
			received++
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("expected 5 events, received %d", received)
		}
	}
}

func TestConcurrentSubscribeUnsubscribe(t *testing.T) {
	ps := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := ps.Subscribe()
			ps.Publish(Event{Type: EventUsers})
			ps.Unsubscribe(ch)
		}()
	}
	wg.Wait()

	if ps.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after all unsubscribe, got %d", ps.SubscriberCount())
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()

	ps.Close()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close()")
	}
	// Unsubscribing a closed subscriber must not double close
	ps.Unsubscribe(ch)
}

func TestDisconnectSubscribersKeepsBusOpen(t *testing.T) {
	ps := New()
	defer ps.Close()
	old := ps.Subscribe()

	ps.DisconnectSubscribers()

	if _, ok := <-old; ok {
		t.Fatal("existing subscriber should be closed")
	}
	ps.Unsubscribe(old)

	fresh := ps.Subscribe()
	ps.Publish(Event{Type: EventUsers, Data: json.RawMessage(`[]`)})
	select {
	case event := <-fresh:
		if event.Type != EventUsers {
			t.Errorf("expected %s, got %s", EventUsers, event.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("bus stopped delivering after disconnect")
	}
}

// MockUpstream implements Upstream for testing. Several PubSub instances
// sharing one MockUpstream behave like server instances sharing a broker.
type MockUpstream struct {
	mu          sync.Mutex
	published   []Event
	subscribers []chan Event
	closed      bool
}

func NewMockUpstream() *MockUpstream {
	return &MockUpstream{}
}

func (m *MockUpstream) Publish(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.published = append(m.published, event)
	for _, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (m *MockUpstream) Subscribe() chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Event, 100)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

func (m *MockUpstream) Unsubscribe(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.subscribers {
		if sub == ch {
			close(ch)
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			break
		}
	}
}

func (m *MockUpstream) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for _, ch := range m.subscribers {
		close(ch)
	}
	m.subscribers = nil
}

func (m *MockUpstream) PublishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Event, len(m.published))
	copy(result, m.published)
	return result
}

func TestNewWithUpstream(t *testing.T) {
	upstream := NewMockUpstream()
	ps := NewWithUpstream(upstream)

	if ps.upstream != upstream {
		t.Error("upstream not set correctly")
	}
}

func TestPublishWithUpstream(t *testing.T) {
	upstream := NewMockUpstream()
	ps := NewWithUpstream(upstream)
	ch := ps.Subscribe()

	ps.Publish(Event{Type: EventTournaments, Data: json.RawMessage(`[]`)})

	published := upstream.PublishedEvents()
	if len(published) != 1 {
		t.Fatalf("expected 1 event published to upstream, got %d", len(published))
	}
	if published[0].Type != EventTournaments {
		t.Errorf("expected event type %s, got %s", EventTournaments, published[0].Type)
	}

	// The local subscriber hears it through the upstream round trip
	select {
	case received := <-ch:
		if received.Type != EventTournaments {
			t.Errorf("expected type %s, got %s", EventTournaments, received.Type)
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for event from upstream")
	}
}

func TestUpstreamFanOutAcrossInstances(t *testing.T) {
	upstream := NewMockUpstream()
	instanceA := NewWithUpstream(upstream)
	instanceB := NewWithUpstream(upstream)

	chA := instanceA.Subscribe()
	chB := instanceB.Subscribe()

	instanceA.Publish(Event{Type: EventUsers})

	for name, ch := range map[string]chan Event{"A": chA, "B": chB} {
		select {
		case received := <-ch:
			if received.Type != EventUsers {
				t.Errorf("instance %s: expected type %s, got %s", name, EventUsers, received.Type)
			}
		case <-time.After(time.Second):
			t.Errorf("instance %s: timeout waiting for event", name)
		}
	}
}

func TestCloseWithUpstream(t *testing.T) {
	upstream := NewMockUpstream()
	ps := NewWithUpstream(upstream)
	ch := ps.Subscribe()

	ps.Close()

	if _, ok := <-ch; ok {
		t.Error("local channel should be closed")
	}
	if !upstream.closed {
		t.Error("upstream should be closed")
	}
}

func TestUnsubscribeNonexistent(t *testing.T) {
	ps := New()

	ch := make(chan Event, 10)
	ps.Unsubscribe(ch)

	// Not managed by the PubSub, so it stays open
	select {
	case ch <- Event{Type: "test"}:
	default:
		t.Error("foreign channel should still accept sends")
	}
}
