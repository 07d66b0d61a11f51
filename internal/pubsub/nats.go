package pubsub

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/championship-draft/internal/logger"
)

// NATSPubSub implements pub/sub using NATS JetStream. Every instance
// subscribes to the subject, so a publish on one instance reaches the
// observers of all of them.
type NATSPubSub struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string
	local   subscriberSet
}

// NewNATSPubSub creates a new NATS JetStream pub/sub
func NewNATSPubSub(natsURL, subject, streamName string) (*NATSPubSub, error) {
	nc, err := nats.Connect(natsURL, nats.Name("championship-draft"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err = js.StreamInfo(streamName); err != nil {
		// Snapshots supersede each other, so only the latest per subject matters
		_, err = js.AddStream(&nats.StreamConfig{
			Name:              streamName,
			Subjects:          []string{subject},
			Storage:           nats.FileStorage,
			MaxMsgsPerSubject: 16,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
	}

	p := &NATSPubSub{
		nc:      nc,
		js:      js,
		subject: subject,
		local:   subscriberSet{bufferSize: 100},
	}

	p.sub, err = js.Subscribe(subject, p.handle, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	logger.Info("Connected to NATS", "url", natsURL, "stream", streamName, "subject", subject)
	return p, nil
}

func (p *NATSPubSub) handle(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to unmarshal event from NATS", "error", err)
		msg.Term()
		return
	}
	p.local.deliver(event)
	msg.Ack()
}

// Publish publishes an event to NATS JetStream
func (p *NATSPubSub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return
	}

	if _, err = p.js.Publish(p.subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", p.subject, "event_type", event.Type)
	}
}

// Subscribe creates a subscription channel for events
func (p *NATSPubSub) Subscribe() chan Event {
	return p.local.add()
}

// Unsubscribe removes a subscription channel
func (p *NATSPubSub) Unsubscribe(ch chan Event) {
	p.local.remove(ch)
}

// Close closes the NATS connection
func (p *NATSPubSub) Close() {
	if p.sub != nil {
		_ = p.sub.Unsubscribe()
	}
	if p.nc != nil {
		p.nc.Close()
	}
	p.local.closeAll()
}
