package pubsub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/championship-draft/internal/logger"
)

// EmbeddedNATSPubSub implements pub/sub using an embedded NATS server
// This is ideal for development as it provides a real NATS server in-process
// without requiring external infrastructure
type EmbeddedNATSPubSub struct {
	server  *server.Server
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string
	local   subscriberSet
}

// EmbeddedNATSOptions configures the embedded NATS server
type EmbeddedNATSOptions struct {
	Port       int    // Port to listen on (0 = random available port)
	Subject    string // Subject to publish/subscribe to
	StreamName string // JetStream stream name
	StoreDir   string // Directory for JetStream storage (empty = in-memory)
}

// DefaultEmbeddedNATSOptions returns sensible defaults for development
func DefaultEmbeddedNATSOptions() EmbeddedNATSOptions {
	return EmbeddedNATSOptions{
		Port:       -1,
		Subject:    "championship.events",
		StreamName: "CHAMPIONSHIP_EVENTS",
	}
}

// NewEmbeddedNATSPubSub creates a new embedded NATS server and pub/sub
func NewEmbeddedNATSPubSub(opts EmbeddedNATSOptions) (*EmbeddedNATSPubSub, error) {
	defaults := DefaultEmbeddedNATSOptions()
	if opts.Subject == "" {
		opts.Subject = defaults.Subject
	}
	if opts.StreamName == "" {
		opts.StreamName = defaults.StreamName
	}

	// 0 would mean the default client port 4222; -1 picks a free one
	port := opts.Port
	if port == 0 {
		port = -1
	}

	serverOpts := &server.Options{
		Port:      port,
		JetStream: true,
		NoSigs:    true,
		StoreDir:  opts.StoreDir,
	}

	ns, err := server.NewServer(serverOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
	}
	ns.SetLogger(&natsLogger{}, false, false)

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start within timeout")
	}

	clientURL := ns.ClientURL()
	logger.Info("Embedded NATS server started", "url", clientURL)

	nc, err := nats.Connect(clientURL)
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     opts.StreamName,
		Subjects: []string{opts.Subject},
		Storage:  nats.MemoryStorage,
		MaxAge:   time.Hour,
	})
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, fmt.Errorf("failed to create JetStream stream: %w", err)
	}

	logger.Info("JetStream stream created", "stream", opts.StreamName, "subject", opts.Subject)

	p := &EmbeddedNATSPubSub{
		server:  ns,
		nc:      nc,
		js:      js,
		subject: opts.Subject,
		local:   subscriberSet{bufferSize: 100},
	}

	// Subscribe before returning so no publish can be missed
	p.sub, err = js.Subscribe(opts.Subject, p.handle, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, fmt.Errorf("failed to subscribe to JetStream: %w", err)
	}
	logger.Debug("Subscribed to JetStream", "subject", opts.Subject)

	return p, nil
}

func (p *EmbeddedNATSPubSub) handle(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to unmarshal event from JetStream", "error", err)
		msg.Term()
		return
	}
	p.local.deliver(event)
	msg.Ack()
}

// Publish publishes an event to the embedded NATS JetStream
func (p *EmbeddedNATSPubSub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return
	}

	if _, err = p.js.Publish(p.subject, data); err != nil {
		logger.Error("Failed to publish to embedded NATS", "error", err, "subject", p.subject, "event_type", event.Type)
		return
	}

	logger.Debug("Published event to embedded NATS", "event_type", event.Type, "subject", p.subject)
}

// Subscribe creates a subscription channel for events
func (p *EmbeddedNATSPubSub) Subscribe() chan Event {
	return p.local.add()
}

// Unsubscribe removes a subscription channel
func (p *EmbeddedNATSPubSub) Unsubscribe(ch chan Event) {
	p.local.remove(ch)
}

// Close shuts down the embedded NATS server
func (p *EmbeddedNATSPubSub) Close() {
	logger.Info("Shutting down embedded NATS server")

	if p.sub != nil {
		_ = p.sub.Unsubscribe()
	}
	if p.nc != nil {
		p.nc.Close()
	}
	p.local.closeAll()

	if p.server != nil {
		p.server.Shutdown()
		p.server.WaitForShutdown()
	}

	logger.Info("Embedded NATS server shut down")
}

// ServerURL returns the client URL of the embedded server
func (p *EmbeddedNATSPubSub) ServerURL() string {
	return p.server.ClientURL()
}

// SubscriberCount returns the number of active local subscribers
func (p *EmbeddedNATSPubSub) SubscriberCount() int {
	return p.local.count()
}

// natsLogger adapts our logger to the NATS server logger interface
type natsLogger struct{}

func (l *natsLogger) Noticef(format string, v ...interface{}) {
	logger.Info(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Warnf(format string, v ...interface{}) {
	logger.Warn(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Fatalf(format string, v ...interface{}) {
	logger.Error(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Errorf(format string, v ...interface{}) {
	logger.Error(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Debugf(format string, v ...interface{}) {
	logger.Debug(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Tracef(format string, v ...interface{}) {
	logger.Debug(fmt.Sprintf("[NATS TRACE] "+format, v...))
}
