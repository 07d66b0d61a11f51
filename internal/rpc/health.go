package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Billy-Davies-2/championship-draft/internal/dal"
	"github.com/Billy-Davies-2/championship-draft/internal/logger"
)

const pingTimeout = 2 * time.Second

// HealthReporter drives the standard gRPC health service from the document
// store. The overall status ("") and the draft service follow Ping.
type HealthReporter struct {
	server   *health.Server
	store    dal.DocumentStore
	interval time.Duration
	last     healthpb.HealthCheckResponse_ServingStatus
}

// NewHealthReporter creates a reporter that starts out NOT_SERVING
func NewHealthReporter(store dal.DocumentStore, interval time.Duration) *HealthReporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	h := &HealthReporter{
		server:   health.NewServer(),
		store:    store,
		interval: interval,
		last:     healthpb.HealthCheckResponse_NOT_SERVING,
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Server is the health service to register on a gRPC server
func (h *HealthReporter) Server() *health.Server {
	return h.server
}

// Check pings the store once and publishes the result
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	next := healthpb.HealthCheckResponse_SERVING
	if err := h.store.Ping(ctx); err != nil {
		next = healthpb.HealthCheckResponse_NOT_SERVING
		if h.last != next {
			logger.Warn("gRPC health: document store unavailable", "error", err)
		}
	} else if h.last != next {
		logger.Info("gRPC health: serving")
	}

	h.last = next
	h.set(next)
	return next
}

// Run checks on every interval until ctx ends, then marks everything
// NOT_SERVING for good
func (h *HealthReporter) Run(ctx context.Context) {
	h.Check(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Check(ctx)
		case <-ctx.Done():
			h.server.Shutdown()
			return
		}
	}
}

func (h *HealthReporter) set(s healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", s)
	h.server.SetServingStatus(ServiceName, s)
}
