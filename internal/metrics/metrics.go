package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for MatchMutations
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

var (
	MatchMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "championship",
		Subsystem: "draft",
		Name:      "mutations_total",
		Help:      "Counts match mutations per operation and outcome",
	}, []string{"operation", "outcome"})

	MutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "championship",
		Subsystem: "draft",
		Name:      "mutation_duration_seconds",
		Help:      "Time from acquiring the match slot to persisting the result",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	DisplayTimers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "championship",
		Subsystem: "draft",
		Name:      "display_timers",
		Help:      "Pending map display timers",
	})

	Broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "championship",
		Subsystem: "realtime",
		Name:      "broadcasts_total",
		Help:      "Counts published snapshots per event type",
	}, []string{"type"})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "championship",
		Subsystem: "realtime",
		Name:      "subscribers",
		Help:      "Connected realtime observers",
	})

	RecorderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "championship",
		Subsystem: "analytics",
		Name:      "record_failures_total",
		Help:      "Draft event batches the analytics sink rejected",
	})
)
