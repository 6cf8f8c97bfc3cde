package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	joinOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "events_service",
		Subsystem: "capacity",
		Name:      "join_attempts_total",
		Help:      "Join attempts by outcome (admitted, rejected, error).",
	}, []string{"outcome"})

	lockWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "events_service",
		Subsystem: "capacity",
		Name:      "event_lock_wait_seconds",
		Help:      "Time spent waiting for the per-event exclusive lock.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	nearbySearches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "events_service",
		Subsystem: "ranking",
		Name:      "nearby_searches_total",
		Help:      "Number of ranked nearby-event searches served.",
	})
)

func init() {
	prometheus.MustRegister(joinOutcomes, lockWait, nearbySearches)
}

// Join outcome labels.
const (
	JoinAdmitted = "admitted"
	JoinRejected = "rejected"
	JoinError    = "error"
)

// RecordJoin counts a join attempt by outcome.
func RecordJoin(outcome string) {
	joinOutcomes.WithLabelValues(outcome).Inc()
}

// RecordLockWait observes how long a join or leave waited on the event lock.
func RecordLockWait(d time.Duration) {
	lockWait.Observe(d.Seconds())
}

// RecordNearbySearch counts a served ranking request.
func RecordNearbySearch() {
	nearbySearches.Inc()
}
