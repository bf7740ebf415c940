package decksync

import (
	"errors"

	"github.com/drpcorg/decksync/decksync_errors"
	"github.com/prometheus/client_golang/prometheus"
)

var AppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "decksync",
	Subsystem: "session",
	Name:      "applied",
}, []string{"type", "outcome"})

var RejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "decksync",
	Subsystem: "session",
	Name:      "rejected",
}, []string{"type", "reason"})

var EvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "decksync",
	Subsystem: "session",
	Name:      "history_evicted",
})

var HookFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "decksync",
	Subsystem: "session",
	Name:      "hook_failures",
})

var SyncEnvelopes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "decksync",
	Subsystem: "sync",
	Name:      "envelopes",
}, []string{"kind"})

var DeltaRatio = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "decksync",
	Subsystem: "sync",
	Name:      "delta_ratio",
	Buckets:   []float64{0.02, 0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1},
})

var LiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "decksync",
	Subsystem: "registry",
	Name:      "sessions",
})

// rejection reason label, one value per error class
func errReason(err error) string {
	switch {
	case errors.Is(err, decksync_errors.ErrTombstoned):
		return "tombstoned"
	case errors.Is(err, decksync_errors.ErrSequentialConflict):
		return "sequential"
	case errors.Is(err, decksync_errors.ErrHistoryExpired):
		return "history_expired"
	case errors.Is(err, decksync_errors.ErrVersionMismatch):
		return "version_mismatch"
	case errors.Is(err, decksync_errors.ErrIntegrity):
		return "integrity"
	case errors.Is(err, decksync_errors.ErrValidation):
		return "validation"
	default:
		return "other"
	}
}
