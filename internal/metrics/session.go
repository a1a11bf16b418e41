package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Query session metrics.
var (
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pickpoint",
			Name:      "sessions_active",
			Help:      "Number of open query sessions",
		},
	)

	SessionFetchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pickpoint",
			Name:      "session_fetches_total",
			Help:      "Candidate fetches started by query sessions",
		},
	)

	SessionStaleDiscardsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pickpoint",
			Name:      "session_stale_discards_total",
			Help:      "Fetch results dropped because a newer query superseded them",
		},
	)

	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pickpoint",
			Name:      "fallbacks_total",
			Help:      "Fallback lists shown, by reason",
		},
		[]string{"reason"},
	)

	SessionSelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pickpoint",
			Name:      "session_selections_total",
			Help:      "Selection attempts, by outcome",
		},
		[]string{"outcome"},
	)
)

var sessionOnce sync.Once

// RegisterSessionMetrics registers session metrics on the default registry. Safe to call twice.
func RegisterSessionMetrics() {
	sessionOnce.Do(func() {
		prometheus.MustRegister(SessionsActive)
		prometheus.MustRegister(SessionFetchesTotal)
		prometheus.MustRegister(SessionStaleDiscardsTotal)
		prometheus.MustRegister(FallbacksTotal)
		prometheus.MustRegister(SessionSelectionsTotal)
	})
}
