package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Places provider metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pickpoint",
			Name:      "provider_requests_total",
			Help:      "Total number of places provider requests",
		},
		[]string{"operation", "status"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pickpoint",
			Name:      "provider_request_duration_seconds",
			Help:      "Places provider request duration in seconds",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	ProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pickpoint",
			Name:      "provider_errors_total",
			Help:      "Total places provider errors",
		},
		[]string{"operation", "error_type"},
	)

	ProviderBudgetRequestsRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pickpoint",
			Name:      "provider_budget_requests_remaining",
			Help:      "Remaining provider request budget",
		},
		[]string{"provider", "period"},
	)
)

var providerOnce sync.Once

// RegisterProviderMetrics registers provider metrics on the default registry. Safe to call twice.
func RegisterProviderMetrics() {
	providerOnce.Do(func() {
		prometheus.MustRegister(ProviderRequestsTotal)
		prometheus.MustRegister(ProviderRequestDuration)
		prometheus.MustRegister(ProviderErrorsTotal)
		prometheus.MustRegister(ProviderBudgetRequestsRemaining)
	})
}
