package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		providerCallsTotal,
		providerTokensIn,
		providerTokensOut,
		providerCallsLatencyMs,
		providerInFlight,
		providerAuthFailures,
	)
}

var (
	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_calls_total",
			Help: "Outbound provider calls by outcome (ok, transient, permanent).",
		},
		[]string{"provider", "model", "outcome"},
	)

	providerTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	providerTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	providerCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_calls_latency_ms",
			Help:    "Provider call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
		},
		[]string{"provider", "model", "outcome"},
	)

	providerInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "provider_calls_in_flight",
			Help: "Outbound provider calls currently holding a concurrency slot.",
		},
	)

	providerAuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_auth_failures_total",
			Help: "Providers marked unavailable after a credential rejection.",
		},
		[]string{"provider"},
	)
)

func ObserveProviderCall(provider, model, outcome string, tokensIn, tokensOut int, latencyMs int64) {
	p, m, o := norm(provider), norm(model), norm(outcome)
	providerCallsTotal.WithLabelValues(p, m, o).Inc()
	providerTokensIn.WithLabelValues(p, m).Add(float64(tokensIn))
	providerTokensOut.WithLabelValues(p, m).Add(float64(tokensOut))
	providerCallsLatencyMs.WithLabelValues(p, m, o).Observe(float64(latencyMs))
}

func ProviderSlotAcquired() { providerInFlight.Inc() }
func ProviderSlotReleased() { providerInFlight.Dec() }

func IncProviderAuthFailure(provider string) {
	providerAuthFailures.WithLabelValues(norm(provider)).Inc()
}
