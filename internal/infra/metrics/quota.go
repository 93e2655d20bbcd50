package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(quotaDecisionsTotal) }

var quotaDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quota_decisions_total",
		Help: "Quota ledger operations by tier and decision.",
	},
	[]string{"tier", "decision"}, // decision: 'admitted', 'rejected', 'refunded', 'duplicate'
)

func IncQuotaDecision(tier, decision string) {
	quotaDecisionsTotal.WithLabelValues(norm(tier), norm(decision)).Inc()
}
