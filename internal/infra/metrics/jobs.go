package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(batchItemsProcessedTotal, batchJobsFinishedTotal, generationsTotal) }

var (
	batchItemsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_items_processed_total",
			Help: "Total number of batch items processed, labeled by result.",
		},
		[]string{"result"}, // 'completed', 'failed'
	)

	batchJobsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_jobs_finished_total",
			Help: "Batch jobs that reached a terminal status.",
		},
		[]string{"status"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generations_total",
			Help: "Generation requests by outcome.",
		},
		[]string{"outcome"}, // 'ok', 'quota_exceeded', 'no_providers', 'all_failed', 'store_unavailable', 'cancelled'
	)
)

func IncBatchItem(result string) {
	batchItemsProcessedTotal.WithLabelValues(norm(result)).Inc()
}

func IncBatchFinished(status string) {
	batchJobsFinishedTotal.WithLabelValues(norm(status)).Inc()
}

func IncGeneration(outcome string) {
	generationsTotal.WithLabelValues(norm(outcome)).Inc()
}
