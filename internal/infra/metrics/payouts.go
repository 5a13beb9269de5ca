package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		payoutItemsMarkedPaidTotal,
		payoutBatchesTotal,
		payoutBatchLatencyMs,
		payoutTransferAmount,
	)
}

var (
	payoutItemsMarkedPaidTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payout_items_marked_paid_total",
			Help: "Total number of payout items moved from pending to paid.",
		},
	)

	payoutBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_batches_total",
			Help: "Payout batch runs by outcome (succeeded/failed/skipped/locked).",
		},
		[]string{"outcome"},
	)

	payoutBatchLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payout_batch_latency_ms",
			Help:    "Payout batch duration distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)

	payoutTransferAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payout_transfer_amount_cents_total",
			Help: "Sum of transferred payout amounts in minor currency units.",
		},
	)
)

func IncPayoutItemsMarkedPaid(count int) {
	payoutItemsMarkedPaidTotal.Add(float64(count))
}

func IncPayoutBatch(outcome string) {
	payoutBatchesTotal.WithLabelValues(outcome).Inc()
}

func ObservePayoutBatchLatency(ms int64) {
	payoutBatchLatencyMs.Observe(float64(ms))
}

func AddPayoutTransferCents(cents int64) {
	payoutTransferAmount.Add(float64(cents))
}
