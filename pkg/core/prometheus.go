package core

import "github.com/prometheus/client_golang/prometheus"

// Metrics used in monitoring service.
var (
	blockHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Current index of processed block",
			Name:      "current_block_height",
			Namespace: "ssc",
		},
	)
	pendingTxCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of transactions in the pending queue",
			Name:      "pending_tx_count",
			Namespace: "ssc",
		},
	)
	executedTxCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of transactions executed since startup",
			Name:      "executed_tx_total",
			Namespace: "ssc",
		},
	)
)

func init() {
	prometheus.MustRegister(
		blockHeight,
		pendingTxCount,
		executedTxCount,
	)
}

func updateBlockHeightMetric(height int64) {
	blockHeight.Set(float64(height))
}

func updatePendingTxMetric(n int) {
	pendingTxCount.Set(float64(n))
}

func addExecutedTxMetric(n int) {
	executedTxCount.Add(float64(n))
}
