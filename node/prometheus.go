package node

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/virtue186/fortesting/core"
)

// Metrics for monitoring block production.
var (
	blockHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Current chain height",
			Name:      "current_height",
			Namespace: "fortesting",
		},
	)
	sealedTxs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of transactions sealed into blocks",
			Name:      "sealed_transactions_total",
			Namespace: "fortesting",
		},
	)
	droppedTxs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of pool transactions dropped as unexecutable",
			Name:      "dropped_transactions_total",
			Namespace: "fortesting",
		},
	)
	submittedTxs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of transactions accepted into the pool",
			Name:      "submitted_transactions_total",
			Namespace: "fortesting",
		},
	)
)

func init() {
	prometheus.MustRegister(
		blockHeight,
		sealedTxs,
		droppedTxs,
		submittedTxs,
	)
}

func updateBlockMetrics(b *core.Block) {
	blockHeight.Set(float64(b.Height))
	sealedTxs.Add(float64(len(b.Transactions)))
}
