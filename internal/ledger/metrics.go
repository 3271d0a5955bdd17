package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zakatledger",
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Ledger mutations by operation and result.",
	}, []string{"op", "result"})

	lockWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "zakatledger",
		Subsystem: "ledger",
		Name:      "lock_wait_seconds",
		Help:      "Time spent waiting for the per-account lock.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
)

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(op, result).Inc()
}
