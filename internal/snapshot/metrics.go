package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK        = "ok"
	resultSkipped   = "skipped"
	resultDuplicate = "duplicate"
	resultError     = "error"
	resultDropped   = "dropped"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zakatledger",
		Subsystem: "snapshot",
		Name:      "jobs_total",
		Help:      "Snapshot jobs by operation and result.",
	}, []string{"op", "result"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zakatledger",
		Subsystem: "snapshot",
		Name:      "job_duration_seconds",
		Help:      "Snapshot job latency by operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	inflightJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "zakatledger",
		Subsystem: "snapshot",
		Name:      "jobs_inflight",
		Help:      "Detached snapshot jobs currently running or waiting for a slot.",
	})
)

// RecordDropped counts a job that never reached the orchestrator.
func RecordDropped(op Op) {
	jobsTotal.WithLabelValues(string(op), resultDropped).Inc()
}
