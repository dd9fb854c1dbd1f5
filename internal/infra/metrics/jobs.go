package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobRunsTotal, stageDurationSec) }

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Total number of job runs finished, labeled by status.",
		},
		[]string{"status"}, // 'completed', 'failed'
	)

	stageDurationSec = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_stage_duration_seconds",
			Help:    "Wall-clock duration per pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"stage"},
	)
)

func IncJobRun(status string) {
	jobRunsTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveStageDuration(stage string, seconds float64) {
	stageDurationSec.WithLabelValues(norm(stage)).Observe(seconds)
}
