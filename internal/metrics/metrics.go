// Package metrics provides Prometheus metrics for the GTIXT serving core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gtixt_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gtixt_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gtixt_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)
	SnapshotRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gtixt_snapshot_requests_total",
			Help: "Snapshot reads by cache status",
		},
		[]string{"cache_status"},
	)
	SnapshotUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gtixt_snapshot_unavailable_total",
			Help: "Snapshot reads that failed at both cache and origin",
		},
	)
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gtixt_job_runs_total",
			Help: "Total number of job runs by terminal status",
		},
		[]string{"job", "status"},
	)
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gtixt_job_duration_seconds",
			Help:    "Job execution duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		},
		[]string{"job"},
	)
	JobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gtixt_jobs_running",
			Help: "Number of job runs currently in flight",
		},
	)
)

func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func RecordRateLimitRejection(endpoint string) {
	RateLimitRejections.WithLabelValues(endpoint).Inc()
}

func RecordSnapshotRequest(cacheStatus string) {
	SnapshotRequests.WithLabelValues(cacheStatus).Inc()
}

func RecordSnapshotUnavailable() {
	SnapshotUnavailable.Inc()
}

func RecordJobRun(job, status string, duration time.Duration) {
	JobRunsTotal.WithLabelValues(job, status).Inc()
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func UpdateJobsRunning(count int) {
	JobsRunning.Set(float64(count))
}
