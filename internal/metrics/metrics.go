// Package metrics exposes WaffleMaker's Prometheus instrumentation. The
// metrics sink itself is out of scope (spec.md §1); this package is the
// exporter surface a sink would scrape.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wafflemaker_jobs_total",
			Help: "Total number of jobs run, by job type and outcome",
		},
		[]string{"job", "outcome"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wafflemaker_job_duration_seconds",
			Help:    "Job execution duration in seconds, by job type",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	ServicesManaged = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wafflemaker_services_managed",
			Help: "Number of services currently in the registry",
		},
	)

	ContainerRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wafflemaker_container_restarts_total",
			Help: "Total number of containers restarted by the event watcher after an unexpected exit",
		},
	)

	LeaseRenewals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wafflemaker_lease_renewals_total",
			Help: "Total number of lease renewal attempts, by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(JobsTotal, JobDuration, ServicesManaged, ContainerRestarts, LeaseRenewals)
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
