package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orrn/ticket-spool/internal/core"
)

const namespace = "spool"

// Recorder implements core.Observer on a private Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	copiesTotal         *prometheus.CounterVec
	copyDurationSeconds *prometheus.HistogramVec
	targetFailuresTotal *prometheus.CounterVec
	jobsTotal           *prometheus.CounterVec
	jobDurationSeconds  *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		copiesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "copies_total",
				Help:      "Copies handed to the print helper, by outcome.",
			},
			[]string{"kind", "result"},
		),
		copyDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "copy_duration_seconds",
				Help:      "Time to spool and transmit one copy.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		targetFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "target_failures_total",
				Help:      "Whole-job failures against a single printer target.",
			},
			[]string{"kind", "target"},
		),
		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Finished print jobs by status.",
			},
			[]string{"kind", "status"},
		),
		jobDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "End-to-end job duration including failover.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		r.copiesTotal,
		r.copyDurationSeconds,
		r.targetFailuresTotal,
		r.jobsTotal,
		r.jobDurationSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) CopyDelivered(kind core.JobKind, _ string, elapsed time.Duration) {
	r.copiesTotal.WithLabelValues(string(kind), "delivered").Inc()
	r.copyDurationSeconds.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (r *Recorder) CopyFailed(kind core.JobKind, _ string) {
	r.copiesTotal.WithLabelValues(string(kind), "failed").Inc()
}

func (r *Recorder) TargetFailed(kind core.JobKind, address string) {
	r.targetFailuresTotal.WithLabelValues(string(kind), address).Inc()
}

func (r *Recorder) JobFinished(kind core.JobKind, status core.JobStatus, elapsed time.Duration) {
	r.jobsTotal.WithLabelValues(string(kind), string(status)).Inc()
	r.jobDurationSeconds.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
