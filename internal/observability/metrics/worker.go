package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/findit/internal/core/domain"
)

type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	processTotal      *prometheus.CounterVec
	processDuration   *prometheus.HistogramVec
	processInFlight   prometheus.Gauge
	candidatePool     prometheus.Histogram
	admittedMatches   prometheus.Histogram
	candidateFailures prometheus.Counter
	jobRuns           *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "findit",
			Subsystem:   "worker",
			Name:        "item_process_total",
			Help:        "Total processed items by status.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "findit",
			Subsystem:   "worker",
			Name:        "item_process_duration_seconds",
			Help:        "Item processing duration in seconds by status.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "findit",
			Subsystem:   "worker",
			Name:        "item_process_in_flight",
			Help:        "Number of in-flight item processing tasks.",
			ConstLabels: constLabels,
		},
	)
	candidatePool := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "findit",
			Subsystem:   "matching",
			Name:        "candidates",
			Help:        "Candidate pool size per matching run.",
			Buckets:     []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			ConstLabels: constLabels,
		},
	)
	admittedMatches := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "findit",
			Subsystem:   "matching",
			Name:        "admitted",
			Help:        "Matches returned per matching run.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 10},
			ConstLabels: constLabels,
		},
	)
	candidateFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "findit",
			Subsystem:   "matching",
			Name:        "candidate_failures_total",
			Help:        "Candidates dropped because scoring failed.",
			ConstLabels: constLabels,
		},
	)
	jobRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "findit",
			Subsystem:   "scheduler",
			Name:        "job_runs_total",
			Help:        "Scheduled maintenance job runs by job and status.",
			ConstLabels: constLabels,
		},
		[]string{"job", "status"},
	)

	registry.MustRegister(
		processTotal,
		processDuration,
		processInFlight,
		candidatePool,
		admittedMatches,
		candidateFailures,
		jobRuns,
	)

	return &WorkerMetrics{
		registry:          registry,
		service:           service,
		processTotal:      processTotal,
		processDuration:   processDuration,
		processInFlight:   processInFlight,
		candidatePool:     candidatePool,
		admittedMatches:   admittedMatches,
		candidateFailures: candidateFailures,
		jobRuns:           jobRuns,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartItem() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishItem(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := statusLabel(err)
	m.processTotal.WithLabelValues(status).Inc()
	m.processDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveMatchRun(poolSize int, outcome domain.MatchOutcome) {
	m.candidatePool.Observe(float64(poolSize))
	m.admittedMatches.Observe(float64(len(outcome.Matches)))
	if outcome.Failed > 0 {
		m.candidateFailures.Add(float64(outcome.Failed))
	}
}

func (m *WorkerMetrics) RecordJobRun(job string, err error) {
	m.jobRuns.WithLabelValues(job, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
