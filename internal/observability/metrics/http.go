package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	matchingRequestsTotal *prometheus.CounterVec
	matchingResults       *prometheus.HistogramVec
	itemsReportedTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "findit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "findit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "findit",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	matchingRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "findit",
			Subsystem: "matching",
			Name:      "requests_total",
			Help:      "Total successful match lookups by endpoint.",
		},
		[]string{"service", "endpoint"},
	)
	matchingResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "findit",
			Subsystem: "matching",
			Name:      "results",
			Help:      "Matches returned per successful lookup.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
		},
		[]string{"service", "endpoint"},
	)
	itemsReportedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "findit",
			Subsystem: "items",
			Name:      "reported_total",
			Help:      "Total accepted item reports by type.",
		},
		[]string{"service", "type"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		matchingRequestsTotal,
		matchingResults,
		itemsReportedTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		matchingRequestsTotal: matchingRequestsTotal,
		matchingResults:       matchingResults,
		itemsReportedTotal:    itemsReportedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses item ids so label cardinality stays bounded.
func normalizePath(path string) string {
	rest, ok := strings.CutPrefix(path, "/v1/items/")
	if !ok || rest == "" {
		return path
	}
	_, suffix, hasSuffix := strings.Cut(rest, "/")
	if !hasSuffix {
		return "/v1/items/{item_id}"
	}
	switch suffix {
	case "matches", "matches/stored":
		return "/v1/items/{item_id}/" + suffix
	default:
		return "/v1/items/{item_id}/other"
	}
}

func (m *HTTPServerMetrics) RecordMatchLookup(service, endpoint string, results int) {
	m.matchingRequestsTotal.WithLabelValues(service, endpoint).Inc()
	m.matchingResults.WithLabelValues(service, endpoint).Observe(float64(results))
}

func (m *HTTPServerMetrics) RecordItemReported(service, itemType string) {
	if itemType == "" {
		itemType = "unknown"
	}
	m.itemsReportedTotal.WithLabelValues(service, itemType).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
