package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics instruments the API client itself: how many requests each
// endpoint served, how they ended, and how long they took. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	logBytes prometheus.Counter
}

// NewMetrics creates a Metrics with its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fdwatch",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Requests sent to the inference API, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fdwatch",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Latency of requests to the inference API.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		logBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fdwatch",
			Subsystem: "log",
			Name:      "received_bytes_total",
			Help:      "Log bytes received from servers.",
		}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.logBytes)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(endpoint string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (m *Metrics) addLogBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.logBytes.Add(float64(n))
}
