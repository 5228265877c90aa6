package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los contadores expuestos en /metrics.
type Metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	rateLimited  *prometheus.CounterVec
	emailsSent   prometheus.Counter
	emailsFailed prometheus.Counter
	authFailures *prometheus.CounterVec
}

// New registra las métricas en un registry propio (más los collectors de Go y proceso).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "footballapp",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "footballapp",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "footballapp",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"category"}),
		emailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "footballapp",
			Name:      "emails_sent_total",
			Help:      "Emails delivered to the SMTP server.",
		}),
		emailsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "footballapp",
			Name:      "emails_failed_total",
			Help:      "Emails that could not be queued or delivered.",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "footballapp",
			Name:      "auth_failures_total",
			Help:      "Rejected authentication attempts by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.rateLimited,
		m.emailsSent,
		m.emailsFailed,
		m.authFailures,
	)
	return m
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) RateLimited(category string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(category).Inc()
}

func (m *Metrics) AuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) EmailSent() {
	if m == nil {
		return
	}
	m.emailsSent.Inc()
}

func (m *Metrics) EmailFailed() {
	if m == nil {
		return
	}
	m.emailsFailed.Inc()
}

// Handler expone el registry en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer permite inspeccionar las métricas en tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
