package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several servers (or tests) can live in
// one process. All methods are safe on a nil receiver.
type Collector struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	decryptFailures   prometheus.Counter
	cipherUnavailable prometheus.Counter
	salaryOps         *prometheus.CounterVec
	mailsSent         *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		decryptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "field_decrypt_failures_total",
			Help: "Field tokens that failed to decrypt.",
		}),
		cipherUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "field_cipher_unavailable_total",
			Help: "Encrypt calls that fell back to plaintext because no key is configured.",
		}),
		salaryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salary_operations_total",
			Help: "Salary record operations by outcome.",
		}, []string{"op", "outcome"}),
		mailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_dispatch_total",
			Help: "Outbound mails by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	c.registry.MustRegister(
		c.httpInFlight,
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.decryptFailures,
		c.cipherUnavailable,
		c.salaryOps,
		c.mailsSent,
	)
	return c
}

// Handler exposes the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) InFlight(delta float64) {
	if c == nil {
		return
	}
	c.httpInFlight.Add(delta)
}

func (c *Collector) Record(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	code := strconv.Itoa(status)
	c.httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	c.httpRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

func (c *Collector) DecryptFailed() {
	if c == nil {
		return
	}
	c.decryptFailures.Inc()
}

func (c *Collector) CipherUnavailable() {
	if c == nil {
		return
	}
	c.cipherUnavailable.Inc()
}

func (c *Collector) SalaryOp(op string, err error) {
	if c == nil {
		return
	}
	c.salaryOps.WithLabelValues(op, outcome(err)).Inc()
}

func (c *Collector) MailSent(kind string, err error) {
	if c == nil {
		return
	}
	c.mailsSent.WithLabelValues(kind, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
