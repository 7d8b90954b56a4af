package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the HTTP surface and the
// mailbox lifecycle.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AddressesCreated prometheus.Counter
	AddressesDeleted prometheus.Counter
	EmailsIngested   prometheus.Counter

	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics registers and returns the instruments. promauto registers
// against the default registry, so call this once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "driftmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "driftmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		AddressesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "driftmail_addresses_created_total",
				Help: "Total number of temporary addresses created",
			},
		),
		AddressesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "driftmail_addresses_deleted_total",
				Help: "Total number of temporary addresses deleted",
			},
		),
		EmailsIngested: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "driftmail_emails_ingested_total",
				Help: "Total number of inbound emails stored",
			},
		),
		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "driftmail_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type"},
		),
		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "driftmail_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// RecordHTTPRequest records one completed request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordError counts an error by type.
func (m *Metrics) RecordError(errType string) {
	m.ErrorsTotal.WithLabelValues(errType).Inc()
}

// HTTPHandler exposes the default registry for scraping.
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
