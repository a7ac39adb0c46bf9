package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Payment metrics
	PaymentsOpenedTotal     prometheus.Counter
	CompletionsTotal        *prometheus.CounterVec // outcome: completed, already_completed, rejected
	CompletionRejections    *prometheus.CounterVec // reason: not_found, provider_mismatch, user_mismatch, amount_mismatch
	CreditFailuresTotal     prometheus.Counter
	PreCheckoutAnswersTotal *prometheus.CounterVec // answer: ok, rejected

	// Routing metrics
	UpdatesRoutedTotal  *prometheus.CounterVec // kind: pre_checkout, completion, other
	UnknownTenantsTotal prometheus.Counter
}

// New creates a new Metrics instance registered on the default registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "starspay"
	}
	return build(namespace, promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a Metrics instance on a custom registry. Tests use
// this to avoid duplicate registration on the default registry.
func NewWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "starspay"
	}
	return build(namespace, promauto.With(reg))
}

func build(namespace string, factory promauto.Factory) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		PaymentsOpenedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "opened_total",
				Help:      "Total number of payments opened (pending records created)",
			},
		),
		CompletionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "completions_total",
				Help:      "Completion attempts by outcome",
			},
			[]string{"outcome"},
		),
		CompletionRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "completion_rejections_total",
				Help:      "Completion rejections by reason",
			},
			[]string{"reason"},
		),
		CreditFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "credit_failures_total",
				Help:      "Payments marked completed whose credit application failed (needs manual reconciliation)",
			},
		),
		PreCheckoutAnswersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "pre_checkout_answers_total",
				Help:      "Pre-checkout answers by verdict",
			},
			[]string{"answer"},
		),

		UpdatesRoutedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "updates_total",
				Help:      "Inbound webhook updates by classified kind",
			},
			[]string{"kind"},
		),
		UnknownTenantsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "unknown_tenants_total",
				Help:      "Webhook updates addressed to an unknown tenant id",
			},
		),
	}
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
