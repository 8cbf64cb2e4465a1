// Package observability holds the Prometheus instrumentation for the public
// tracking and review endpoints.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every counter the API layer increments. All counters are
// registered on a private registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	ReviewsSubmitted  *prometheus.CounterVec
	ReviewsRejected   *prometheus.CounterVec
	ClicksTracked     prometheus.Counter
	Conversions       *prometheus.CounterVec
	ConversionDedup   prometheus.Counter
	OverrideWrites    *prometheus.CounterVec
	WebhookDeliveries *prometheus.CounterVec
}

// NewMetrics creates and registers the metric set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		ReviewsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eigoonline_reviews_submitted_total",
			Help: "Review submissions accepted, by school.",
		}, []string{"school_id"}),
		ReviewsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eigoonline_reviews_rejected_total",
			Help: "Review submissions rejected before storage, by reason.",
		}, []string{"reason"}),
		ClicksTracked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eigoonline_clicks_total",
			Help: "Outbound click redirects recorded.",
		}),
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eigoonline_conversions_total",
			Help: "Conversion postbacks stored, by initial status.",
		}, []string{"status"}),
		ConversionDedup: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eigoonline_conversion_dedup_total",
			Help: "Conversion postbacks dropped as duplicate event ids.",
		}),
		OverrideWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eigoonline_override_writes_total",
			Help: "Override store mutations, by operation.",
		}, []string{"op"}),
		WebhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eigoonline_webhook_deliveries_total",
			Help: "Webhook delivery attempts, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.ReviewsSubmitted,
		m.ReviewsRejected,
		m.ClicksTracked,
		m.Conversions,
		m.ConversionDedup,
		m.OverrideWrites,
		m.WebhookDeliveries,
	)
	return m
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
