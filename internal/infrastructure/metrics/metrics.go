// Package metrics expone contadores Prometheus del API y del flujo de pagos.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/taskvault-api/internal/application/subscription"
)

const namespace = "taskvault"

var _ subscription.Metrics = (*Registry)(nil)

// Registry agrupa los colectores sobre un registro propio (no el global) para poder testearlos.
type Registry struct {
	reg *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	webhooks     *prometheus.CounterVec
	activations  *prometheus.CounterVec
	reconciles   *prometheus.CounterVec
	failures     *prometheus.CounterVec
}

// New registra los colectores del proceso y de la aplicación.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Registry{
		reg: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		webhooks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_received_total",
			Help:      "Razorpay webhooks received by outcome",
		}, []string{"outcome"}),
		activations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_activated_total",
			Help:      "Subscriptions activated by source",
		}, []string{"source"}),
		reconciles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_reconciled_total",
			Help:      "Pending subscriptions reconciled by outcome",
		}, []string{"outcome"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_processing_failures_total",
			Help:      "Webhook events whose processing failed",
		}, []string{"event_type"}),
	}
}

func (r *Registry) WebhookReceived(outcome string) {
	r.webhooks.WithLabelValues(outcome).Inc()
}

func (r *Registry) Activated(source string) {
	r.activations.WithLabelValues(source).Inc()
}

func (r *Registry) Reconciled(outcome string) {
	r.reconciles.WithLabelValues(outcome).Inc()
}

func (r *Registry) ProcessingFailed(eventType string) {
	r.failures.WithLabelValues(eventType).Inc()
}

// Gatherer para exponer o inspeccionar el registro.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler endpoint de scraping para Fiber.
func (r *Registry) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
}

// Middleware mide cada petición usando la ruta registrada (no la URL) para acotar la cardinalidad.
func (r *Registry) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else if status < fiber.StatusBadRequest {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		labels := []string{c.Method(), route, strconv.Itoa(status)}
		r.httpRequests.WithLabelValues(labels...).Inc()
		r.httpDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}
