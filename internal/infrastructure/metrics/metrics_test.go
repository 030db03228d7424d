package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taskvault-api/internal/infrastructure/metrics"
)

func TestRegistry_ContadoresDeSuscripcion(t *testing.T) {
	m := metrics.New()
	m.Activated("webhook")
	m.Activated("webhook")
	m.Reconciled("activated")
	m.WebhookReceived("duplicate")
	m.ProcessingFailed("payment.captured")

	n, err := promtestutil.GatherAndCount(m.Gatherer(),
		"taskvault_subscriptions_activated_total",
		"taskvault_subscriptions_reconciled_total",
		"taskvault_webhooks_received_total",
		"taskvault_webhook_processing_failures_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestRegistry_MiddlewareYEndpoint(t *testing.T) {
	m := metrics.New()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/metrics", m.Handler())
	app.Get("/tasks/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	_, err := app.Test(httptest.NewRequest("GET", "/tasks/abc", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest("GET", "/tasks/def", nil))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `taskvault_http_requests_total{method="GET",route="/tasks/:id",status="204"} 2`)
}
