package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics("test")
	m.RecordRequest("/tickets", http.MethodGet, 200, 10*time.Millisecond)
	m.RecordError("NOT_FOUND")
	m.TicketTransition("close")
	m.EstimationsServed("admin", 3)
	m.NotificationDelivered("ticket.closed")

	require.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/tickets", http.MethodGet, "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("NOT_FOUND")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("close")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.estimationsTotal.WithLabelValues("admin")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.notificationsSent.WithLabelValues("ticket.closed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", http.MethodGet, 200, time.Millisecond)
	m.RecordError("X")
	m.TicketTransition("close")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m := NewMetrics("ticketing")
	m.TicketTransition("reopen")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `ticketing_ticket_transitions_total{transition="reopen"} 1`))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetrics("test")

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/tickets/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tickets/7", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	require.Equal(t, "/tickets/:id", entries[0].ContextMap()["route"])
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("/tickets/:id", http.MethodGet, "204")))
}
