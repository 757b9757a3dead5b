package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("format", "pdf"),
		attribute.String("owner_id", "456"),
		attribute.String("invoice_number", "FY2023-01-001"),
		attribute.String("reason", "pdf_failed"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("format"), attrs[0].Key)
	assert.Equal(t, attribute.Key("reason"), attrs[1].Key)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordInvoiceSaved(context.Background(), "create")
		m.RecordDocumentRendered(context.Background(), "pdf", false)
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{Service: "bizadmin"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordExportFallback(context.Background(), "pdf_failed")
		m.RecordEmailSent(context.Background(), "sent")
	})
}

func TestHTTPMetricsRouteLabel(t *testing.T) {
	assert.Equal(t, "unknown", routeLabel(""))
	assert.Equal(t, "/api/invoices/:id", routeLabel("/api/invoices/:id"))
}

func TestHTTPMetricsMiddlewareCounts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := newHTTPMetrics(Config{Service: "bizadmin"}, reg)

	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("/health", "GET", "200")))
}

func TestFilterAttributesTrimsStrings(t *testing.T) {
	attrs := FilterAttributes(attribute.String("endpoint", " /api/invoices/:id/document "))
	require.Len(t, attrs, 1)
	assert.Equal(t, "/api/invoices/:id/document", attrs[0].Value.AsString())
}
