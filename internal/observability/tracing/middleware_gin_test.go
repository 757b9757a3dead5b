package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/bizadmin/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGinMiddlewareNamesSpanAfterRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/invoices/:id", func(c *gin.Context) {
		c.Request = c.Request.WithContext(obscontext.WithOwnerID(c.Request.Context(), "42"))
		c.Status(http.StatusOK)
	})
	r.GET("/api/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("render failed"))
		c.Status(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/invoices/7", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/boom", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "GET /api/invoices/:id", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String("owner_id", "42"))
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	assert.Equal(t, codes.Error, spans[1].Status.Code)
	require.Len(t, spans[1].Events, 1)
}
