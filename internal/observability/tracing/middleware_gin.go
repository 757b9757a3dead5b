package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/bizadmin/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/smallbiznis/bizadmin/http"

// GinMiddleware opens a server span per request, continuing any inbound W3C
// trace. The span is renamed to the matched route once routing is known and
// tagged with the owner resolved by authentication.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tracer := otel.Tracer(tracerName)
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		reqCtx := c.Request.Context()
		route := c.FullPath()
		if route != "" {
			span.SetName(c.Request.Method + " " + route)
		}

		status := c.Writer.Status()
		attrs := []attribute.KeyValue{
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		}
		if id := obscontext.RequestIDFromContext(reqCtx); id != "" {
			attrs = append(attrs, attribute.String("request_id", id))
		}
		if owner := obscontext.OwnerIDFromContext(reqCtx); owner != "" {
			attrs = append(attrs, attribute.String("owner_id", owner))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status < http.StatusInternalServerError {
			return
		}
		if last := c.Errors.Last(); last != nil {
			span.RecordError(SafeError(last.Err))
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
