package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/bizadmin/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const HeaderRequestID = "X-Request-Id"

type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps the last handler error to (type, code).
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware assigns a request id and writes one access log line per
// request. The line is emitted after the handler chain, so owner and actor
// set by authentication are included.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String(resourceKey(route), id))
		}

		errorType := ""
		if last := c.Errors.Last(); last != nil {
			code := ""
			if cfg.ErrorClassifier != nil {
				errorType, code = cfg.ErrorClassifier(last.Err)
			}
			fields = append(fields, zap.String("error_type", errorType), zap.String("error_code", code))
			if cfg.Debug {
				fields = append(fields, zap.NamedError("cause", last.Err))
			}
		}

		FromContext(c.Request.Context()).Log(requestLevel(route, status, errorType), "http_request", fields...)
	}
}

func requestLevel(route string, status int, errorType string) zapcore.Level {
	switch {
	case route == "/health" || route == "/metrics":
		return zapcore.DebugLevel
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status == http.StatusTooManyRequests && errorType == "rate_limited":
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// resourceKey names the :id path parameter after the collection it indexes.
func resourceKey(route string) string {
	for _, collection := range []string{"invoices", "clients", "projects"} {
		if strings.Contains(route, "/"+collection+"/") {
			return strings.TrimSuffix(collection, "s") + "_id"
		}
	}
	return "resource_id"
}
