package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/bizadmin/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextSkipsEmptyFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithOwnerID(ctx, "42")
	WithContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "42", fields["owner_id"])
	assert.NotContains(t, fields, "actor_type")
	assert.NotContains(t, fields, "trace_id")
}

func TestGinMiddlewareLogsAfterHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/api/invoices/:id", func(c *gin.Context) {
		ctx := obscontext.WithActor(c.Request.Context(), "api_key", "k1")
		c.Request = c.Request.WithContext(ctx)
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/invoices/77", nil)
	req.Header.Set(HeaderRequestID, "abc")
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc", rec.Header().Get(HeaderRequestID))
	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "77", fields["invoice_id"])
	assert.Equal(t, "k1", fields["actor_id"])
	assert.Equal(t, "abc", fields["request_id"])
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/health", 200, ""))
	assert.Equal(t, zapcore.ErrorLevel, requestLevel("/api/invoices", 500, "internal_error"))
	assert.Equal(t, zapcore.WarnLevel, requestLevel("/api/invoices/:id/document", 429, "rate_limited"))
	assert.Equal(t, zapcore.InfoLevel, requestLevel("/api/clients", 404, "not_found"))
}

func TestGormLoggerReportsSlowQueries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), GormLoggerConfig{Level: gormlogger.Warn, SlowThreshold: 1})

	l.Trace(context.Background(), timeAgo(), func() (string, int64) {
		return "SELECT * FROM invoices WHERE owner_id = 1", 3
	}, nil)
	l.Trace(context.Background(), timeAgo(), func() (string, int64) {
		return "SELECT * FROM clients WHERE id = 9", 0
	}, gormlogger.ErrRecordNotFound)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "invoices", entries[0].ContextMap()["table"])
	assert.Equal(t, "SELECT", entries[0].ContextMap()["operation"])
	assert.NotContains(t, entries[1].ContextMap(), "error")
}

func TestTableFromSQL(t *testing.T) {
	assert.Equal(t, "invoice_items", tableFromSQL(`INSERT INTO "invoice_items" ("id") VALUES (1)`))
	assert.Equal(t, "clients", tableFromSQL("UPDATE clients SET name = 'x'"))
	assert.Equal(t, "invoices", tableFromSQL("SELECT count(*) FROM (SELECT id FROM invoices) sub"))
	assert.Equal(t, "", tableFromSQL("BEGIN"))
}

func timeAgo() time.Time {
	return time.Now().Add(-time.Second)
}
