package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizadmin/internal/observability/logger"
	"github.com/smallbiznis/bizadmin/internal/ownercontext"
	"go.uber.org/zap"
)

const (
	HeaderOwner = "X-Owner-ID"

	rateLimitReasonOwnerRate = "owner-rate"
)

// DocumentExportRateLimit spends one token of the owner's export bucket per
// request. It is a no-op when redis is not configured.
func (s *Server) DocumentExportRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.documentLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		result := s.documentLimiter.AllowExport(ctx, ownerID.String())
		if result.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		}
		if result.Allowed {
			c.Next()
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		logger.FromContext(ctx).Warn("document export rate limit exceeded",
			zap.String("reason", rateLimitReasonOwnerRate),
			zap.String("endpoint", endpoint),
		)
		s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, rateLimitReasonOwnerRate)

		retryAfter := int(result.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.Header("X-Rate-Limited-Reason", rateLimitReasonOwnerRate)
		AbortWithError(c, ErrRateLimited)
	}
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
