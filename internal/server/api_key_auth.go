package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/smallbiznis/bizadmin/internal/apikey/domain"
	obscontext "github.com/smallbiznis/bizadmin/internal/observability/context"
	"github.com/smallbiznis/bizadmin/internal/ownercontext"
)

const (
	contextAuthTypeKey = "auth_type"
	contextAPIKeyIDKey = "api_key_id"
)

// APIKeyRequired authenticates requests with a bearer API key. The owner is
// derived solely from the key record; client supplied owner IDs are rejected.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if requestHasOwnerID(c) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.apiKeySvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, apikeydomain.ErrInvalidKey) {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			AbortWithError(c, err)
			return
		}

		ctx := c.Request.Context()
		ctx = ownercontext.WithOwnerID(ctx, principal.OwnerID)
		ctx = ownercontext.WithRole(ctx, principal.Role)
		ctx = obscontext.WithOwnerID(ctx, principal.OwnerID.String())
		ctx = obscontext.WithActor(ctx, string(ActorAPIKey), principal.KeyID)
		c.Request = c.Request.WithContext(ctx)

		c.Set(contextAuthTypeKey, string(ActorAPIKey))
		c.Set(contextAPIKeyIDKey, principal.KeyID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(strings.TrimSpace(header))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func requestHasOwnerID(c *gin.Context) bool {
	if strings.TrimSpace(c.GetHeader(HeaderOwner)) != "" {
		return true
	}
	if value, ok := c.GetQuery("owner_id"); ok && strings.TrimSpace(value) != "" {
		return true
	}
	return false
}
