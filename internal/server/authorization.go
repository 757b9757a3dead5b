package server

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizadmin/internal/ownercontext"
)

type ActorType string

const (
	ActorAPIKey ActorType = "api_key"
)

type Actor struct {
	Type ActorType
	ID   string
	Role string
}

// authorize gates a route on the casbin policy for the caller's role.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeWithContext(c *gin.Context, object string, action string) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), actor.subject(), actor.Role, strings.TrimSpace(object), strings.TrimSpace(action))
}

func actorFromContext(c *gin.Context) (Actor, bool) {
	if c == nil {
		return Actor{}, false
	}
	if c.GetString(contextAuthTypeKey) != string(ActorAPIKey) {
		return Actor{}, false
	}
	keyID := strings.TrimSpace(c.GetString(contextAPIKeyIDKey))
	role := ownercontext.RoleFromContext(c.Request.Context())
	if keyID == "" || role == "" {
		return Actor{}, false
	}
	return Actor{Type: ActorAPIKey, ID: keyID, Role: role}, true
}

func (a Actor) subject() string {
	switch a.Type {
	case ActorAPIKey:
		return fmt.Sprintf("api_key:%s", a.ID)
	default:
		return ""
	}
}
