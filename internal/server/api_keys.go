package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/smallbiznis/bizadmin/internal/apikey/domain"
	"github.com/smallbiznis/bizadmin/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Server) ListAPIKeys(c *gin.Context) {
	keys, err := s.apiKeySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": keys})
}

// CreateAPIKey issues a new key. The secret is only returned here.
func (s *Server) CreateAPIKey(c *gin.Context) {
	var req apikeydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.apiKeySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("api key created",
		zap.String("key_id", resp.KeyID),
		zap.String("role", strings.ToLower(strings.TrimSpace(req.Role))),
	)
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RotateAPIKey(c *gin.Context) {
	keyID := strings.TrimSpace(c.Param("key_id"))
	resp, err := s.apiKeySvc.Rotate(c.Request.Context(), keyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("api key rotated",
		zap.String("rotated_from_key_id", keyID),
		zap.String("key_id", resp.KeyID),
	)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevokeAPIKey(c *gin.Context) {
	keyID := strings.TrimSpace(c.Param("key_id"))
	if err := s.apiKeySvc.Revoke(c.Request.Context(), keyID); err != nil {
		AbortWithError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("api key revoked", zap.String("key_id", keyID))
	c.Status(http.StatusNoContent)
}

func isAPIKeyValidationError(err error) bool {
	switch err {
	case apikeydomain.ErrInvalidName,
		apikeydomain.ErrInvalidRole,
		apikeydomain.ErrInvalidKeyID:
		return true
	default:
		return false
	}
}
