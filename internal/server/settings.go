package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	companydomain "github.com/smallbiznis/bizadmin/internal/companysettings/domain"
)

// GetCompanySettings returns the saved settings, or null data when the owner
// has not saved any yet.
func (s *Server) GetCompanySettings(c *gin.Context) {
	resp, err := s.settingsSvc.Get(c.Request.Context())
	if errors.Is(err, companydomain.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"data": nil})
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertCompanySettings(c *gin.Context) {
	var req companydomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isSettingsValidationError(err error) bool {
	switch err {
	case companydomain.ErrInvalidCompanyName,
		companydomain.ErrInvalidVATDefault,
		companydomain.ErrInvalidEmail:
		return true
	default:
		return false
	}
}
