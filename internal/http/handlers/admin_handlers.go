package handlers

import (
	"net/http"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandlers exposes session maintenance to administrators
type AdminHandlers struct {
	authSvc  domain.AuthService
	sessions domain.SessionStore
	logger   *zap.Logger
}

// NewAdminHandlers creates admin handlers
func NewAdminHandlers(authSvc domain.AuthService, sessions domain.SessionStore, logger *zap.Logger) *AdminHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandlers{authSvc: authSvc, sessions: sessions, logger: logger.Named("http")}
}

// SweepSessions removes expired sessions now
func (h *AdminHandlers) SweepSessions(c *gin.Context) {
	removed, err := h.sessions.SweepExpired(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"removed": removed}})
}

// RevokeUserSessions logs a user out everywhere
func (h *AdminHandlers) RevokeUserSessions(c *gin.Context) {
	userID := c.Param("id")
	revoked, err := h.authSvc.LogoutAll(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"userId": userID, "revoked": revoked}})
}
