package handlers

import (
	"net/http"

	"github.com/dadecresce/maestro-energy-management-sub000/internal/http/middleware"
	"github.com/gin-gonic/gin"
)

// OAuthCallbackRequest carries the provider's authorization response
type OAuthCallbackRequest struct {
	Code        string `json:"code"`
	State       string `json:"state"`
	RedirectURI string `json:"redirect_uri"`
}

// OAuthLogin issues a state and returns the provider authorization URL
func (h *AuthHandlers) OAuthLogin(c *gin.Context) {
	authz, err := h.authSvc.BeginOAuth(c.Request.Context(), c.Query("redirect_uri"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"authUrl":     authz.AuthURL,
			"state":       authz.State,
			"redirectUri": authz.RedirectURI,
		},
	})
}

// OAuthCallback completes a provider login. Missing fields are left to the
// auth service so its state check runs before anything else.
func (h *AuthHandlers) OAuthCallback(c *gin.Context) {
	var req OAuthCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authSvc.HandleOAuthCallback(c.Request.Context(), req.Code, req.State, req.RedirectURI, middleware.DeviceInfo(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tokenPair(result)})
}

// OAuthRefresh refreshes the caller's provider token when it is close to expiry
func (h *AuthHandlers) OAuthRefresh(c *gin.Context) {
	refreshed, err := h.authSvc.RefreshProviderTokenIfNeeded(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"refreshed": refreshed}})
}

// OAuthDisconnect unlinks the caller's provider account
func (h *AuthHandlers) OAuthDisconnect(c *gin.Context) {
	if err := h.authSvc.DisconnectProvider(c.Request.Context(), middleware.UserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Provider account disconnected"}})
}
