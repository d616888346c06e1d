package handlers

import (
	"net/http"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandlers handles authentication HTTP requests
type AuthHandlers struct {
	authSvc  domain.AuthService
	resetSvc domain.PasswordResetService
	logger   *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, resetSvc domain.PasswordResetService, logger *zap.Logger) *AuthHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandlers{
		authSvc:  authSvc,
		resetSvc: resetSvc,
		logger:   logger.Named("http"),
	}
}

// ProfileRequest carries optional profile details on registration
type ProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Timezone  string `json:"timezone"`
	Locale    string `json:"locale"`
}

// RegisterRequest represents registration request. The password policy is
// checked by the auth service so it shares its error codes.
type RegisterRequest struct {
	Email       string         `json:"email" binding:"required,email"`
	Password    string         `json:"password" binding:"required,max=72"`
	DisplayName string         `json:"displayName"`
	Profile     ProfileRequest `json:"profile"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes a password reset
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,max=72"`
}

// ChangePasswordRequest replaces the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,max=72"`
}

// Register handles user registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authSvc.RegisterLocal(c.Request.Context(), domain.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Profile: domain.UserProfile{
			FirstName: req.Profile.FirstName,
			LastName:  req.Profile.LastName,
			Phone:     req.Profile.Phone,
			Timezone:  req.Profile.Timezone,
			Locale:    req.Profile.Locale,
		},
		Device: middleware.DeviceInfo(c),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": tokenPair(result)})
}

// Login handles user login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authSvc.LoginLocal(c.Request.Context(), req.Email, req.Password, middleware.DeviceInfo(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tokenPair(result)})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authSvc.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"token":        result.AccessToken,
			"refreshToken": result.RefreshToken,
			"sessionId":    result.SessionID,
			"tokenType":    "Bearer",
			"expiresIn":    result.ExpiresIn,
		},
	})
}

// Me returns the authenticated user's profile
func (h *AuthHandlers) Me(c *gin.Context) {
	user, err := h.authSvc.GetCurrentUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

// Logout revokes the caller's session
func (h *AuthHandlers) Logout(c *gin.Context) {
	if err := h.authSvc.Logout(c.Request.Context(), middleware.SessionID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Logged out successfully"}})
}

// LogoutAll revokes every session of the caller
func (h *AuthHandlers) LogoutAll(c *gin.Context) {
	revoked, err := h.authSvc.LogoutAll(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Logged out from all sessions", "revoked": revoked}})
}

// ChangePassword replaces the caller's password and opens a fresh session
func (h *AuthHandlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authSvc.ChangePassword(c.Request.Context(), middleware.UserID(c),
		req.CurrentPassword, req.NewPassword, middleware.DeviceInfo(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tokenPair(result)})
}

// ForgotPassword always answers 200 so callers cannot probe for accounts
func (h *AuthHandlers) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.resetSvc.RequestReset(c.Request.Context(), req.Email); err != nil {
		h.logger.Error("password reset request failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "If an account exists for this address, a reset link has been sent"},
	})
}

// ValidateResetToken reports whether a reset link is still usable
func (h *AuthHandlers) ValidateResetToken(c *gin.Context) {
	valid, err := h.resetSvc.ValidateResetToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"valid": valid}})
}

// ResetPassword completes a password reset
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.resetSvc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Password has been reset, please log in again"}})
}
