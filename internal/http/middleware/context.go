package middleware

import (
	"errors"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware
const (
	UserIDKey    = "user_id"
	UserRoleKey  = "user_role"
	UserEmailKey = "user_email"
	SessionIDKey = "session_id"
	RequestIDKey = "request_id"
)

// UserID returns the authenticated user id, or "" outside authenticated routes
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// UserRole returns the authenticated user's role
func UserRole(c *gin.Context) string {
	return c.GetString(UserRoleKey)
}

// SessionID returns the session id embedded in the bearer token
func SessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}

// DeviceInfo describes the calling client
func DeviceInfo(c *gin.Context) domain.DeviceInfo {
	platform := c.GetHeader("X-Client-Platform")
	if platform == "" {
		platform = "web"
	}
	return domain.DeviceInfo{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
		Platform:  platform,
	}
}

// AbortWithError writes the error envelope for err and stops the chain
func AbortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(domain.HTTPStatus(err), ErrorBody(err))
}

// ErrorBody renders err as {"error": message, "code": code}. Untyped errors
// never leak their text.
func ErrorBody(err error) gin.H {
	message := "internal server error"
	var typed *domain.Error
	if errors.As(err, &typed) {
		message = typed.Message
	}
	return gin.H{"error": message, "code": domain.CodeOf(err)}
}
