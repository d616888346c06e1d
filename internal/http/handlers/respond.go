package handlers

import (
	"net/http"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError renders err with its mapped status. Server-side failures are logged.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := domain.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.JSON(status, middleware.ErrorBody(err))
}

// respondBindError answers a request body that could not be decoded
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_REQUEST"})
}

func tokenPair(result *domain.AuthResult) gin.H {
	return gin.H{
		"token":        result.AccessToken,
		"refreshToken": result.RefreshToken,
		"sessionId":    result.SessionID,
		"tokenType":    "Bearer",
		"expiresIn":    result.ExpiresIn,
		"user":         result.User,
	}
}
