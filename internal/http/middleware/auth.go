package middleware

import (
	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMW wraps the token service and session store for middleware
type AuthMW struct {
	tokens   domain.TokenService
	sessions domain.SessionStore
	logger   *zap.Logger
}

// NewAuthMW creates new auth middleware wrapper
func NewAuthMW(tokens domain.TokenService, sessions domain.SessionStore, logger *zap.Logger) *AuthMW {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMW{
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
	}
}

// WithJWT returns the bearer token and session middleware
func (mw *AuthMW) WithJWT() gin.HandlerFunc {
	return AuthMiddleware(mw.tokens, mw.sessions, mw.logger)
}
