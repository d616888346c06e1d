package middleware

import (
	"errors"
	"strings"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware validates the bearer token and requires its session to be
// live and owned by the token subject. An expired token answers TOKEN_EXPIRED
// so clients know to refresh.
func AuthMiddleware(tokens domain.TokenService, sessions domain.SessionStore, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			AbortWithError(c, domain.ErrUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, domain.ErrTokenMalformed)
			return
		}

		v := tokens.Validate(strings.TrimSpace(parts[1]))
		switch {
		case v.Expired:
			AbortWithError(c, domain.ErrTokenExpired)
			return
		case !v.Valid || v.Claims == nil || v.Claims.SessionID == "":
			AbortWithError(c, domain.ErrTokenInvalid)
			return
		}
		claims := v.Claims

		ctx := c.Request.Context()
		session, err := sessions.Get(ctx, claims.SessionID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				AbortWithError(c, domain.ErrSessionExpired)
				return
			}
			logger.Error("session lookup failed", zap.Error(err))
			AbortWithError(c, err)
			return
		}
		if session.UserID != claims.UserID {
			logger.Warn("session user mismatch",
				zap.String("user_id", claims.UserID),
				zap.String("session_user_id", session.UserID))
			AbortWithError(c, domain.ErrSessionUserMismatch)
			return
		}

		if outcome := sessions.Touch(ctx, claims.SessionID); outcome.Degraded {
			logger.Debug("session touch degraded", zap.Error(outcome.CacheErr))
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserRoleKey, claims.Role)
		c.Set(UserEmailKey, claims.Email)
		c.Set(SessionIDKey, claims.SessionID)

		c.Next()
	}
}
