package middleware

import (
	"net/http"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CasbinMiddleware defines the interface for Casbin authorization middleware
type CasbinMiddleware interface {
	Enforce() gin.HandlerFunc
}

// CasbinMW checks the caller's role against the policy set. It must run after
// AuthMiddleware.
type CasbinMW struct {
	policies domain.PolicyService
	logger   *zap.Logger
}

// NewCasbinMW creates new casbin middleware wrapper
func NewCasbinMW(policies domain.PolicyService, logger *zap.Logger) *CasbinMW {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CasbinMW{policies: policies, logger: logger}
}

// Enforce returns the casbin authorization middleware
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		role := UserRole(c)
		if userID == "" || role == "" {
			AbortWithError(c, domain.ErrUnauthorized)
			return
		}

		path := c.Request.URL.Path
		method := c.Request.Method
		allowed, err := mw.policies.CheckPermission(services.RoleSubject(role), path, method)
		if err != nil {
			mw.logger.Error("authorization check failed", zap.String("path", path), zap.Error(err))
			AbortWithError(c, err)
			return
		}
		if !allowed {
			mw.logger.Warn("access denied",
				zap.String("user_id", userID),
				zap.String("role", role),
				zap.String("method", method),
				zap.String("path", path))
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorBody(domain.ErrInsufficientRole))
			return
		}

		c.Next()
	}
}
