package httpx

import (
	"github.com/dadecresce/maestro-energy-management-sub000/internal/http/handlers"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterDeps groups what the router mounts
type RouterDeps struct {
	Auth        *handlers.AuthHandlers
	Policies    *handlers.PolicyHandlers
	Admin       *handlers.AdminHandlers
	Health      *handlers.HealthHandlers
	JWT         *middleware.AuthMW
	Casbin      middleware.CasbinMiddleware
	RateLimiter *middleware.RateLimiter
	Logger      *zap.Logger
}

func BuildRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(d.Logger), middleware.Recovery(d.Logger))

	r.GET("/health", d.Health.Health)

	public := r.Group("/auth").Use(d.RateLimiter.Handler())
	public.POST("/register", d.Auth.Register)
	public.POST("/login", d.Auth.Login)
	public.POST("/refresh", d.Auth.Refresh)
	public.POST("/forgot-password", d.Auth.ForgotPassword)
	public.GET("/reset-password/:token", d.Auth.ValidateResetToken)
	public.POST("/reset-password", d.Auth.ResetPassword)
	public.GET("/oauth/login", d.Auth.OAuthLogin)
	public.POST("/oauth/callback", d.Auth.OAuthCallback)

	v := r.Group("/auth").Use(d.JWT.WithJWT())
	v.GET("/me", d.Auth.Me)
	v.POST("/logout", d.Auth.Logout)
	v.POST("/logout-all", d.Auth.LogoutAll)
	v.POST("/change-password", d.Auth.ChangePassword)
	v.POST("/oauth/refresh", d.Auth.OAuthRefresh)
	v.DELETE("/oauth/disconnect", d.Auth.OAuthDisconnect)

	adm := r.Group("/admin").Use(d.JWT.WithJWT(), d.Casbin.Enforce())
	adm.GET("/policies", d.Policies.List)
	adm.POST("/policies", d.Policies.Add)
	adm.DELETE("/policies", d.Policies.Remove)
	adm.POST("/sessions/sweep", d.Admin.SweepSessions)
	adm.DELETE("/users/:id/sessions", d.Admin.RevokeUserSessions)

	return r
}
