package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/config"
	httpx "github.com/dadecresce/maestro-energy-management-sub000/internal/http"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/http/handlers"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/http/middleware"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/audit"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/auth"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/cache"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/database"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/mongostore"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/notifications"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/oauth"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/repositories"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/services"
)

// Stores are the opened backing stores. Exactly one of SQL and Mongo is set.
type Stores struct {
	SQL   *gorm.DB
	Mongo *mongo.Database
	Redis *redis.Client
}

// Container holds all dependencies
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	Stores      Stores
	MongoClient *mongo.Client
	Casbin      *auth.CasbinService

	// Repositories
	UserRepo    domain.UserRepository
	SessionRepo domain.SessionRepository

	// Services
	PasswordSvc     domain.PasswordService
	TokenSvc        domain.TokenService
	NotificationSvc domain.NotificationService
	OAuthClient     domain.OAuthClient
	SessionStore    domain.SessionStore
	AuthSvc         domain.AuthService
	ResetSvc        domain.PasswordResetService
	PolicySvc       domain.PolicyService
	Sweeper         *services.SessionSweeper

	HealthChecks map[string]handlers.HealthCheck
}

// NewContainer connects the configured stores and wires every service
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	if err := c.connect(ctx); err != nil {
		c.Close(context.Background())
		return nil, err
	}
	if err := c.wire(ctx); err != nil {
		c.Close(context.Background())
		return nil, err
	}
	return c, nil
}

// NewContainerWithStores wires every service over stores that are already open
func NewContainerWithStores(ctx context.Context, cfg *config.Config, logger *zap.Logger, stores Stores) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger, Stores: stores}
	if err := c.wire(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) connect(ctx context.Context) error {
	cfg := c.Config

	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		c.MongoClient = client
		c.Stores.Mongo = client.Database(cfg.Mongo.Database)
	default:
		db, err := database.Open(cfg.Database, c.Logger)
		if err != nil {
			return err
		}
		c.Stores.SQL = db
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
	}

	rdb, err := database.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	c.Stores.Redis = rdb
	return nil
}

func (c *Container) wire(ctx context.Context) error {
	cfg := c.Config
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Stores.Redis == nil {
		return errors.New("redis client is required")
	}
	c.HealthChecks = map[string]handlers.HealthCheck{
		"redis": database.RedisHealthcheck(c.Stores.Redis),
	}

	// Persistent store
	switch {
	case c.Stores.SQL != nil:
		c.UserRepo = repositories.NewUserRepository(c.Stores.SQL)
		c.SessionRepo = repositories.NewSessionRepository(c.Stores.SQL)
		c.HealthChecks["database"] = database.SQLHealthcheck(c.Stores.SQL)
	case c.Stores.Mongo != nil:
		if err := mongostore.EnsureIndexes(ctx, c.Stores.Mongo); err != nil {
			return err
		}
		c.UserRepo = mongostore.NewUserRepository(c.Stores.Mongo)
		c.SessionRepo = mongostore.NewSessionRepository(c.Stores.Mongo)
		c.HealthChecks["database"] = database.MongoHealthcheck(c.Stores.Mongo.Client())
	default:
		return errors.New("a persistent store is required")
	}

	// Policies persist through GORM on SQL drivers and live in memory on mongo
	cas, err := auth.NewCasbinService(c.Stores.SQL)
	if err != nil {
		return err
	}
	seeded, err := cas.SeedDefaults()
	if err != nil {
		return fmt.Errorf("failed to seed casbin policies: %w", err)
	}
	if seeded {
		c.Logger.Info("casbin: seeded default policies")
	}
	c.Casbin = cas
	c.PolicySvc = services.NewPolicyService(cas.E)

	// Infrastructure services
	c.PasswordSvc = auth.NewPasswordService()
	c.TokenSvc = auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.AccessTTL)
	c.NotificationSvc = notifications.NewNotifier(
		notifications.NewTwilioSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, c.Logger),
		notifications.NewPostmarkSender(cfg.Postmark.ServerToken, cfg.Postmark.AccountToken, cfg.Postmark.From, c.Logger),
	)
	if cfg.Tuya.Enabled {
		c.OAuthClient = oauth.NewTuyaClient(oauth.Config{
			ClientID:     cfg.Tuya.ClientID,
			ClientSecret: cfg.Tuya.ClientSecret,
			BaseURL:      cfg.Tuya.BaseURL,
			Timeout:      cfg.Tuya.Timeout,
		}, nil, c.Logger)
	}
	auditLogger := audit.NewZapAuditLogger(c.Logger)
	profiles := repositories.NewProfileCache(c.Stores.Redis)

	// Domain services
	c.SessionStore = services.NewSessionStore(
		c.SessionRepo,
		repositories.NewSessionCache(c.Stores.Redis),
		c.TokenSvc,
		cfg.JWT.RefreshTTL,
		c.Logger,
	)
	c.AuthSvc = services.NewAuthService(services.AuthDeps{
		Users:       c.UserRepo,
		Sessions:    c.SessionStore,
		Passwords:   c.PasswordSvc,
		Tokens:      c.TokenSvc,
		States:      cache.NewRedisStateStore(c.Stores.Redis),
		OAuthClient: c.OAuthClient,
		Profiles:    profiles,
		Audit:       auditLogger,
		Logger:      c.Logger,
		OAuth: services.OAuthSettings{
			ClientID:    cfg.Tuya.ClientID,
			Scope:       cfg.Tuya.Scope,
			RedirectURI: cfg.Tuya.RedirectURI,
		},
		ProfileCacheTTL: cfg.Session.ProfileCacheTTL,
	})
	c.ResetSvc = services.NewPasswordResetService(services.ResetDeps{
		Users:     c.UserRepo,
		Tokens:    cache.NewRedisTokenStore(c.Stores.Redis),
		Secrets:   c.TokenSvc,
		Passwords: c.PasswordSvc,
		Sessions:  c.SessionStore,
		Notifier:  c.NotificationSvc,
		Profiles:  profiles,
		Audit:     auditLogger,
		Logger:    c.Logger,
		TokenTTL:  cfg.Reset.TokenTTL,
		URLBase:   cfg.Reset.URLBase,
	})
	c.Sweeper = services.NewSessionSweeper(c.SessionStore, cfg.Session.SweepInterval, c.Logger)

	return nil
}

// Router builds the HTTP router over the wired services
func (c *Container) Router() *gin.Engine {
	return httpx.BuildRouter(httpx.RouterDeps{
		Auth:        handlers.NewAuthHandlers(c.AuthSvc, c.ResetSvc, c.Logger),
		Policies:    handlers.NewPolicyHandlers(c.PolicySvc, c.Logger),
		Admin:       handlers.NewAdminHandlers(c.AuthSvc, c.SessionStore, c.Logger),
		Health:      handlers.NewHealthHandlers(c.HealthChecks, c.Logger),
		JWT:         middleware.NewAuthMW(c.TokenSvc, c.SessionStore, c.Logger),
		Casbin:      middleware.NewCasbinMW(c.PolicySvc, c.Logger),
		RateLimiter: middleware.NewRateLimiter(c.Config.RateLimit.RequestsPerMinute, c.Config.RateLimit.Burst),
		Logger:      c.Logger,
	})
}

// Close releases the connection pools opened by NewContainer
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Stores.Redis != nil {
		errs = append(errs, c.Stores.Redis.Close())
	}
	if c.Stores.SQL != nil {
		errs = append(errs, database.Close(c.Stores.SQL))
	}
	if c.MongoClient != nil {
		disconnectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		errs = append(errs, c.MongoClient.Disconnect(disconnectCtx))
	}
	return errors.Join(errs...)
}
