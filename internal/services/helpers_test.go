package services

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/auth"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/cache"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/repositories"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/mocks"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret      = "test-secret-key-that-is-32-bytes!"
	testRedirectURI = "https://app.example.com/oauth/callback"
)

// testClock is a settable clock shared by the components under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// setupTestRedis creates an in-memory Redis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// setupTestDB creates a migrated in-memory sqlite database private to the test
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&repositories.DBUser{}, &repositories.DBUserAuth{}, &repositories.DBSession{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// testEnv wires the auth core over sqlite, miniredis and a mocked provider
type testEnv struct {
	db          *gorm.DB
	redis       *redis.Client
	mr          *miniredis.Miniredis
	clock       *testClock
	users       domain.UserRepository
	sessionRepo domain.SessionRepository
	store       *SessionStoreImpl
	tokens      domain.TokenService
	passwords   domain.PasswordService
	oauth       *mocks.MockOAuthClient
	audit       *mocks.MockAuditLogger
	notifier    *mocks.MockNotificationService
	svc         *AuthServiceImpl
	reset       *PasswordResetServiceImpl
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithTTL(t, 7*24*time.Hour)
}

func newTestEnvWithTTL(t *testing.T, sessionTTL time.Duration) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	client, mr := setupTestRedis(t)
	clock := newTestClock()

	env := &testEnv{
		db:          db,
		redis:       client,
		mr:          mr,
		clock:       clock,
		users:       repositories.NewUserRepository(db),
		sessionRepo: repositories.NewSessionRepository(db),
		tokens:      auth.NewJWTService(testSecret, "maestro-auth", "maestro-api", 15*time.Minute),
		passwords:   auth.NewPasswordServiceWithCost(bcrypt.MinCost),
		oauth:       mocks.NewMockOAuthClient(),
		audit:       mocks.NewMockAuditLogger(),
		notifier:    mocks.NewMockNotificationService(),
	}

	env.store = NewSessionStore(env.sessionRepo, repositories.NewSessionCache(client), env.tokens, sessionTTL, nil).(*SessionStoreImpl)
	env.store.now = clock.Now

	profiles := repositories.NewProfileCache(client)
	env.svc = NewAuthService(AuthDeps{
		Users:       env.users,
		Sessions:    env.store,
		Passwords:   env.passwords,
		Tokens:      env.tokens,
		States:      cache.NewRedisStateStore(client),
		OAuthClient: env.oauth,
		Profiles:    profiles,
		Audit:       env.audit,
		OAuth: OAuthSettings{
			ClientID:    "client-123",
			Scope:       "openid",
			RedirectURI: testRedirectURI,
		},
	}).(*AuthServiceImpl)
	env.svc.now = clock.Now

	env.reset = NewPasswordResetService(ResetDeps{
		Users:     env.users,
		Tokens:    cache.NewRedisTokenStore(client),
		Secrets:   env.tokens,
		Passwords: env.passwords,
		Sessions:  env.store,
		Notifier:  env.notifier,
		Profiles:  profiles,
		Audit:     env.audit,
		URLBase:   "https://app.example.com/reset-password",
	}).(*PasswordResetServiceImpl)

	return env
}

func testDevice() domain.DeviceInfo {
	return domain.DeviceInfo{UserAgent: "go-test", IPAddress: "127.0.0.1", Platform: "web"}
}
