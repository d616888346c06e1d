package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dadecresce/maestro-energy-management-sub000/internal/app"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/config"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/database"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/oauth"
)

const (
	testJWTSecret    = "e2e-secret-key-that-is-32-bytes!!"
	testClientID     = "tuya-client"
	testClientSecret = "tuya-secret"
	testRedirectURI  = "https://app.example.com/oauth/callback"
)

// TestSuite runs the whole service in-process over sqlite, miniredis and a
// fake device-cloud provider
type TestSuite struct {
	Config    *config.Config
	DB        *gorm.DB
	Redis     *redis.Client
	Miniredis *miniredis.Miniredis
	Provider  *FakeProvider
	Container *app.Container
	Router    *gin.Engine
}

// NewTestSuite builds a suite private to t. configure may adjust the
// configuration before the services are wired.
func NewTestSuite(t *testing.T, configure func(*config.Config)) *TestSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := NewFakeProvider(t)

	cfg := config.Default()
	cfg.App.Environment = "test"
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.DSN = "file:" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	cfg.JWT.Secret = testJWTSecret
	cfg.Tuya.Enabled = true
	cfg.Tuya.ClientID = testClientID
	cfg.Tuya.ClientSecret = testClientSecret
	cfg.Tuya.BaseURL = provider.URL
	cfg.Tuya.RedirectURI = testRedirectURI
	cfg.Tuya.Timeout = 2 * time.Second
	cfg.Reset.URLBase = "https://app.example.com/reset-password"
	cfg.RateLimit.RequestsPerMinute = 0
	if configure != nil {
		configure(cfg)
	}

	db, err := database.Open(cfg.Database, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c, err := app.NewContainerWithStores(context.Background(), cfg, zap.NewNop(), app.Stores{SQL: db, Redis: rdb})
	require.NoError(t, err)

	return &TestSuite{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Miniredis: mr,
		Provider:  provider,
		Container: c,
		Router:    c.Router(),
	}
}

// Response is a decoded JSON reply
type Response struct {
	Status int
	Body   map[string]interface{}
	Header http.Header
}

// Data returns the "data" object of a success envelope
func (r Response) Data(t *testing.T) map[string]interface{} {
	t.Helper()
	d, ok := r.Body["data"].(map[string]interface{})
	require.True(t, ok, "expected a data object, got %v", r.Body)
	return d
}

// Code returns the error code of an error envelope
func (r Response) Code() string {
	code, _ := r.Body["code"].(string)
	return code
}

// Do sends a JSON request through the router. token may be empty.
func (s *TestSuite) Do(t *testing.T, method, path, token string, body interface{}) Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "e2e-test")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	res := Response{Status: w.Code, Header: w.Header()}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res.Body), w.Body.String())
	}
	return res
}

// Session is the token set returned by register, login and OAuth callback
type Session struct {
	Token        string
	RefreshToken string
	SessionID    string
	UserID       string
}

func sessionFrom(t *testing.T, res Response) Session {
	t.Helper()
	d := res.Data(t)
	s := Session{
		Token:        d["token"].(string),
		RefreshToken: d["refreshToken"].(string),
		SessionID:    d["sessionId"].(string),
	}
	if user, ok := d["user"].(map[string]interface{}); ok {
		s.UserID, _ = user["id"].(string)
	}
	require.NotEmpty(t, s.Token)
	require.NotEmpty(t, s.RefreshToken)
	require.NotEmpty(t, s.SessionID)
	return s
}

// Register creates a local account and returns its first session
func (s *TestSuite) Register(t *testing.T, email, password string) Session {
	t.Helper()
	res := s.Do(t, http.MethodPost, "/auth/register", "", map[string]interface{}{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	return sessionFrom(t, res)
}

// Login opens a new local session
func (s *TestSuite) Login(t *testing.T, email, password string) Session {
	t.Helper()
	res := s.Do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, res.Status, res.Body)
	return sessionFrom(t, res)
}

// FakeProvider imitates the device-cloud OpenAPI. Every request must carry a
// valid HMAC signature.
type FakeProvider struct {
	URL string

	mu          sync.Mutex
	calls       []string
	unsigned    int
	profile     map[string]interface{}
	revokeDrops bool
}

// NewFakeProvider starts a provider that issues tokens for any code
func NewFakeProvider(t *testing.T) *FakeProvider {
	t.Helper()
	p := &FakeProvider{
		profile: map[string]interface{}{
			"uid":       "tuya-uid-1",
			"email":     "owner@home.io",
			"nick_name": "Home Owner",
			"time_zone": "Europe/Rome",
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(srv.Close)
	p.URL = srv.URL
	return p
}

// SetProfile replaces the identity returned by the userinfo endpoint
func (p *FakeProvider) SetProfile(profile map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profile = profile
}

// DropRevokes makes the revoke endpoint close the connection without replying
func (p *FakeProvider) DropRevokes() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revokeDrops = true
}

// Calls returns the paths requested so far
func (p *FakeProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Unsigned counts requests whose signature did not verify
func (p *FakeProvider) Unsigned() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unsigned
}

func (p *FakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	p.mu.Lock()
	p.calls = append(p.calls, r.URL.Path)
	if !oauth.Verify(r, body, testClientSecret) {
		p.unsigned++
	}
	profile := p.profile
	drop := p.revokeDrops
	p.mu.Unlock()

	switch r.URL.Path {
	case oauth.PathToken:
		var req map[string]string
		_ = json.Unmarshal(body, &req)
		access := "provider-at-" + req["code"]
		if req["grant_type"] == "refresh_token" {
			access = "provider-at-refreshed"
		}
		writeEnvelope(w, map[string]interface{}{
			"access_token":  access,
			"refresh_token": "provider-rt",
			"expire_time":   7200,
			"uid":           profile["uid"],
		})
	case oauth.PathUserInfo:
		writeEnvelope(w, profile)
	case oauth.PathRevoke:
		if drop {
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, err := hj.Hijack()
				if err == nil {
					_ = conn.Close()
					return
				}
			}
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeEnvelope(w, true)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeEnvelope(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"code":    200,
		"t":       time.Now().UnixMilli(),
		"result":  result,
	})
}
