package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Provider endpoints, relative to the base URL
const (
	PathAuthorize = "/oauth/authorize"
	PathToken     = "/oauth/token"
	PathUserInfo  = "/oauth/userinfo"
	PathRevoke    = "/oauth/revoke"

	// DefaultTimeout bounds every provider call
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// Config holds the device-cloud client settings
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	Timeout      time.Duration
}

// TuyaClient implements domain.OAuthClient against the device-cloud OpenAPI
type TuyaClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	signer     *Signer
	logger     *zap.Logger
	now        func() time.Time
}

var _ domain.OAuthClient = (*TuyaClient)(nil)

// NewTuyaClient constructs the client. A nil httpClient gets one bounded by cfg.Timeout.
func NewTuyaClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *TuyaClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TuyaClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		signer:     NewSigner(cfg.ClientID, cfg.ClientSecret),
		logger:     logger,
		now:        time.Now,
	}
}

// envelope is the response wrapper used by every provider endpoint
type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	T       int64           `json:"t"`
	Result  json.RawMessage `json:"result"`
}

type tokenResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireTime   int64  `json:"expire_time"`
	ExpiresIn    int64  `json:"expires_in"`
	UID          string `json:"uid"`
}

type profileResult struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	NickName    string `json:"nick_name"`
	Avatar      string `json:"avatar"`
	CountryCode string `json:"country_code"`
	TimeZone    string `json:"time_zone"`
}

// BuildAuthorizationURL builds the provider redirect; it performs no network call
func (c *TuyaClient) BuildAuthorizationURL(clientID, scope, state, redirectURI string) string {
	conf := oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      strings.Fields(scope),
		Endpoint:    oauth2.Endpoint{AuthURL: c.baseURL + PathAuthorize},
	}
	return conf.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for provider tokens
func (c *TuyaClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.ProviderToken, error) {
	payload := map[string]string{
		"grant_type": "authorization_code",
		"code":       code,
	}
	if redirectURI != "" {
		payload["redirect_uri"] = redirectURI
	}
	return c.requestToken(ctx, "token exchange", payload)
}

// RefreshProviderToken uses grant_type=refresh_token
func (c *TuyaClient) RefreshProviderToken(ctx context.Context, refreshToken string) (*domain.ProviderToken, error) {
	return c.requestToken(ctx, "token refresh", map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
}

func (c *TuyaClient) requestToken(ctx context.Context, op string, payload map[string]string) (*domain.ProviderToken, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}

	var res tokenResult
	if err := c.do(ctx, op, http.MethodPost, PathToken, body, "", &res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, domain.NewExternalAPIError(0, op+" returned no access token", nil)
	}

	expiresIn := res.ExpireTime
	if expiresIn == 0 {
		expiresIn = res.ExpiresIn
	}
	return &domain.ProviderToken{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    expiresIn,
		UID:          res.UID,
		ExpiresAt:    c.now().Add(time.Duration(expiresIn) * time.Second).UTC(),
	}, nil
}

// FetchProfile loads the identity behind accessToken
func (c *TuyaClient) FetchProfile(ctx context.Context, accessToken string) (*domain.ProviderProfile, error) {
	var res profileResult
	if err := c.do(ctx, "profile fetch", http.MethodGet, PathUserInfo, nil, accessToken, &res); err != nil {
		return nil, err
	}
	return &domain.ProviderProfile{
		UID:         res.UID,
		Email:       res.Email,
		Username:    res.Username,
		Nickname:    res.NickName,
		AvatarURL:   res.Avatar,
		CountryCode: res.CountryCode,
		Timezone:    res.TimeZone,
	}, nil
}

// Revoke invalidates accessToken at the provider
func (c *TuyaClient) Revoke(ctx context.Context, accessToken string) error {
	body, err := json.Marshal(map[string]string{"access_token": accessToken})
	if err != nil {
		return fmt.Errorf("encode revoke request: %w", err)
	}
	return c.do(ctx, "token revoke", http.MethodPost, PathRevoke, body, accessToken, nil)
}

// do sends one signed request under the client timeout and decodes the
// envelope result into out when out is non-nil.
func (c *TuyaClient) do(ctx context.Context, op, method, path string, body []byte, accessToken string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.signer.Sign(req, body, accessToken)

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("provider request failed", zap.String("op", op), zap.Error(err))
		return domain.NewExternalAPIError(0, op+" request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.NewExternalAPIError(resp.StatusCode, "read "+op+" response", err)
	}

	c.logger.Debug("provider request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", c.now().Sub(start)),
	)

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest || decodeErr != nil || !env.Success {
		status := 0
		if resp.StatusCode >= http.StatusBadRequest {
			status = resp.StatusCode
		}
		msg := env.Msg
		if msg == "" {
			msg = fmt.Sprintf("%s failed with status %d", op, resp.StatusCode)
		}
		return domain.NewExternalAPIError(status, msg, decodeErr)
	}

	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return domain.NewExternalAPIError(0, "decode "+op+" result", err)
	}
	return nil
}
