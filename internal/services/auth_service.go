package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 8

	// MaxPasswordBytes is the longest password bcrypt accepts
	MaxPasswordBytes = 72

	// providerRefreshThreshold is how close to expiry a provider token is refreshed
	providerRefreshThreshold = 5 * time.Minute

	// fallbackEmailDomain builds an address for provider users without an email
	fallbackEmailDomain = "tuya.local"
)

// OAuthSettings is the provider configuration the orchestrator needs
type OAuthSettings struct {
	ClientID    string
	Scope       string
	RedirectURI string
}

// AuthDeps groups the collaborators of the auth service. OAuthClient may be
// nil when the provider is disabled; Audit and Logger may be nil.
type AuthDeps struct {
	Users           domain.UserRepository
	Sessions        domain.SessionStore
	Passwords       domain.PasswordService
	Tokens          domain.TokenService
	States          domain.OAuthStateStore
	OAuthClient     domain.OAuthClient
	Profiles        domain.ProfileCache
	Audit           domain.AuditLogger
	Logger          *zap.Logger
	OAuth           OAuthSettings
	ProfileCacheTTL time.Duration
}

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	users           domain.UserRepository
	sessions        domain.SessionStore
	passwords       domain.PasswordService
	tokens          domain.TokenService
	states          domain.OAuthStateStore
	oauth           domain.OAuthClient
	profiles        domain.ProfileCache
	audit           domain.AuditLogger
	logger          *zap.Logger
	oauthCfg        OAuthSettings
	profileCacheTTL time.Duration
	now             func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(deps AuthDeps) domain.AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.ProfileCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AuthServiceImpl{
		users:           deps.Users,
		sessions:        deps.Sessions,
		passwords:       deps.Passwords,
		tokens:          deps.Tokens,
		states:          deps.States,
		oauth:           deps.OAuthClient,
		profiles:        deps.Profiles,
		audit:           deps.Audit,
		logger:          logger.Named("auth"),
		oauthCfg:        deps.OAuth,
		profileCacheTTL: ttl,
		now:             time.Now,
	}
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// ValidatePassword enforces the password policy. The upper bound is in bytes.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domain.ErrWeakPassword
	}
	if len(password) > MaxPasswordBytes {
		return domain.ErrPasswordTooLong
	}
	return nil
}

// RegisterLocal implements domain.AuthService
func (s *AuthServiceImpl) RegisterLocal(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error) {
	email := NormalizeEmail(req.Email)
	if !validEmail(email) {
		return nil, domain.ErrInvalidEmail
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.ErrUserAlreadyExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.NewStorageError("user lookup", err)
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = email[:strings.Index(email, "@")]
	}

	user := &domain.User{
		Email:       email,
		DisplayName: displayName,
		Role:        domain.RoleUser,
		IsActive:    true,
		Profile:     req.Profile,
		Auth: []domain.UserAuth{
			{Provider: domain.ProviderLocal, ProviderID: email, AccessToken: hash},
		},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, domain.NewStorageError("user create", err)
	}

	s.emit(ctx, domain.NewAuditEvent(domain.UserRegistrationEvent, user.ID).
		WithEmail(email).
		WithProvider(domain.ProviderLocal).
		WithDevice(req.Device))

	return s.CompleteAuthentication(ctx, user, req.Device)
}

// LoginLocal implements domain.AuthService. Every credential failure yields
// ErrInvalidCredentials so callers cannot tell which check failed.
func (s *AuthServiceImpl) LoginLocal(ctx context.Context, email, password string, device domain.DeviceInfo) (*domain.AuthResult, error) {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewStorageError("user lookup", err)
		}
		s.loginFailed(ctx, "", email, device, domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}

	local := user.AuthFor(domain.ProviderLocal)
	if local == nil || !s.passwords.Verify(local.AccessToken, password) {
		s.loginFailed(ctx, user.ID, email, device, domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}
	if !user.CanAuthenticate() {
		s.loginFailed(ctx, user.ID, email, device, domain.ErrUserInactive)
		return nil, domain.ErrUserInactive
	}

	now := s.now().UTC()
	local.LastLoginAt = &now
	if err := s.users.UpsertAuth(ctx, user.ID, *local); err != nil {
		s.logger.Warn("failed to record provider login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return s.CompleteAuthentication(ctx, user, device)
}

// CompleteAuthentication implements domain.AuthService
func (s *AuthServiceImpl) CompleteAuthentication(ctx context.Context, user *domain.User, device domain.DeviceInfo) (*domain.AuthResult, error) {
	if !user.CanAuthenticate() {
		return nil, domain.ErrUserInactive
	}

	session, outcome, err := s.sessions.Create(ctx, user.ID, device)
	if err != nil {
		return nil, err
	}
	if outcome.Degraded {
		s.logger.Warn("session created without cache entry", zap.String("user_id", user.ID))
	}

	accessToken, err := s.sign(user, session.SessionToken)
	if err != nil {
		if _, revokeErr := s.sessions.Revoke(ctx, session.SessionToken); revokeErr != nil {
			s.logger.Warn("failed to revoke orphaned session", zap.Error(revokeErr))
		}
		return nil, err
	}

	result := user.Sanitized()
	now := s.now().UTC()
	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record login", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		result.LoginCount++
		result.LastLoginAt = &now
	}
	s.invalidateProfile(ctx, user.ID)

	s.emit(ctx, domain.NewAuditEvent(domain.UserLoginEvent, user.ID).
		WithEmail(user.Email).
		WithSession(session.SessionToken).
		WithDevice(device))

	return &domain.AuthResult{
		User:         result,
		AccessToken:  accessToken,
		RefreshToken: session.RefreshToken,
		SessionID:    session.SessionToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// RefreshAccessToken implements domain.AuthService
func (s *AuthServiceImpl) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if refreshToken == "" {
		return nil, domain.ErrRefreshTokenInvalid
	}

	session, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrRefreshTokenInvalid
		}
		return nil, err
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.revokeQuietly(ctx, session.SessionToken)
			return nil, domain.ErrRefreshTokenInvalid
		}
		return nil, domain.NewStorageError("user lookup", err)
	}
	if !user.CanAuthenticate() {
		s.revokeQuietly(ctx, session.SessionToken)
		return nil, domain.ErrUserInactive
	}

	rotation, outcome, err := s.sessions.RotateRefresh(ctx, session.SessionToken, refreshToken)
	if err != nil {
		return nil, err
	}
	if outcome.Degraded {
		s.logger.Warn("refresh rotated without cache update", zap.String("user_id", user.ID))
	}

	accessToken, err := s.sign(user, session.SessionToken)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.NewAuditEvent(domain.TokenRefreshEvent, user.ID).WithSession(session.SessionToken))

	return &domain.AuthResult{
		User:         user.Sanitized(),
		AccessToken:  accessToken,
		RefreshToken: rotation.RefreshToken,
		SessionID:    session.SessionToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// Logout implements domain.AuthService
func (s *AuthServiceImpl) Logout(ctx context.Context, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}
	if _, err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}

	userID := ""
	if session != nil {
		userID = session.UserID
	}
	s.emit(ctx, domain.NewAuditEvent(domain.UserLogoutEvent, userID).WithSession(sessionID))
	return nil
}

// LogoutAll implements domain.AuthService
func (s *AuthServiceImpl) LogoutAll(ctx context.Context, userID string) (int, error) {
	revoked, _, err := s.sessions.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.emit(ctx, domain.NewAuditEvent(domain.UserLogoutAllEvent, userID).WithMetadata("revoked", revoked))
	return revoked, nil
}

// BeginOAuth implements domain.AuthService. An empty redirectURI selects the configured one.
func (s *AuthServiceImpl) BeginOAuth(ctx context.Context, redirectURI string) (*domain.OAuthAuthorization, error) {
	if s.oauth == nil {
		return nil, domain.ErrOAuthDisabled
	}
	if redirectURI == "" {
		redirectURI = s.oauthCfg.RedirectURI
	}

	issued, err := s.states.Issue(ctx, redirectURI)
	if err != nil {
		return nil, err
	}

	return &domain.OAuthAuthorization{
		AuthURL:     s.oauth.BuildAuthorizationURL(s.oauthCfg.ClientID, s.oauthCfg.Scope, issued.State, redirectURI),
		State:       issued.State,
		RedirectURI: redirectURI,
	}, nil
}

// HandleOAuthCallback implements domain.AuthService. The state is consumed
// before any provider call is made.
func (s *AuthServiceImpl) HandleOAuthCallback(ctx context.Context, code, state, redirectURI string, device domain.DeviceInfo) (*domain.AuthResult, error) {
	if s.oauth == nil {
		return nil, domain.ErrOAuthDisabled
	}
	if code == "" {
		return nil, domain.ErrMissingOAuthCode
	}
	if state == "" {
		return nil, domain.ErrInvalidOAuthState
	}

	recorded, err := s.states.Consume(ctx, state, redirectURI)
	if err != nil {
		return nil, err
	}
	if redirectURI == "" {
		redirectURI = recorded.RedirectURI
	}

	token, err := s.oauth.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}
	profile, err := s.oauth.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	uid := profile.UID
	if uid == "" {
		uid = token.UID
	}
	if uid == "" {
		return nil, domain.ErrProviderProfileNoUID
	}

	user, err := s.resolveOAuthUser(ctx, uid, profile)
	if err != nil {
		return nil, err
	}
	if !user.CanAuthenticate() {
		s.emit(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, user.ID).
			WithEmail(user.Email).
			WithProvider(domain.ProviderTuya).
			WithDevice(device).
			WithError(domain.ErrUserInactive))
		return nil, domain.ErrUserInactive
	}

	now := s.now().UTC()
	expiresAt := token.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	auth := domain.UserAuth{
		Provider:       domain.ProviderTuya,
		ProviderID:     uid,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: &expiresAt,
		LastLoginAt:    &now,
	}
	if err := s.users.UpsertAuth(ctx, user.ID, auth); err != nil {
		return nil, domain.NewStorageError("provider link", err)
	}
	if existing := user.AuthFor(domain.ProviderTuya); existing != nil {
		*existing = auth
	} else {
		user.Auth = append(user.Auth, auth)
	}
	s.invalidateProfile(ctx, user.ID)

	s.emit(ctx, domain.NewAuditEvent(domain.OAuthLinkedEvent, user.ID).
		WithEmail(user.Email).
		WithProvider(domain.ProviderTuya).
		WithDevice(device))

	return s.CompleteAuthentication(ctx, user, device)
}

// resolveOAuthUser finds the user by provider id, then by email, and creates
// one when neither matches.
func (s *AuthServiceImpl) resolveOAuthUser(ctx context.Context, uid string, profile *domain.ProviderProfile) (*domain.User, error) {
	user, err := s.users.FindByProvider(ctx, domain.ProviderTuya, uid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.NewStorageError("user lookup", err)
	}

	email := NormalizeEmail(profile.Email)
	if email != "" {
		user, err = s.users.FindByEmail(ctx, email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewStorageError("user lookup", err)
		}
	} else {
		email = uid + "@" + fallbackEmailDomain
	}

	displayName := profile.Nickname
	if displayName == "" {
		displayName = profile.Username
	}
	if displayName == "" {
		displayName = uid
	}

	user = &domain.User{
		Email:       email,
		DisplayName: displayName,
		Role:        domain.RoleUser,
		IsActive:    true,
		Profile: domain.UserProfile{
			AvatarURL: profile.AvatarURL,
			Timezone:  profile.Timezone,
		},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, domain.NewStorageError("user create", err)
		}
		// Lost a race with another callback for the same address.
		existing, findErr := s.users.FindByEmail(ctx, email)
		if findErr != nil {
			return nil, domain.NewStorageError("user lookup", findErr)
		}
		return existing, nil
	}
	s.emit(ctx, domain.NewAuditEvent(domain.UserRegistrationEvent, user.ID).
		WithEmail(email).
		WithProvider(domain.ProviderTuya))
	return user, nil
}

// RefreshProviderTokenIfNeeded implements domain.AuthService. It reports
// whether a refresh happened.
func (s *AuthServiceImpl) RefreshProviderTokenIfNeeded(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	auth := user.AuthFor(domain.ProviderTuya)
	if auth == nil {
		return false, domain.ErrProviderNotConnected
	}

	now := s.now()
	if auth.TokenExpiresAt != nil && auth.TokenExpiresAt.Sub(now) > providerRefreshThreshold {
		return false, nil
	}
	if s.oauth == nil {
		return false, domain.ErrOAuthDisabled
	}
	if auth.RefreshToken == "" {
		return false, domain.ErrProviderNoRefresh
	}

	token, err := s.oauth.RefreshProviderToken(ctx, auth.RefreshToken)
	if err != nil {
		return false, err
	}

	updated := *auth
	updated.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		updated.RefreshToken = token.RefreshToken
	}
	expiresAt := token.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(time.Duration(token.ExpiresIn) * time.Second).UTC()
	}
	updated.TokenExpiresAt = &expiresAt

	if err := s.users.UpsertAuth(ctx, userID, updated); err != nil {
		return false, domain.NewStorageError("provider token update", err)
	}
	s.invalidateProfile(ctx, userID)
	return true, nil
}

// DisconnectProvider implements domain.AuthService. A failed remote revoke is
// logged and the local record is removed regardless.
func (s *AuthServiceImpl) DisconnectProvider(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	auth := user.AuthFor(domain.ProviderTuya)
	if auth == nil {
		return domain.ErrProviderNotConnected
	}

	if s.oauth != nil && auth.AccessToken != "" {
		if err := s.oauth.Revoke(ctx, auth.AccessToken); err != nil {
			s.logger.Warn("provider revoke failed, removing local record anyway",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	if err := s.users.RemoveAuth(ctx, userID, domain.ProviderTuya); err != nil {
		return domain.NewStorageError("provider unlink", err)
	}
	s.invalidateProfile(ctx, userID)

	s.emit(ctx, domain.NewAuditEvent(domain.OAuthDisconnectedEvent, userID).WithProvider(domain.ProviderTuya))
	return nil
}

// GetCurrentUser implements domain.AuthService. Profiles are read through the
// profile cache and never carry auth records.
func (s *AuthServiceImpl) GetCurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	if s.profiles != nil {
		cached, ok, err := s.profiles.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("profile cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, domain.NewStorageError("user lookup", err)
	}

	clean := user.Sanitized()
	if s.profiles != nil {
		if err := s.profiles.Set(ctx, clean, s.profileCacheTTL); err != nil {
			s.logger.Warn("profile cache write failed", zap.Error(err))
		}
	}
	return clean, nil
}

// ChangePassword implements domain.AuthService. All existing sessions are
// revoked and a fresh one is opened for the calling device.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string, device domain.DeviceInfo) (*domain.AuthResult, error) {
	if err := ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	local := user.AuthFor(domain.ProviderLocal)
	if local == nil || !s.passwords.Verify(local.AccessToken, currentPassword) {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	local.AccessToken = hash
	local.ProviderID = user.Email
	if err := s.users.UpsertAuth(ctx, userID, *local); err != nil {
		return nil, domain.NewStorageError("password update", err)
	}

	if _, _, err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return nil, err
	}
	s.invalidateProfile(ctx, userID)

	s.emit(ctx, domain.NewAuditEvent(domain.PasswordChangeEvent, userID).WithDevice(device))

	return s.CompleteAuthentication(ctx, user, device)
}

func (s *AuthServiceImpl) sign(user *domain.User, sessionID string) (string, error) {
	token, err := s.tokens.Sign(domain.TokenClaims{
		UserID:    user.ID,
		SessionID: sessionID,
		Email:     user.Email,
		Role:      user.Role,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

func (s *AuthServiceImpl) revokeQuietly(ctx context.Context, sessionToken string) {
	if _, err := s.sessions.Revoke(ctx, sessionToken); err != nil {
		s.logger.Warn("failed to revoke session", zap.Error(err))
	}
}

func (s *AuthServiceImpl) invalidateProfile(ctx context.Context, userID string) {
	if s.profiles == nil {
		return
	}
	if err := s.profiles.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("profile cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *AuthServiceImpl) loginFailed(ctx context.Context, userID, email string, device domain.DeviceInfo, cause error) {
	s.emit(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, userID).
		WithEmail(email).
		WithProvider(domain.ProviderLocal).
		WithDevice(device).
		WithError(cause))
}

func (s *AuthServiceImpl) emit(ctx context.Context, event *domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn("audit event dropped", zap.String("event", string(event.EventType)), zap.Error(err))
	}
}
