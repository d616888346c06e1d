package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/repositories"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, env *testEnv, email, password string) *domain.AuthResult {
	t.Helper()
	result, err := env.svc.RegisterLocal(context.Background(), domain.RegisterRequest{
		Email:    email,
		Password: password,
		Device:   testDevice(),
	})
	require.NoError(t, err)
	return result
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered := register(t, env, "a@x.io", "Secret123!")
	require.NotNil(t, registered.User)
	assert.Equal(t, "a@x.io", registered.User.Email)
	assert.Equal(t, "a", registered.User.DisplayName)
	assert.Equal(t, domain.RoleUser, registered.User.Role)
	assert.Empty(t, registered.User.Auth, "results never carry auth records")
	assert.Equal(t, int64(900), registered.ExpiresIn)

	v := env.tokens.Validate(registered.AccessToken)
	require.True(t, v.Valid)
	assert.Equal(t, registered.User.ID, v.Claims.UserID)
	assert.Equal(t, registered.SessionID, v.Claims.SessionID)

	loggedIn, err := env.svc.LoginLocal(ctx, "a@x.io", "Secret123!", testDevice())
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
	assert.NotEqual(t, registered.SessionID, loggedIn.SessionID)

	_, err = env.svc.LoginLocal(ctx, "a@x.io", "nope", testDevice())
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, domain.KindAuthentication, domain.KindOf(err))

	stored, err := env.users.FindByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	local := stored.AuthFor(domain.ProviderLocal)
	require.NotNil(t, local)
	assert.NotEqual(t, "Secret123!", local.AccessToken, "passwords are stored hashed")
	assert.True(t, env.passwords.Verify(local.AccessToken, "Secret123!"))
}

func TestAuthService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "weak password", email: "a@x.io", password: "short", wantErr: domain.ErrWeakPassword},
		{name: "empty email", email: "", password: "Secret123!", wantErr: domain.ErrInvalidEmail},
		{name: "malformed email", email: "not-an-email", password: "Secret123!", wantErr: domain.ErrInvalidEmail},
		{name: "display form", email: "Alice <a@x.io>", password: "Secret123!", wantErr: domain.ErrInvalidEmail},
		{name: "password over bcrypt limit", email: "a@x.io", password: strings.Repeat("p", 73), wantErr: domain.ErrPasswordTooLong},
		{name: "multibyte password over limit", email: "a@x.io", password: strings.Repeat("é", 40), wantErr: domain.ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			result, err := env.svc.RegisterLocal(context.Background(), domain.RegisterRequest{
				Email:    tt.email,
				Password: tt.password,
			})

			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "a@x.io", "Secret123!")

	_, err := env.svc.RegisterLocal(context.Background(), domain.RegisterRequest{
		Email:    "A@X.io",
		Password: "Another123!",
	})

	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestAuthService_EmailNormalization(t *testing.T) {
	env := newTestEnv(t)

	registered := register(t, env, "  Alice@Example.COM ", "Secret123!")
	assert.Equal(t, "alice@example.com", registered.User.Email)

	_, err := env.svc.LoginLocal(context.Background(), "ALICE@example.com", "Secret123!", testDevice())
	assert.NoError(t, err)
}

func TestAuthService_LoginFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := register(t, env, "a@x.io", "Secret123!")

	_, err := env.svc.LoginLocal(ctx, "nobody@x.io", "Secret123!", testDevice())
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "unknown users look like bad passwords")
	failure := env.audit.Last(domain.UserLoginFailureEvent)
	require.NotNil(t, failure)
	assert.False(t, failure.Success)

	user, err := env.users.FindByID(ctx, registered.User.ID)
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, env.users.Update(ctx, user))

	_, err = env.svc.LoginLocal(ctx, "a@x.io", "Secret123!", testDevice())
	assert.ErrorIs(t, err, domain.ErrUserInactive)

	_, err = env.svc.LoginLocal(ctx, "a@x.io", "wrong-password", testDevice())
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "inactive state is not revealed without the password")
}

func TestAuthService_LoginWithoutLocalRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.users.Create(ctx, &domain.User{
		Email:    "oauth-only@x.io",
		Role:     domain.RoleUser,
		IsActive: true,
	}))

	_, err := env.svc.LoginLocal(ctx, "oauth-only@x.io", "Secret123!", testDevice())
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_LoginStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered := register(t, env, "a@x.io", "Secret123!")
	assert.Equal(t, int64(1), registered.User.LoginCount)

	env.clock.Advance(time.Hour)
	loggedIn, err := env.svc.LoginLocal(ctx, "a@x.io", "Secret123!", testDevice())
	require.NoError(t, err)
	assert.Equal(t, int64(2), loggedIn.User.LoginCount)

	stored, err := env.users.FindByID(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.LoginCount)
	require.NotNil(t, stored.LastLoginAt)
	assert.WithinDuration(t, env.clock.Now(), *stored.LastLoginAt, time.Second)
	local := stored.AuthFor(domain.ProviderLocal)
	require.NotNil(t, local)
	require.NotNil(t, local.LastLoginAt)
	assert.WithinDuration(t, env.clock.Now(), *local.LastLoginAt, time.Second)
}

func TestAuthService_AuditTrail(t *testing.T) {
	env := newTestEnv(t)

	result := register(t, env, "a@x.io", "Secret123!")
	require.NoError(t, env.svc.Logout(context.Background(), result.SessionID))

	assert.Equal(t, []domain.AuditEventType{
		domain.UserRegistrationEvent,
		domain.UserLoginEvent,
		domain.UserLogoutEvent,
	}, env.audit.Types())
	logout := env.audit.Last(domain.UserLogoutEvent)
	assert.Equal(t, result.User.ID, logout.UserID)
	assert.Equal(t, result.SessionID, logout.SessionID)
}

func TestAuthService_RefreshRotation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := register(t, env, "a@x.io", "Secret123!")

	refreshed, err := env.svc.RefreshAccessToken(ctx, registered.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, registered.SessionID, refreshed.SessionID)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)
	assert.True(t, env.tokens.Validate(refreshed.AccessToken).Valid)

	_, err = env.svc.RefreshAccessToken(ctx, registered.RefreshToken)
	assert.Equal(t, domain.KindAuthentication, domain.KindOf(err), "a rotated refresh token is rejected")

	_, err = env.svc.RefreshAccessToken(ctx, refreshed.RefreshToken)
	assert.NoError(t, err)

	_, err = env.svc.RefreshAccessToken(ctx, "")
	assert.ErrorIs(t, err, domain.ErrRefreshTokenInvalid)
}

func TestAuthService_ConcurrentRefreshHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	registered := register(t, env, "a@x.io", "Secret123!")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []error
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.RefreshAccessToken(context.Background(), registered.RefreshToken)
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.True(t,
			errors.Is(err, domain.ErrRefreshTokenReused) || errors.Is(err, domain.ErrRefreshTokenInvalid),
			"unexpected error %v", err)
	}
	assert.Equal(t, 1, successes)
}

func TestAuthService_RefreshForInactiveUserRevokes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := register(t, env, "a@x.io", "Secret123!")

	user, err := env.users.FindByID(ctx, registered.User.ID)
	require.NoError(t, err)
	user.IsSuspended = true
	require.NoError(t, env.users.Update(ctx, user))

	_, err = env.svc.RefreshAccessToken(ctx, registered.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUserInactive)

	_, err = env.store.Get(ctx, registered.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAuthService_Logout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := register(t, env, "a@x.io", "Secret123!")

	require.NoError(t, env.svc.Logout(ctx, registered.SessionID))

	_, err := env.store.Get(ctx, registered.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = env.svc.RefreshAccessToken(ctx, registered.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenInvalid)

	assert.NoError(t, env.svc.Logout(ctx, registered.SessionID), "logout is idempotent")
}

func TestAuthService_LogoutAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := register(t, env, "a@x.io", "Secret123!")
	second, err := env.svc.LoginLocal(ctx, "a@x.io", "Secret123!", testDevice())
	require.NoError(t, err)

	revoked, err := env.svc.LogoutAll(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, revoked)

	for _, id := range []string{registered.SessionID, second.SessionID} {
		_, err := env.store.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	}
	event := env.audit.Last(domain.UserLogoutAllEvent)
	require.NotNil(t, event)
	assert.Equal(t, 2, event.Metadata["revoked"])
}

func TestAuthService_BeginOAuth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	authz, err := env.svc.BeginOAuth(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, testRedirectURI, authz.RedirectURI)
	assert.Len(t, authz.State, 64)
	assert.Contains(t, authz.AuthURL, "client_id=client-123")
	assert.Contains(t, authz.AuthURL, "state="+authz.State)
	assert.Zero(t, env.oauth.NetworkCalls())

	custom, err := env.svc.BeginOAuth(ctx, "https://mobile.example.com/cb")
	require.NoError(t, err)
	assert.Equal(t, "https://mobile.example.com/cb", custom.RedirectURI)
	assert.NotEqual(t, authz.State, custom.State)
}

func TestAuthService_OAuthDisabled(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(AuthDeps{
		Users:     env.users,
		Sessions:  env.store,
		Passwords: env.passwords,
		Tokens:    env.tokens,
	})

	_, err := svc.BeginOAuth(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrOAuthDisabled)

	_, err = svc.HandleOAuthCallback(context.Background(), "code", "state", "", testDevice())
	assert.ErrorIs(t, err, domain.ErrOAuthDisabled)
}

func TestAuthService_OAuthCallbackCreatesUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	authz, err := env.svc.BeginOAuth(ctx, "")
	require.NoError(t, err)

	var exchangedRedirect string
	env.oauth.ExchangeCodeFunc = func(ctx context.Context, code, redirectURI string) (*domain.ProviderToken, error) {
		exchangedRedirect = redirectURI
		return &domain.ProviderToken{
			AccessToken:  "provider-at",
			RefreshToken: "provider-rt",
			ExpiresIn:    7200,
			UID:          "tuya-uid-1",
		}, nil
	}

	result, err := env.svc.HandleOAuthCallback(ctx, "auth-code", authz.State, "", testDevice())
	require.NoError(t, err)
	assert.Equal(t, testRedirectURI, exchangedRedirect, "the recorded redirect is used for the exchange")
	assert.Equal(t, "tuya@example.com", result.User.Email)
	assert.Equal(t, "Solar Fan", result.User.DisplayName)
	assert.Empty(t, result.User.Auth)

	stored, err := env.users.FindByProvider(ctx, domain.ProviderTuya, "tuya-uid-1")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, stored.ID)
	tuya := stored.AuthFor(domain.ProviderTuya)
	require.NotNil(t, tuya)
	assert.Equal(t, "provider-at", tuya.AccessToken)
	assert.Equal(t, "provider-rt", tuya.RefreshToken)
	require.NotNil(t, tuya.TokenExpiresAt)
	assert.WithinDuration(t, env.clock.Now().Add(2*time.Hour), *tuya.TokenExpiresAt, time.Second)

	assert.Contains(t, env.audit.Types(), domain.OAuthLinkedEvent)

	_, err = env.svc.HandleOAuthCallback(ctx, "auth-code", authz.State, "", testDevice())
	assert.ErrorIs(t, err, domain.ErrInvalidOAuthState, "a state is single use")
}

func TestAuthService_OAuthCallbackRejectsBeforeNetwork(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		state   string
		wantErr error
	}{
		{name: "never issued state", code: "auth-code", state: "never-issued", wantErr: domain.ErrInvalidOAuthState},
		{name: "empty state", code: "auth-code", state: "", wantErr: domain.ErrInvalidOAuthState},
		{name: "missing code", code: "", state: "whatever", wantErr: domain.ErrMissingOAuthCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			result, err := env.svc.HandleOAuthCallback(context.Background(), tt.code, tt.state, "", testDevice())

			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
			assert.Zero(t, env.oauth.NetworkCalls(), "no provider call may happen")
		})
	}
}

func TestAuthService_OAuthRedirectMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	authz, err := env.svc.BeginOAuth(ctx, "")
	require.NoError(t, err)

	_, err = env.svc.HandleOAuthCallback(ctx, "auth-code", authz.State, "https://evil.example.com/cb", testDevice())

	assert.ErrorIs(t, err, domain.ErrRedirectURIMismatch)
	assert.Zero(t, env.oauth.NetworkCalls())
}

func TestAuthService_OAuthLinksExistingEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	local := register(t, env, "tuya@example.com", "Secret123!")

	authz, err := env.svc.BeginOAuth(ctx, "")
	require.NoError(t, err)
	result, err := env.svc.HandleOAuthCallback(ctx, "auth-code", authz.State, "", testDevice())
	require.NoError(t, err)

	assert.Equal(t, local.User.ID, result.User.ID)
	stored, err := env.users.FindByID(ctx, local.User.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.AuthProvider{domain.ProviderLocal, domain.ProviderTuya}, stored.ConnectedProviders())

	_, err = env.svc.LoginLocal(ctx, "tuya@example.com", "Secret123!", testDevice())
	assert.NoError(t, err, "the local credential survives linking")
}

func TestAuthService_OAuthRepeatLoginReusesUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var ids []string
	for range 2 {
		authz, err := env.svc.BeginOAuth(ctx, "")
		require.NoError(t, err)
		result, err := env.svc.HandleOAuthCallback(ctx, "auth-code", authz.State, "", testDevice())
		require.NoError(t, err)
		ids = append(ids, result.User.ID)
	}

	assert.Equal(t, ids[0], ids[1])
	stored, err := env.users.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, stored.Auth, 1, "one record per provider")
}

func TestAuthService_OAuthFallbackEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.oauth.FetchProfileFunc = func(ctx context.Context, accessToken string) (*domain.ProviderProfile, error) {
		return &domain.ProviderProfile{UID: "u-9", Username: "meter-reader"}, nil
	}

	authz, err := env.svc.BeginOAuth(ctx, "")
	require.NoError(t, err)
	result, err := env.svc.HandleOAuthCallback(ctx, "auth-code", authz.State, "", testDevice())
	require.NoError(t, err)

	assert.Equal(t, "u-9@tuya.local", result.User.Email)
	assert.Equal(t, "meter-reader", result.User.DisplayName)
}

func TestAuthService_OAuthProfileWithoutUID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.oauth.ExchangeCodeFunc = func(ctx context.Context, code, redirectURI string) (*domain.ProviderToken, error) {
		return &domain.ProviderToken{AccessToken: "at", ExpiresIn: 60}, nil
	}
	env.oauth.FetchProfileFunc = func(ctx context.Context, accessToken string) (*domain.ProviderProfile, error) {
		return &domain.ProviderProfile{Email: "x@y.z"}, nil
	}

	authz, err := env.svc.BeginOAuth(ctx, "")
	require.NoError(t, err)
	_, err = env.svc.HandleOAuthCallback(ctx, "auth-code", authz.State, "", testDevice())

	assert.ErrorIs(t, err, domain.ErrProviderProfileNoUID)
}

// linkProvider attaches a provider record expiring at expiresAt to a fresh user
func linkProvider(t *testing.T, env *testEnv, expiresAt time.Time) string {
	t.Helper()
	ctx := context.Background()
	user := &domain.User{Email: "linked@x.io", Role: domain.RoleUser, IsActive: true}
	require.NoError(t, env.users.Create(ctx, user))
	require.NoError(t, env.users.UpsertAuth(ctx, user.ID, domain.UserAuth{
		Provider:       domain.ProviderTuya,
		ProviderID:     "tuya-uid-1",
		AccessToken:    "provider-at",
		RefreshToken:   "provider-rt",
		TokenExpiresAt: &expiresAt,
	}))
	return user.ID
}

func TestAuthService_RefreshProviderTokenIfNeeded(t *testing.T) {
	tests := []struct {
		name          string
		expiresIn     time.Duration
		wantRefreshed bool
	}{
		{name: "far from expiry", expiresIn: time.Hour, wantRefreshed: false},
		{name: "inside threshold", expiresIn: 2 * time.Minute, wantRefreshed: true},
		{name: "already expired", expiresIn: -time.Minute, wantRefreshed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			userID := linkProvider(t, env, env.clock.Now().Add(tt.expiresIn))

			refreshed, err := env.svc.RefreshProviderTokenIfNeeded(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRefreshed, refreshed)

			stored, err := env.users.FindByID(ctx, userID)
			require.NoError(t, err)
			tuya := stored.AuthFor(domain.ProviderTuya)
			require.NotNil(t, tuya)
			if tt.wantRefreshed {
				assert.Equal(t, int32(1), env.oauth.RefreshCalls.Load())
				assert.Equal(t, "provider-at-refreshed", tuya.AccessToken)
				assert.Equal(t, "provider-rt-refreshed", tuya.RefreshToken)
			} else {
				assert.Zero(t, env.oauth.RefreshCalls.Load())
				assert.Equal(t, "provider-at", tuya.AccessToken)
			}
		})
	}
}

func TestAuthService_RefreshProviderTokenNotConnected(t *testing.T) {
	env := newTestEnv(t)
	registered := register(t, env, "a@x.io", "Secret123!")

	_, err := env.svc.RefreshProviderTokenIfNeeded(context.Background(), registered.User.ID)

	assert.ErrorIs(t, err, domain.ErrProviderNotConnected)
}

func TestAuthService_DisconnectSurvivesRemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := linkProvider(t, env, env.clock.Now().Add(time.Hour))
	env.oauth.RevokeFunc = func(ctx context.Context, accessToken string) error {
		return domain.NewExternalAPIError(503, "provider unavailable", nil)
	}

	require.NoError(t, env.svc.DisconnectProvider(ctx, userID))
	assert.Equal(t, int32(1), env.oauth.RevokeCalls.Load())

	stored, err := env.users.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, stored.AuthFor(domain.ProviderTuya))
	assert.Contains(t, env.audit.Types(), domain.OAuthDisconnectedEvent)

	err = env.svc.DisconnectProvider(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrProviderNotConnected)
}

func TestAuthService_GetCurrentUserUsesProfileCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := register(t, env, "a@x.io", "Secret123!")
	key := repositories.ProfileKeyPrefix + registered.User.ID

	user, err := env.svc.GetCurrentUser(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", user.Email)
	assert.Empty(t, user.Auth)
	assert.True(t, env.mr.Exists(key))
	assert.Equal(t, 5*time.Minute, env.mr.TTL(key))

	cached, err := env.svc.GetCurrentUser(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, cached.ID)

	_, err = env.svc.LoginLocal(ctx, "a@x.io", "Secret123!", testDevice())
	require.NoError(t, err)
	assert.False(t, env.mr.Exists(key), "a login invalidates the cached profile")

	_, err = env.svc.GetCurrentUser(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAuthService_GetCurrentUserIgnoresCacheErrors(t *testing.T) {
	env := newTestEnv(t)
	registered := register(t, env, "a@x.io", "Secret123!")
	profiles := mocks.NewMockProfileCache()
	profiles.GetFunc = func(ctx context.Context, userID string) (*domain.User, bool, error) {
		return nil, false, errors.New("redis down")
	}
	svc := NewAuthService(AuthDeps{
		Users:     env.users,
		Sessions:  env.store,
		Passwords: env.passwords,
		Tokens:    env.tokens,
		Profiles:  profiles,
	})

	user, err := svc.GetCurrentUser(context.Background(), registered.User.ID)

	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, user.ID)
}

func TestAuthService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := register(t, env, "a@x.io", "Secret123!")

	_, err := env.svc.ChangePassword(ctx, registered.User.ID, "wrong-current", "NewSecret456!", testDevice())
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = env.svc.ChangePassword(ctx, registered.User.ID, "Secret123!", "short", testDevice())
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	result, err := env.svc.ChangePassword(ctx, registered.User.ID, "Secret123!", "NewSecret456!", testDevice())
	require.NoError(t, err)
	assert.NotEqual(t, registered.SessionID, result.SessionID)

	_, err = env.store.Get(ctx, registered.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "existing sessions are revoked")
	_, err = env.store.Get(ctx, result.SessionID)
	assert.NoError(t, err)

	_, err = env.svc.LoginLocal(ctx, "a@x.io", "Secret123!", testDevice())
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = env.svc.LoginLocal(ctx, "a@x.io", "NewSecret456!", testDevice())
	assert.NoError(t, err)
	assert.Contains(t, env.audit.Types(), domain.PasswordChangeEvent)
}

func TestNormalizeEmailAndValidatePassword(t *testing.T) {
	assert.Equal(t, "bob@x.io", NormalizeEmail("  BoB@X.io\t"))
	assert.ErrorIs(t, ValidatePassword("1234567"), domain.ErrWeakPassword)
	assert.NoError(t, ValidatePassword("12345678"))
	assert.NoError(t, ValidatePassword(strings.Repeat("x", MaxPasswordBytes)))
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("x", MaxPasswordBytes+1)), domain.ErrPasswordTooLong)
}
