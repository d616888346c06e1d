package services

import (
	"context"
	"errors"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"go.uber.org/zap"
)

// sessionSecretBytes is the entropy of session and refresh tokens
const sessionSecretBytes = 32

// SessionStoreImpl implements domain.SessionStore over an authoritative
// SessionRepository and a best-effort SessionCache.
type SessionStoreImpl struct {
	repo    domain.SessionRepository
	cache   domain.SessionCache
	secrets domain.TokenService
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionStore creates a session store whose sessions live for ttl
func NewSessionStore(repo domain.SessionRepository, cache domain.SessionCache, secrets domain.TokenService, ttl time.Duration, logger *zap.Logger) domain.SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStoreImpl{
		repo:    repo,
		cache:   cache,
		secrets: secrets,
		ttl:     ttl,
		logger:  logger.Named("session_store"),
		now:     time.Now,
	}
}

// Create implements domain.SessionStore. The persistent write is required;
// the cache write is not.
func (s *SessionStoreImpl) Create(ctx context.Context, userID string, device domain.DeviceInfo) (*domain.Session, domain.WriteOutcome, error) {
	var outcome domain.WriteOutcome

	sessionToken, err := s.secrets.GenerateOpaqueSecret(sessionSecretBytes)
	if err != nil {
		return nil, outcome, err
	}
	refreshToken, err := s.secrets.GenerateOpaqueSecret(sessionSecretBytes)
	if err != nil {
		return nil, outcome, err
	}

	now := s.now().UTC()
	session := &domain.Session{
		SessionToken:   sessionToken,
		UserID:         userID,
		RefreshToken:   refreshToken,
		DeviceInfo:     device,
		ExpiresAt:      now.Add(s.ttl),
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, outcome, domain.NewStorageError("session create", err)
	}

	if err := s.cache.Set(ctx, session, session.RemainingTTL(now)); err != nil {
		outcome = s.degraded("session create", err)
	}
	return session, outcome, nil
}

// Get implements domain.SessionStore. Expired sessions are removed from both
// layers and reported as ErrSessionNotFound.
func (s *SessionStoreImpl) Get(ctx context.Context, sessionToken string) (*domain.Session, error) {
	now := s.now()

	session, err := s.cache.Get(ctx, sessionToken)
	switch {
	case err == nil:
		if session.IsExpired(now) {
			s.invalidate(ctx, sessionToken)
			return nil, domain.ErrSessionNotFound
		}
		return session, nil
	case !errors.Is(err, domain.ErrSessionNotFound):
		s.logger.Warn("session cache read failed, falling back to store", zap.Error(err))
	}

	session, err = s.repo.FindByID(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.NewStorageError("session read", err)
	}

	ttl := session.RemainingTTL(now)
	if ttl <= 0 {
		s.invalidate(ctx, sessionToken)
		return nil, domain.ErrSessionNotFound
	}
	if err := s.cache.Set(ctx, session, ttl); err != nil {
		s.logger.Warn("session cache repopulation failed", zap.Error(err))
	}
	return session, nil
}

// FindByRefreshToken implements domain.SessionStore. It reads the persistent
// store only, since the cache is not indexed by refresh token.
func (s *SessionStoreImpl) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	session, err := s.repo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.NewStorageError("session read", err)
	}
	if session.IsExpired(s.now()) {
		s.invalidate(ctx, session.SessionToken)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Touch implements domain.SessionStore. Every step is best-effort.
func (s *SessionStoreImpl) Touch(ctx context.Context, sessionToken string) domain.WriteOutcome {
	var outcome domain.WriteOutcome
	now := s.now().UTC()

	if err := s.repo.UpdateLastAccessed(ctx, sessionToken, now); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return outcome
		}
		s.logger.Warn("session touch failed", zap.Error(err))
		outcome.Degraded = true
	}

	session, err := s.cache.Get(ctx, sessionToken)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			outcome = s.degraded("session touch", err)
		}
		return outcome
	}

	session.LastAccessedAt = now
	ttl := session.RemainingTTL(now)
	if ttl <= 0 {
		if err := s.cache.Delete(ctx, sessionToken); err != nil {
			outcome = s.degraded("session touch", err)
		}
		return outcome
	}
	if err := s.cache.Set(ctx, session, ttl); err != nil {
		outcome = s.degraded("session touch", err)
	}
	return outcome
}

// RotateRefresh implements domain.SessionStore. The persistent swap is
// conditional on previousRefresh, so of two concurrent callers holding the
// same token exactly one succeeds and the other gets ErrRefreshTokenReused.
func (s *SessionStoreImpl) RotateRefresh(ctx context.Context, sessionToken, previousRefresh string) (*domain.RefreshRotation, domain.WriteOutcome, error) {
	var outcome domain.WriteOutcome

	next, err := s.secrets.GenerateOpaqueSecret(sessionSecretBytes)
	if err != nil {
		return nil, outcome, err
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)

	if err := s.repo.RotateRefreshToken(ctx, sessionToken, previousRefresh, next, expiresAt); err != nil {
		if errors.Is(err, domain.ErrRefreshTokenReused) {
			return nil, outcome, err
		}
		return nil, outcome, domain.NewStorageError("refresh rotation", err)
	}

	rotation := &domain.RefreshRotation{RefreshToken: next, ExpiresAt: expiresAt}

	session, err := s.repo.FindByID(ctx, sessionToken)
	if err != nil {
		// Drop the stale entry rather than leave the previous token cached.
		if delErr := s.cache.Delete(ctx, sessionToken); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return rotation, s.degraded("refresh rotation", err), nil
	}
	if err := s.cache.Set(ctx, session, session.RemainingTTL(now)); err != nil {
		outcome = s.degraded("refresh rotation", err)
	}
	return rotation, outcome, nil
}

// Revoke implements domain.SessionStore. Revoking an unknown session is not an error.
func (s *SessionStoreImpl) Revoke(ctx context.Context, sessionToken string) (domain.WriteOutcome, error) {
	var outcome domain.WriteOutcome
	if err := s.repo.Delete(ctx, sessionToken); err != nil {
		return outcome, domain.NewStorageError("session revoke", err)
	}
	if err := s.cache.Delete(ctx, sessionToken); err != nil {
		outcome = s.degraded("session revoke", err)
	}
	return outcome, nil
}

// RevokeAllForUser implements domain.SessionStore and reports how many sessions were removed
func (s *SessionStoreImpl) RevokeAllForUser(ctx context.Context, userID string) (int, domain.WriteOutcome, error) {
	var outcome domain.WriteOutcome

	sessions, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return 0, outcome, domain.NewStorageError("session list", err)
	}
	if len(sessions) == 0 {
		return 0, outcome, nil
	}

	tokens := make([]string, len(sessions))
	for i, session := range sessions {
		tokens[i] = session.SessionToken
	}
	if err := s.repo.DeleteMany(ctx, tokens); err != nil {
		return 0, outcome, domain.NewStorageError("session revoke all", err)
	}
	if err := s.cache.Delete(ctx, tokens...); err != nil {
		outcome = s.degraded("session revoke all", err)
	}
	return len(tokens), outcome, nil
}

// SweepExpired implements domain.SessionStore. Cache entries expire on their own.
func (s *SessionStoreImpl) SweepExpired(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, domain.NewStorageError("session sweep", err)
	}
	return removed, nil
}

// invalidate removes a session from both layers, logging failures
func (s *SessionStoreImpl) invalidate(ctx context.Context, sessionToken string) {
	if err := s.repo.Delete(ctx, sessionToken); err != nil {
		s.logger.Warn("failed to delete expired session", zap.Error(err))
	}
	if err := s.cache.Delete(ctx, sessionToken); err != nil {
		s.logger.Warn("failed to evict expired session", zap.Error(err))
	}
}

func (s *SessionStoreImpl) degraded(op string, err error) domain.WriteOutcome {
	s.logger.Warn("session cache write failed", zap.String("op", op), zap.Error(err))
	return domain.WriteOutcome{Degraded: true, CacheErr: err}
}
