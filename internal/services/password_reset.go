package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"go.uber.org/zap"
)

// ResetTokenPurpose namespaces password reset tokens: reset:password:<token>
const ResetTokenPurpose = "reset:password"

const resetTokenBytes = 32

// ResetDeps groups the collaborators of the password reset flow
type ResetDeps struct {
	Users     domain.UserRepository
	Tokens    domain.TransientTokenStore
	Secrets   domain.TokenService
	Passwords domain.PasswordService
	Sessions  domain.SessionStore
	Notifier  domain.NotificationService
	Profiles  domain.ProfileCache
	Audit     domain.AuditLogger
	Logger    *zap.Logger
	TokenTTL  time.Duration
	URLBase   string
}

// PasswordResetServiceImpl implements domain.PasswordResetService
type PasswordResetServiceImpl struct {
	users     domain.UserRepository
	tokens    domain.TransientTokenStore
	secrets   domain.TokenService
	passwords domain.PasswordService
	sessions  domain.SessionStore
	notifier  domain.NotificationService
	profiles  domain.ProfileCache
	audit     domain.AuditLogger
	logger    *zap.Logger
	tokenTTL  time.Duration
	urlBase   string
}

// NewPasswordResetService creates the forgot/reset password flow
func NewPasswordResetService(deps ResetDeps) domain.PasswordResetService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PasswordResetServiceImpl{
		users:     deps.Users,
		tokens:    deps.Tokens,
		secrets:   deps.Secrets,
		passwords: deps.Passwords,
		sessions:  deps.Sessions,
		notifier:  deps.Notifier,
		profiles:  deps.Profiles,
		audit:     deps.Audit,
		logger:    logger.Named("password_reset"),
		tokenTTL:  ttl,
		urlBase:   deps.URLBase,
	}
}

// RequestReset implements domain.PasswordResetService. Unknown addresses and
// accounts without a local password succeed silently.
func (s *PasswordResetServiceImpl) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return domain.NewStorageError("user lookup", err)
	}
	if user.AuthFor(domain.ProviderLocal) == nil {
		return nil
	}

	token, err := s.secrets.GenerateOpaqueSecret(resetTokenBytes)
	if err != nil {
		return err
	}
	if err := s.tokens.PutTransientToken(ctx, ResetTokenPurpose, token, user.ID, s.tokenTTL); err != nil {
		return domain.NewStorageError("reset token store", err)
	}

	emailErr := s.notifier.SendEmail(ctx, user.Email, "Reset your password", s.resetEmailBody(token))
	if emailErr != nil {
		s.logger.Warn("reset email not sent", zap.String("user_id", user.ID), zap.Error(emailErr))
		// Nobody can use a token that never reached its owner.
		if err := s.tokens.DeleteTransientToken(ctx, ResetTokenPurpose, token); err != nil {
			s.logger.Warn("failed to discard undelivered reset token", zap.Error(err))
		}
	}
	if user.Profile.Phone != "" {
		msg := "A password reset was requested for your account. If this was not you, ignore the email and contact support."
		if err := s.notifier.SendSMS(ctx, user.Profile.Phone, msg); err != nil {
			s.logger.Warn("reset sms not sent", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	event := domain.NewAuditEvent(domain.PasswordResetRequestEvent, user.ID).WithEmail(user.Email)
	if emailErr != nil {
		event.WithError(emailErr)
	}
	s.emit(ctx, event)
	return nil
}

// ValidateResetToken reports whether token is a live reset token without consuming it
func (s *PasswordResetServiceImpl) ValidateResetToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	_, ok, err := s.tokens.GetTransientToken(ctx, ResetTokenPurpose, token)
	if err != nil {
		return false, domain.NewStorageError("reset token read", err)
	}
	return ok, nil
}

// ResetPassword implements domain.PasswordResetService. The token is single
// use and every session of the user is revoked.
func (s *PasswordResetServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if token == "" {
		return domain.ErrResetTokenInvalid
	}

	// Hash first so a rejected password leaves the token usable
	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	userID, ok, err := s.tokens.ConsumeTransientToken(ctx, ResetTokenPurpose, token)
	if err != nil {
		return domain.NewStorageError("reset token read", err)
	}
	if !ok {
		return domain.ErrResetTokenInvalid
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrResetTokenInvalid
		}
		return domain.NewStorageError("user lookup", err)
	}

	auth := domain.UserAuth{Provider: domain.ProviderLocal, ProviderID: user.Email, AccessToken: hash}
	if existing := user.AuthFor(domain.ProviderLocal); existing != nil {
		auth.LastLoginAt = existing.LastLoginAt
	}
	if err := s.users.UpsertAuth(ctx, user.ID, auth); err != nil {
		return domain.NewStorageError("password update", err)
	}

	revoked, _, err := s.sessions.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if s.profiles != nil {
		if err := s.profiles.Invalidate(ctx, user.ID); err != nil {
			s.logger.Warn("profile cache invalidation failed", zap.Error(err))
		}
	}

	s.emit(ctx, domain.NewAuditEvent(domain.PasswordResetEvent, user.ID).
		WithEmail(user.Email).
		WithMetadata("revoked_sessions", revoked))
	return nil
}

func (s *PasswordResetServiceImpl) resetEmailBody(token string) string {
	link := s.urlBase
	if link == "" {
		return fmt.Sprintf("Use this code to reset your password: %s\n\nIt expires in %s.", token, s.tokenTTL)
	}
	if u, err := url.Parse(link); err == nil {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
		link = u.String()
	} else {
		link += "?token=" + url.QueryEscape(token)
	}
	return fmt.Sprintf("Open the link below to reset your password:\n\n%s\n\nIt expires in %s. If you did not ask for this, ignore this email.", link, s.tokenTTL)
}

func (s *PasswordResetServiceImpl) emit(ctx context.Context, event *domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn("audit event dropped", zap.Error(err))
	}
}
