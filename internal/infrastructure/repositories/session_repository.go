package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"gorm.io/gorm"
)

// SessionRepositoryImpl implements domain.SessionRepository using GORM
type SessionRepositoryImpl struct {
	db *gorm.DB
}

// DBSession represents the database model for Session
type DBSession struct {
	SessionToken   string    `gorm:"primaryKey;size:128"`
	UserID         string    `gorm:"size:36;not null;index"`
	RefreshToken   string    `gorm:"size:128;not null;uniqueIndex"`
	UserAgent      string    `gorm:"size:512"`
	IPAddress      string    `gorm:"size:64"`
	Platform       string    `gorm:"size:64"`
	ExpiresAt      time.Time `gorm:"not null;index"`
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// TableName returns the table name for GORM
func (DBSession) TableName() string {
	return "user_sessions"
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *gorm.DB) domain.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

// Create implements domain.SessionRepository
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Create(sessionToDB(session)).Error
}

// FindByID implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, sessionToken string) (*domain.Session, error) {
	return r.findOne(ctx, "session_token = ?", sessionToken)
}

// FindByRefreshToken implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return r.findOne(ctx, "refresh_token = ?", refreshToken)
}

func (r *SessionRepositoryImpl) findOne(ctx context.Context, query string, arg string) (*domain.Session, error) {
	var row DBSession
	if err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return sessionToDomain(&row), nil
}

// FindByUser implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	var rows []DBSession
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	sessions := make([]*domain.Session, 0, len(rows))
	for i := range rows {
		sessions = append(sessions, sessionToDomain(&rows[i]))
	}
	return sessions, nil
}

// UpdateLastAccessed implements domain.SessionRepository
func (r *SessionRepositoryImpl) UpdateLastAccessed(ctx context.Context, sessionToken string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&DBSession{}).
		Where("session_token = ?", sessionToken).
		UpdateColumn("last_accessed_at", at.UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// RotateRefreshToken implements domain.SessionRepository as a single
// conditional UPDATE; only one caller holding previous can match.
func (r *SessionRepositoryImpl) RotateRefreshToken(ctx context.Context, sessionToken, previous, next string, expiresAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&DBSession{}).
		Where("session_token = ? AND refresh_token = ?", sessionToken, previous).
		UpdateColumns(map[string]interface{}{
			"refresh_token":    next,
			"expires_at":       expiresAt.UTC(),
			"last_accessed_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return domain.ErrRefreshTokenReused
	}
	return nil
}

// Delete implements domain.SessionRepository. Deleting a missing session is not an error.
func (r *SessionRepositoryImpl) Delete(ctx context.Context, sessionToken string) error {
	return r.db.WithContext(ctx).Where("session_token = ?", sessionToken).Delete(&DBSession{}).Error
}

// DeleteMany implements domain.SessionRepository
func (r *SessionRepositoryImpl) DeleteMany(ctx context.Context, sessionTokens []string) error {
	if len(sessionTokens) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("session_token IN ?", sessionTokens).Delete(&DBSession{}).Error
}

// DeleteExpired implements domain.SessionRepository
func (r *SessionRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", now.UTC()).Delete(&DBSession{})
	return result.RowsAffected, result.Error
}

func sessionToDB(s *domain.Session) *DBSession {
	return &DBSession{
		SessionToken:   s.SessionToken,
		UserID:         s.UserID,
		RefreshToken:   s.RefreshToken,
		UserAgent:      s.DeviceInfo.UserAgent,
		IPAddress:      s.DeviceInfo.IPAddress,
		Platform:       s.DeviceInfo.Platform,
		ExpiresAt:      s.ExpiresAt.UTC(),
		CreatedAt:      s.CreatedAt.UTC(),
		LastAccessedAt: s.LastAccessedAt.UTC(),
	}
}

func sessionToDomain(row *DBSession) *domain.Session {
	return &domain.Session{
		SessionToken: row.SessionToken,
		UserID:       row.UserID,
		RefreshToken: row.RefreshToken,
		DeviceInfo: domain.DeviceInfo{
			UserAgent: row.UserAgent,
			IPAddress: row.IPAddress,
			Platform:  row.Platform,
		},
		ExpiresAt:      row.ExpiresAt,
		CreatedAt:      row.CreatedAt,
		LastAccessedAt: row.LastAccessedAt,
	}
}
