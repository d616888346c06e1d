package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// DBUser represents the database model for User (with GORM tags)
type DBUser struct {
	ID          string       `gorm:"primaryKey;size:36"`
	Email       string       `gorm:"uniqueIndex;size:255"`
	DisplayName string       `gorm:"size:255"`
	Role        string       `gorm:"index;size:64"`
	IsActive    bool         `gorm:"index"`
	IsSuspended bool         `gorm:"index"`
	FirstName   string       `gorm:"size:128"`
	LastName    string       `gorm:"size:128"`
	Phone       string       `gorm:"size:32"`
	AvatarURL   string       `gorm:"size:512"`
	Timezone    string       `gorm:"size:64"`
	Locale      string       `gorm:"size:16"`
	LoginCount  int64        `gorm:"not null;default:0"`
	LastLoginAt *time.Time
	Auth        []DBUserAuth `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time    `gorm:"index"`
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (DBUser) TableName() string {
	return "users"
}

// DBUserAuth is one provider credential row. (user_id, provider) is unique.
type DBUserAuth struct {
	ID             uint       `gorm:"primaryKey"`
	UserID         string     `gorm:"size:36;not null;uniqueIndex:idx_user_auth_provider"`
	Provider       string     `gorm:"size:32;not null;uniqueIndex:idx_user_auth_provider;index:idx_user_auth_identity"`
	ProviderID     string     `gorm:"size:255;not null;index:idx_user_auth_identity"`
	AccessToken    string     `gorm:"type:text"`
	RefreshToken   string     `gorm:"type:text"`
	TokenExpiresAt *time.Time
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM
func (DBUserAuth) TableName() string {
	return "user_auths"
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create implements domain.UserRepository. Auth records on user are inserted with it.
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	dbUser := r.domainToDB(user)
	if err := r.db.WithContext(ctx).Create(dbUser).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.ErrUserAlreadyExists
		}
		return err
	}
	user.CreatedAt = dbUser.CreatedAt
	user.UpdatedAt = dbUser.UpdatedAt
	return nil
}

// FindByID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByProvider implements domain.UserRepository
func (r *UserRepositoryImpl) FindByProvider(ctx context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error) {
	var auth DBUserAuth
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", string(provider), providerID).
		First(&auth).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.FindByID(ctx, auth.UserID)
}

func (r *UserRepositoryImpl) findOne(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Preload("Auth", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Where(query, arg).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser), nil
}

// userColumns are the columns Update writes; auth rows and login stats have their own writers
var userColumns = []string{
	"email", "display_name", "role", "is_active", "is_suspended",
	"first_name", "last_name", "phone", "avatar_url", "timezone", "locale",
	"updated_at",
}

// Update implements domain.UserRepository
func (r *UserRepositoryImpl) Update(ctx context.Context, user *domain.User) error {
	dbUser := r.domainToDB(user)
	dbUser.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).Model(&DBUser{ID: user.ID}).
		Select(userColumns).
		Updates(dbUser)
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return domain.ErrUserAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	user.UpdatedAt = dbUser.UpdatedAt
	return nil
}

// UpsertAuth implements domain.UserRepository. The matched row is rebuilt
// from auth as a whole; no field of the previous record survives.
func (r *UserRepositoryImpl) UpsertAuth(ctx context.Context, userID string, auth domain.UserAuth) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&DBUser{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrUserNotFound
		}

		row := authToDB(userID, auth)
		var existing DBUserAuth
		err := tx.Where("user_id = ? AND provider = ?", userID, string(auth.Provider)).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(row).Error
		case err != nil:
			return err
		}

		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
		return tx.Save(row).Error
	})
}

// RemoveAuth implements domain.UserRepository. Removing a missing record is not an error.
func (r *UserRepositoryImpl) RemoveAuth(ctx context.Context, userID string, provider domain.AuthProvider) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, string(provider)).
		Delete(&DBUserAuth{}).Error
}

// RecordLogin implements domain.UserRepository. The counter is incremented in SQL.
func (r *UserRepositoryImpl) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&DBUser{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"login_count":   gorm.Expr("login_count + ?", 1),
			"last_login_at": at.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// domainToDB converts domain user to database user
func (r *UserRepositoryImpl) domainToDB(user *domain.User) *DBUser {
	dbUser := &DBUser{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		IsActive:    user.IsActive,
		IsSuspended: user.IsSuspended,
		FirstName:   user.Profile.FirstName,
		LastName:    user.Profile.LastName,
		Phone:       user.Profile.Phone,
		AvatarURL:   user.Profile.AvatarURL,
		Timezone:    user.Profile.Timezone,
		Locale:      user.Profile.Locale,
		LoginCount:  user.LoginCount,
		LastLoginAt: user.LastLoginAt,
	}
	for _, a := range user.Auth {
		dbUser.Auth = append(dbUser.Auth, *authToDB(user.ID, a))
	}
	return dbUser
}

// dbToDomain converts database user to domain user
func (r *UserRepositoryImpl) dbToDomain(dbUser *DBUser) *domain.User {
	user := &domain.User{
		ID:          dbUser.ID,
		Email:       dbUser.Email,
		DisplayName: dbUser.DisplayName,
		Role:        dbUser.Role,
		IsActive:    dbUser.IsActive,
		IsSuspended: dbUser.IsSuspended,
		Profile: domain.UserProfile{
			FirstName: dbUser.FirstName,
			LastName:  dbUser.LastName,
			Phone:     dbUser.Phone,
			AvatarURL: dbUser.AvatarURL,
			Timezone:  dbUser.Timezone,
			Locale:    dbUser.Locale,
		},
		LoginCount:  dbUser.LoginCount,
		LastLoginAt: dbUser.LastLoginAt,
		CreatedAt:   dbUser.CreatedAt,
		UpdatedAt:   dbUser.UpdatedAt,
	}
	for _, a := range dbUser.Auth {
		user.Auth = append(user.Auth, domain.UserAuth{
			Provider:       domain.AuthProvider(a.Provider),
			ProviderID:     a.ProviderID,
			AccessToken:    a.AccessToken,
			RefreshToken:   a.RefreshToken,
			TokenExpiresAt: a.TokenExpiresAt,
			LastLoginAt:    a.LastLoginAt,
		})
	}
	return user
}

func authToDB(userID string, a domain.UserAuth) *DBUserAuth {
	return &DBUserAuth{
		UserID:         userID,
		Provider:       string(a.Provider),
		ProviderID:     a.ProviderID,
		AccessToken:    a.AccessToken,
		RefreshToken:   a.RefreshToken,
		TokenExpiresAt: a.TokenExpiresAt,
		LastLoginAt:    a.LastLoginAt,
	}
}

// isDuplicateKey recognises unique violations whether or not the dialector translates them
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}
