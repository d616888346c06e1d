package mocks

import (
	"context"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
)

// MockUserRepository implements domain.UserRepository interface for testing
type MockUserRepository struct {
	CreateFunc         func(ctx context.Context, user *domain.User) error
	FindByIDFunc       func(ctx context.Context, id string) (*domain.User, error)
	FindByEmailFunc    func(ctx context.Context, email string) (*domain.User, error)
	FindByProviderFunc func(ctx context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error)
	UpdateFunc         func(ctx context.Context, user *domain.User) error
	UpsertAuthFunc     func(ctx context.Context, userID string, auth domain.UserAuth) error
	RemoveAuthFunc     func(ctx context.Context, userID string, provider domain.AuthProvider) error
	RecordLoginFunc    func(ctx context.Context, userID string, at time.Time) error
}

// NewMockUserRepository creates a new MockUserRepository with default behaviors
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

// Create creates a new user
func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	// Default behavior: assign an id and succeed
	if user.ID == "" {
		user.ID = "user-1"
	}
	return nil
}

// FindByID finds a user by ID
func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrUserNotFound
}

// FindByEmail finds a user by email
func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, domain.ErrUserNotFound
}

// FindByProvider finds a user by provider identity
func (m *MockUserRepository) FindByProvider(ctx context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error) {
	if m.FindByProviderFunc != nil {
		return m.FindByProviderFunc(ctx, provider, providerID)
	}
	return nil, domain.ErrUserNotFound
}

// Update updates a user
func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, user)
	}
	return nil
}

// UpsertAuth replaces or adds an auth record
func (m *MockUserRepository) UpsertAuth(ctx context.Context, userID string, auth domain.UserAuth) error {
	if m.UpsertAuthFunc != nil {
		return m.UpsertAuthFunc(ctx, userID, auth)
	}
	return nil
}

// RemoveAuth removes an auth record
func (m *MockUserRepository) RemoveAuth(ctx context.Context, userID string, provider domain.AuthProvider) error {
	if m.RemoveAuthFunc != nil {
		return m.RemoveAuthFunc(ctx, userID, provider)
	}
	return nil
}

// RecordLogin increments login statistics
func (m *MockUserRepository) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	if m.RecordLoginFunc != nil {
		return m.RecordLoginFunc(ctx, userID, at)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.UserRepository = (*MockUserRepository)(nil)
