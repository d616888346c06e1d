package mocks

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
)

// MockTokenService implements domain.TokenService interface for testing.
// The default token format is "token|<userID>|<sessionID>|<role>|<email>".
type MockTokenService struct {
	SignFunc                 func(claims domain.TokenClaims) (string, error)
	ValidateFunc             func(token string) domain.TokenValidation
	GenerateOpaqueSecretFunc func(byteLen int) (string, error)
	TTL                      time.Duration

	counter atomic.Int64
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{TTL: 15 * time.Minute}
}

// Sign signs a set of claims
func (m *MockTokenService) Sign(claims domain.TokenClaims) (string, error) {
	if m.SignFunc != nil {
		return m.SignFunc(claims)
	}
	return strings.Join([]string{"token", claims.UserID, claims.SessionID, claims.Role, claims.Email}, "|"), nil
}

// Validate parses tokens produced by the default Sign
func (m *MockTokenService) Validate(token string) domain.TokenValidation {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(token)
	}
	parts := strings.Split(token, "|")
	if len(parts) != 5 || parts[0] != "token" {
		return domain.TokenValidation{Err: domain.ErrTokenInvalid}
	}
	return domain.TokenValidation{
		Valid: true,
		Claims: &domain.TokenClaims{
			UserID:    parts[1],
			SessionID: parts[2],
			Role:      parts[3],
			Email:     parts[4],
		},
	}
}

// GenerateOpaqueSecret returns unique deterministic values
func (m *MockTokenService) GenerateOpaqueSecret(byteLen int) (string, error) {
	if m.GenerateOpaqueSecretFunc != nil {
		return m.GenerateOpaqueSecretFunc(byteLen)
	}
	return fmt.Sprintf("secret-%d", m.counter.Add(1)), nil
}

// AccessTTL returns the configured TTL
func (m *MockTokenService) AccessTTL() time.Duration {
	return m.TTL
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
