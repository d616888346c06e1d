package mocks

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
)

const mockHashPrefix = "mock-bcrypt$"

// ErrMockEmptyPassword mirrors the bcrypt hasher's refusal of empty input
var ErrMockEmptyPassword = errors.New("password must not be empty")

// MockHash is the stored form the default Hash produces; use it to seed users
// whose password the default Verify should accept.
func MockHash(password string) string {
	return mockHashPrefix + password
}

// MockPasswordService implements domain.PasswordService without bcrypt's cost.
// The defaults keep the real hasher's input limits.
type MockPasswordService struct {
	HashFunc   func(password string) (string, error)
	VerifyFunc func(hashedPassword, password string) bool

	HashCalls atomic.Int32
}

var _ domain.PasswordService = (*MockPasswordService)(nil)

// NewMockPasswordService creates a new MockPasswordService
func NewMockPasswordService() *MockPasswordService {
	return &MockPasswordService{}
}

// Hash rejects empty and over-long input, then returns MockHash(password)
func (m *MockPasswordService) Hash(password string) (string, error) {
	m.HashCalls.Add(1)
	if m.HashFunc != nil {
		return m.HashFunc(password)
	}
	switch {
	case password == "":
		return "", ErrMockEmptyPassword
	case len(password) > 72:
		return "", domain.ErrPasswordTooLong
	}
	return MockHash(password), nil
}

// Verify accepts only values produced by MockHash
func (m *MockPasswordService) Verify(hashedPassword, password string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(hashedPassword, password)
	}
	stored, ok := strings.CutPrefix(hashedPassword, mockHashPrefix)
	return ok && stored == password
}
