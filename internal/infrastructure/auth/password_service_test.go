package auth

import (
	"strings"
	"testing"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordServiceImpl_HashAndVerify(t *testing.T) {
	svc := NewPasswordServiceWithCost(bcrypt.MinCost)

	passwords := []string{"Secret123!", "a", "pässwörd with spaces", "0123456789abcdef0123456789abcdef"}
	for _, p := range passwords {
		t.Run(p, func(t *testing.T) {
			hash, err := svc.Hash(p)
			require.NoError(t, err)
			assert.NotEqual(t, p, hash)

			assert.True(t, svc.Verify(hash, p))
			assert.False(t, svc.Verify(hash, p+"x"))
			assert.False(t, svc.Verify(hash, ""))
		})
	}
}

func TestPasswordServiceImpl_HashIsSalted(t *testing.T) {
	svc := NewPasswordServiceWithCost(bcrypt.MinCost)

	h1, err := svc.Hash("Secret123!")
	require.NoError(t, err)
	h2, err := svc.Hash("Secret123!")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestPasswordServiceImpl_DefaultCost(t *testing.T) {
	svc := NewPasswordService()

	hash, err := svc.Hash("Secret123!")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)
}

func TestPasswordServiceImpl_EmptyPassword(t *testing.T) {
	svc := NewPasswordServiceWithCost(bcrypt.MinCost)

	_, err := svc.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestPasswordServiceImpl_MalformedHash(t *testing.T) {
	svc := NewPasswordServiceWithCost(bcrypt.MinCost)

	for _, hash := range []string{"", "not-a-hash", "$2a$10$short", "plaintext-password"} {
		assert.NotPanics(t, func() {
			assert.False(t, svc.Verify(hash, "plaintext-password"))
		})
	}
}

func TestPasswordServiceImpl_PasswordOverBcryptLimit(t *testing.T) {
	svc := NewPasswordServiceWithCost(bcrypt.MinCost)

	_, err := svc.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, domain.ErrPasswordTooLong)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = svc.Hash(strings.Repeat("a", 72))
	assert.NoError(t, err)
}
