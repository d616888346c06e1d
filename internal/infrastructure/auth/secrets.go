package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateOpaqueSecret returns byteLen cryptographically random bytes, hex encoded
func GenerateOpaqueSecret(byteLen int) (string, error) {
	if byteLen <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", byteLen)
	}
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
