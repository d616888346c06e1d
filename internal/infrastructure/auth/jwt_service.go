package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/golang-jwt/jwt/v5"
)

// bearerClaims is the wire shape of a bearer token
type bearerClaims struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// JWTServiceImpl implements domain.TokenService
type JWTServiceImpl struct {
	secretKey      []byte
	issuer         string
	audience       string
	accessTokenTTL time.Duration
	now            func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey, issuer, audience string, accessTTL time.Duration) domain.TokenService {
	return &JWTServiceImpl{
		secretKey:      []byte(secretKey),
		issuer:         issuer,
		audience:       audience,
		accessTokenTTL: accessTTL,
		now:            time.Now,
	}
}

// AccessTTL implements domain.TokenService
func (j *JWTServiceImpl) AccessTTL() time.Duration {
	return j.accessTokenTTL
}

// GenerateOpaqueSecret implements domain.TokenService
func (j *JWTServiceImpl) GenerateOpaqueSecret(byteLen int) (string, error) {
	return GenerateOpaqueSecret(byteLen)
}

// Sign implements domain.TokenService
func (j *JWTServiceImpl) Sign(c domain.TokenClaims) (string, error) {
	jti, err := GenerateOpaqueSecret(16)
	if err != nil {
		return "", err
	}

	now := j.now()
	claims := bearerClaims{
		UserID:    c.UserID,
		SessionID: c.SessionID,
		Email:     c.Email,
		Role:      c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   c.UserID,
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate implements domain.TokenService. It never panics and always returns a result.
func (j *JWTServiceImpl) Validate(tokenString string) domain.TokenValidation {
	claims := &bearerClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)

	if err != nil {
		if isOnlyExpired(err) {
			return domain.TokenValidation{Expired: true, Claims: toDomainClaims(claims), Err: domain.ErrTokenExpired}
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return domain.TokenValidation{Err: domain.ErrTokenMalformed.Wrap(err)}
		}
		return domain.TokenValidation{Err: domain.ErrTokenInvalid.Wrap(err)}
	}

	if claims.UserID == "" || claims.SessionID == "" {
		return domain.TokenValidation{Err: domain.ErrTokenMalformed}
	}

	return domain.TokenValidation{Valid: true, Claims: toDomainClaims(claims)}
}

// isOnlyExpired reports whether expiry is the sole reason validation failed.
// The parser checks the signature before claims, so an expiry error implies a
// genuine token.
func isOnlyExpired(err error) bool {
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return false
	}
	return !errors.Is(err, jwt.ErrTokenInvalidIssuer) &&
		!errors.Is(err, jwt.ErrTokenInvalidAudience) &&
		!errors.Is(err, jwt.ErrTokenSignatureInvalid) &&
		!errors.Is(err, jwt.ErrTokenUsedBeforeIssued) &&
		!errors.Is(err, jwt.ErrTokenNotValidYet)
}

func toDomainClaims(c *bearerClaims) *domain.TokenClaims {
	out := &domain.TokenClaims{
		UserID:    c.UserID,
		SessionID: c.SessionID,
		Email:     c.Email,
		Role:      c.Role,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Unix()
	}
	return out
}
