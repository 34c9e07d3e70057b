package utils

import (
	"ClinicHub/models"
	"errors"
	"fmt"
	"time"

	"github.com/o1egl/paseto"
	"github.com/rs/zerolog/log"
)

// AccessTokenExpiry is how long a login stays valid.
const AccessTokenExpiry = 24 * time.Hour

var (
	ErrTokenExpired           = errors.New("token expired")
	ErrInsufficientPermission = errors.New("insufficient permissions")
)

// TokenClaims struct represents the data in the token (UserID, Role, Expiry).
type TokenClaims struct {
	UserID string    `json:"userId"`
	Role   string    `json:"role"`
	Expiry time.Time `json:"expiry"`
}

// Session converts the claims into the session handed to services.
func (c TokenClaims) Session() models.Session {
	return models.Session{UserID: c.UserID, Role: c.Role, ExpiresAt: c.Expiry}
}

// TokenMaker issues and validates PASETO v2 local tokens.
type TokenMaker struct {
	key []byte
	ttl time.Duration
	v2  *paseto.V2
	now func() time.Time
}

// NewTokenMaker requires a 32 byte symmetric key.
func NewTokenMaker(symmetricKey string) (*TokenMaker, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("SYMMETRIC_KEY must be 32 bytes long, got %d", len(symmetricKey))
	}
	return &TokenMaker{
		key: []byte(symmetricKey),
		ttl: AccessTokenExpiry,
		v2:  paseto.NewV2(),
		now: time.Now,
	}, nil
}

// GenerateAccessToken returns a token for the user and its expiry.
func (m *TokenMaker) GenerateAccessToken(userID, role string) (string, time.Time, error) {
	claims := TokenClaims{
		UserID: userID,
		Role:   role,
		Expiry: m.now().Add(m.ttl),
	}

	token, err := m.v2.Encrypt(m.key, claims, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return token, claims.Expiry, nil
}

// ValidateToken validates the given token string and checks for expiry and required roles.
func (m *TokenMaker) ValidateToken(tokenString string, requiredRoles ...string) (*TokenClaims, error) {
	var claims TokenClaims
	if err := m.v2.Decrypt(tokenString, m.key, &claims, nil); err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	if m.now().After(claims.Expiry) {
		return nil, ErrTokenExpired
	}

	// If no roles are required, any valid token is acceptable
	if len(requiredRoles) == 0 {
		return &claims, nil
	}

	for _, role := range requiredRoles {
		if claims.Role == role {
			return &claims, nil
		}
	}

	log.Debug().Strs("required", requiredRoles).Str("role", claims.Role).Msg("insufficient permissions")
	return nil, ErrInsufficientPermission
}
