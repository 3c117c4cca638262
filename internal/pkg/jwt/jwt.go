package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/hamxasajid/blogsite-core/internal/models"
)

var (
	secret = []byte("blogsite-secret-change-me")

	// ErrInvalidToken covers any token that fails signature, expiry or
	// claim checks.
	ErrInvalidToken = errors.New("invalid token")
)

// SetSecret configures the HMAC signing secret. Call once on startup; an
// empty value keeps the built-in development secret.
func SetSecret(s string) {
	if s != "" {
		secret = []byte(s)
	}
}

// Claims is the token payload. The role travels in the token itself, so
// request handling never has to load the user row just to authorize.
type Claims struct {
	UserID string      `json:"uid"`
	Role   models.Role `json:"role"`
	jwtlib.RegisteredClaims
}

// Sign issues an HS256 token for the given user that expires after ttl.
func Sign(userID string, role models.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString(secret)
}

// Parse verifies a token string and returns its claims.
func Parse(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwtlib.Token) (interface{}, error) { return secret, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
