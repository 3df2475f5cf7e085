package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultAccessTTL = 15 * time.Minute

// CustomClaims is the access-token payload: the registered JWT claims plus
// the caller's role and a per-token session ID.
type CustomClaims struct {
	jwt.RegisteredClaims
	Role      Role   `json:"role"`
	SessionID string `json:"sid"`
}

// GenerateAccessToken signs a short-lived HS256 access token for the user.
// Verification is by signature alone; no lookups happen on request paths.
func GenerateAccessToken(user *User, secret string, ttlMinutes int) (string, error) {
	ttl := time.Duration(ttlMinutes) * time.Minute
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}

	issued := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Role:      user.Role,
		SessionID: uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken returns 256 bits of hex-encoded randomness. The raw
// value goes to the client; only its hash is ever stored.
func GenerateRefreshToken() (string, error) {
	raw := make([]byte, 32) //nolint:mnd // 256-bit token
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("reading token randomness: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// ParseToken verifies an access token's signature and expiry and returns
// its claims. Tokens without a subject or role are rejected; both are set
// at issue time, so their absence means the token is not ours.
func ParseToken(tokenString, secret string) (*CustomClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &CustomClaims{},
		func(_ *jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*CustomClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrTokenInvalid)
	}
	if claims.Role == "" {
		return nil, fmt.Errorf("%w: no role", ErrTokenInvalid)
	}
	return claims, nil
}
