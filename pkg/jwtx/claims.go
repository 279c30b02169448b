package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTL constants. Both can be overridden through configuration.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Payload is the application data carried by every token we issue.
type Payload struct {
	UserID string
	Role   string
	JTI    string
}

// Claims are the JWT claims for both access and refresh tokens. The jti lives
// in the registered "jti" claim so blacklist bookkeeping can read it from an
// unverified decode.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// NewClaims builds claims for the payload, valid from now until now+ttl. A
// fresh jti is generated when the payload does not carry one.
func NewClaims(p Payload, ttl time.Duration, now time.Time) Claims {
	jti := p.JTI
	if jti == "" {
		jti = NewJTI()
	}

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		UserID: p.UserID,
		Role:   p.Role,
	}
}

// Payload returns the application payload embedded in the claims.
func (c Claims) Payload() Payload {
	return Payload{UserID: c.UserID, Role: c.Role, JTI: c.ID}
}

// ExpiresAtTime returns the expiry or the zero time when the claim is absent.
func (c Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// NewJTI returns a random UUID for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}
