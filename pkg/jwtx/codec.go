package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrEmptySecret = errors.New("jwtx: empty secret")
	ErrInvalidTTL  = errors.New("jwtx: ttl must be positive")
)

// Codec signs and verifies HS256 tokens. Secrets are supplied per call so the
// same codec serves access and refresh tokens.
type Codec struct {
	// Now is the clock used for iat/exp. Defaults to time.Now.
	Now func() time.Time
}

// NewCodec returns a codec using the wall clock.
func NewCodec() *Codec {
	return &Codec{Now: time.Now}
}

func (c *Codec) now() time.Time {
	if c == nil || c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Sign encodes the payload into a signed token valid for ttl. It returns the
// claims that were signed so callers can read jti and exp without decoding.
func (c *Codec) Sign(p Payload, secret []byte, ttl time.Duration) (string, Claims, error) {
	if len(secret) == 0 {
		return "", Claims{}, ErrEmptySecret
	}
	if ttl <= 0 {
		return "", Claims{}, ErrInvalidTTL
	}

	claims := NewClaims(p, ttl, c.now())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature and expiry of the token and returns its claims.
func (c *Codec) Verify(tokenStr string, secret []byte) (Claims, error) {
	if len(secret) == 0 {
		return Claims{}, ErrEmptySecret
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidSig
	}
	if claims.UserID == "" || claims.ID == "" {
		return Claims{}, ErrMalformed
	}

	return claims, nil
}

// Decode parses the token without verifying its signature or expiry. Only use
// the result for bookkeeping (e.g. reading jti), never for authorization.
func Decode(tokenStr string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
