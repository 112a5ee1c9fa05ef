package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the default lifetime for access tokens.
const DefaultAccessTokenTTL = 30 * time.Minute

// Claims are the session-token claims. The token id ("jti") is the key the
// liveness store tracks revocation under; the claims themselves are
// immutable once signed.
type Claims struct {
	jwt.RegisteredClaims

	// Permission scopes, e.g. "files:read files:write". May be empty.
	Scopes []string `json:"scopes,omitempty"`
}

// NewSessionClaims builds minimally-correct claims for a fresh session
// token: subject is the username, expiry is now+ttl, and the token id is a
// fresh random value.
func NewSessionClaims(
	subject string,
	scopes []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewTokenID(),
		},
		Scopes: scopes,
	}
}

// NewTokenID returns a URL-safe random token identifier for the "jti"
// claim. 20 bytes gives 160 bits of entropy, so two concurrently-live
// tokens colliding is negligible.
func NewTokenID() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// TokenID returns the token's "jti" claim.
func (c *Claims) TokenID() string { return c.ID }

// Remaining reports how much of the token's validity window is left at the
// given instant. Non-positive means expired.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// ValidateIssuer checks if the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// HasScopes reports whether the claims carry every required scope. This is
// the pure authorization decision: allow iff required is a subset of the
// token's scopes. An empty requirement always passes.
func (c *Claims) HasScopes(required []string) bool {
	if len(required) == 0 {
		return true
	}

	have := make(map[string]struct{}, len(c.Scopes))
	for _, s := range c.Scopes {
		have[s] = struct{}{}
	}

	for _, want := range required {
		if _, ok := have[want]; !ok {
			return false
		}
	}
	return true
}
