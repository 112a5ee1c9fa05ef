package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HS256Verifier validates tokens signed using HMAC-SHA256.
type HS256Verifier struct {
	key    []byte
	issuer string
}

func newHS256Verifier(key []byte, issuer string) (*HS256Verifier, error) {
	if len(key) < MinKeyBytes {
		return nil, errors.New("jwtx: HS256 key must be at least 32 bytes")
	}
	return &HS256Verifier{key: key, issuer: issuer}, nil
}

// Verify validates the token string and returns its parsed Claims. A token
// whose header declares any algorithm other than HS256 is rejected
// outright; algorithm confusion is a hard failure, never a fallback.
func (v *HS256Verifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

// mapParseError folds the jwt library's error tree into our small decode
// taxonomy so callers can log a root cause without depending on the
// library's error types.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrAlgMismatch
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
