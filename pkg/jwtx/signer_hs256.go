package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyBytes is the smallest symmetric key we accept for HS256. Anything
// shorter than the HMAC-SHA256 block output weakens the signature.
const MinKeyBytes = 32

// HS256Signer implements the Signer interface using HMAC-SHA256 over a
// shared symmetric key. The algorithm is fixed: there is deliberately no
// way to negotiate a different one.
type HS256Signer struct {
	key []byte
	alg string
}

func newHS256Signer(key []byte) (*HS256Signer, error) {
	if len(key) < MinKeyBytes {
		return nil, errors.New("jwtx: HS256 key must be at least 32 bytes")
	}

	return &HS256Signer{
		key: key,
		alg: jwt.SigningMethodHS256.Alg(),
	}, nil
}

func (s *HS256Signer) Alg() string { return s.alg }

// Sign takes your claims and turns them into a signed token string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.key)
}

// Validate does a quick sanity check to make sure we actually have a key.
func (s *HS256Signer) Validate() error {
	if len(s.key) < MinKeyBytes {
		return errors.New("jwtx: HS256 key too short")
	}
	return nil
}
