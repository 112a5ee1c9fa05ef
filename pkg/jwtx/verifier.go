package jwtx

import "errors"

// Verifier validates a session token and gives you back the claims if it's
// legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// Decode failures are distinguished for logging only. Callers collapse all
// of them into a single unauthenticated outcome before anything leaves the
// process, so a rejected token never reveals why it was rejected.
var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// NewVerifierHS256 creates a verifier for tokens signed with the matching
// symmetric key.
func NewVerifierHS256(key []byte, issuer string) (Verifier, error) {
	return newHS256Verifier(key, issuer)
}
