package jwtx

// Signer is our interface for anything that can sign session tokens.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
	Validate() error
}

// NewSignerHS256 creates an HS256 signer from raw symmetric key bytes.
// The key must carry at least 256 bits.
func NewSignerHS256(key []byte) (Signer, error) {
	return newHS256Signer(key)
}
