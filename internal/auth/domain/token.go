package domain

// Token represents what the token endpoint returns: the short-lived signed
// session token plus its metadata.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"` // typically "bearer"
	ExpiresIn   int64  `json:"expires_in"`           // seconds until expiry
	Scope       string `json:"scope,omitempty"`      // space-delimited
}
