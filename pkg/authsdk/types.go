package authsdk

// TokenResponse is returned from POST /api/token and /api/token/refresh.
type TokenResponse struct {
	// AccessToken is the signed session token used to authenticate requests
	AccessToken string `json:"access_token"`

	// TokenType is always "bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the session token
	ExpiresIn int64 `json:"expires_in"`

	// Scope is the space-delimited list of scopes carried by this token
	Scope string `json:"scope,omitempty"`
}

// RegisterResponse is returned from POST /api/register.
type RegisterResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// UserInfoResponse is returned from GET /api/user/me.
type UserInfoResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// MFAEnrollResponse is returned from POST /api/user/mfa/enroll.
type MFAEnrollResponse struct {
	Secret  string `json:"secret"`
	QRCode  string `json:"qr_code"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}
