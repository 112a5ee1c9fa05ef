package authsdk

import (
	"context"
	"net/url"
	"time"
)

// Session is an authenticated handle on the auth service. It carries the
// current session token and replaces it in place when Refresh succeeds.
type Session struct {
	client *Client

	accessToken string
	expiresAt   time.Time
	scope       string
}

func newSession(c *Client, tokenResp TokenResponse) *Session {
	return &Session{
		client:      c,
		accessToken: tokenResp.AccessToken,
		expiresAt:   time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
		scope:       tokenResp.Scope,
	}
}

// AccessToken returns the current session token.
func (s *Session) AccessToken() string { return s.accessToken }

// ExpiresAt returns when the current token expires.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Refresh rotates the session token. The previous token is retired
// server-side whether or not the caller keeps a copy.
func (s *Session) Refresh(ctx context.Context) error {
	var tokenResp TokenResponse
	if err := s.client.postForm(ctx, "/api/token/refresh", nil, s.accessToken, &tokenResp); err != nil {
		return err
	}

	s.accessToken = tokenResp.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return nil
}

// Logout revokes the session token server-side.
func (s *Session) Logout(ctx context.Context) error {
	return s.client.postForm(ctx, "/api/logout", nil, s.accessToken, nil)
}

// Me returns the authenticated user's stored identity.
func (s *Session) Me(ctx context.Context) (UserInfoResponse, error) {
	var out UserInfoResponse
	if err := s.client.getJSON(ctx, "/api/user/me", s.accessToken, &out); err != nil {
		return UserInfoResponse{}, err
	}
	return out, nil
}

// ChangePassword swaps the account password. The current password must be
// re-supplied; the session token stays valid afterwards.
func (s *Session) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	form := url.Values{
		"current_password": {currentPassword},
		"new_password":     {newPassword},
	}
	return s.client.postForm(ctx, "/api/user/password", form, s.accessToken, nil)
}

// DeleteAccount removes the account and revokes every session it still has,
// this one included.
func (s *Session) DeleteAccount(ctx context.Context, password string) error {
	form := url.Values{"password": {password}}
	return s.client.postForm(ctx, "/api/user/delete", form, s.accessToken, nil)
}

// EnrollMFA starts TOTP enrollment for the authenticated user.
func (s *Session) EnrollMFA(ctx context.Context) (MFAEnrollResponse, error) {
	var out MFAEnrollResponse
	if err := s.client.postForm(ctx, "/api/user/mfa/enroll", nil, s.accessToken, &out); err != nil {
		return MFAEnrollResponse{}, err
	}
	return out, nil
}

// ActivateMFA verifies a first TOTP code and turns enforcement on.
func (s *Session) ActivateMFA(ctx context.Context, otpCode string) error {
	form := url.Values{"otp_code": {otpCode}}
	return s.client.postForm(ctx, "/api/user/mfa/activate", form, s.accessToken, nil)
}
