package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the unauthenticated endpoints of the auth service and
// creates authenticated Sessions via Login.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new auth service client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates a new user account.
func (c *Client) Register(ctx context.Context, username, password, email string) (RegisterResponse, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	if email != "" {
		form.Set("email", email)
	}

	var out RegisterResponse
	if err := c.postForm(ctx, "/api/register", form, "", &out); err != nil {
		return RegisterResponse{}, err
	}
	return out, nil
}

// Login authenticates with username and password and returns a Session
// holding the issued token. otpCode may be empty unless the user has MFA
// enabled.
func (c *Client) Login(ctx context.Context, username, password string, scopes []string, otpCode string) (*Session, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}
	if otpCode != "" {
		form.Set("otp_code", otpCode)
	}

	var tokenResp TokenResponse
	if err := c.postForm(ctx, "/api/token", form, "", &tokenResp); err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

// postForm sends a form-encoded POST and decodes a JSON response into out
// (out may be nil for endpoints that answer 204).
func (c *Client) postForm(ctx context.Context, path string, form url.Values, bearer string, out any) error {
	var body string
	if form != nil {
		body = form.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(body))
	if err != nil {
		return err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// getJSON sends an authenticated GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
