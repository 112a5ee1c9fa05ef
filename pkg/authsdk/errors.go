package authsdk

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError is an error response from the auth service.
type APIError struct {
	// StatusCode is the HTTP status the service answered with
	StatusCode int `json:"-"`

	// Code is the machine-readable error code (e.g., "authentication_failed")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// parseError turns a non-2xx response into an *APIError. Unparseable bodies
// still produce a usable error with the status code.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unexpected_response"
		apiErr.Description = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return apiErr
}
