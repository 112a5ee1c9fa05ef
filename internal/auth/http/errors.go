package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/filevault-labs/filevault/pkg/httpx"
)

// APIError is the JSON error envelope every endpoint uses.
type APIError struct {
	// StatusCode is the HTTP status code for this error
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

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

var (
	// ErrInvalidRequest is returned when the request is missing a required
	// parameter or is otherwise malformed.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_request",
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidContentType is returned when the body is not form-encoded.
	ErrInvalidContentType = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_request",
		Description: "content type must be application/x-www-form-urlencoded",
	}

	// ErrAuthenticationFailed is the single body every credential failure
	// gets. Unknown username, wrong password and bad OTP code all look the
	// same from outside.
	ErrAuthenticationFailed = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "authentication_failed",
		Description: "the provided credentials are not valid",
	}

	// ErrMFARequired tells the caller to retry with an otp_code field.
	ErrMFARequired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "mfa_required",
		Description: "a one-time code is required to complete authentication",
	}

	// ErrInvalidToken is the single body every token failure gets on guarded
	// endpoints: bad signature, expired, revoked and rotated all look the
	// same from outside.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_token",
		Description: "the access token is not valid",
	}

	// ErrUsernameTaken is returned by registration on a duplicate username.
	ErrUsernameTaken = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        "username_taken",
		Description: "a user with that username already exists",
	}

	// ErrServerError is the generic 500.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        "server_error",
		Description: "an unexpected error occurred",
	}

	// ErrStorageUnavailable is returned when the backing store is down.
	// Deliberately distinct from the 401s: the token was not judged.
	ErrStorageUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        "storage_unavailable",
		Description: "the service is temporarily unable to verify sessions",
	}
)
