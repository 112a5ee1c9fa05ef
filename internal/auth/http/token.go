package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/filevault-labs/filevault/internal/auth/domain"
	"github.com/filevault-labs/filevault/internal/auth/service"
	"github.com/filevault-labs/filevault/pkg/httpx"
	"github.com/filevault-labs/filevault/pkg/slogx"
)

// TokenHandler serves POST /api/token.
// Accepts application/x-www-form-urlencoded: username, password, optional
// space-delimited scope and optional otp_code for MFA users.
type TokenHandler struct {
	SessionService *service.SessionService
	AccessTTLSecs  int64
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		ErrInvalidContentType.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}

	username := strings.TrimSpace(r.Form.Get("username"))
	password := r.Form.Get("password")
	scopes := httpx.ParseSpaceDelimitedFields(r.Form.Get("scope"))
	otpCode := strings.TrimSpace(r.Form.Get("otp_code"))

	if username == "" || password == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	token, err := h.SessionService.Login(ctx, username, password, scopes, otpCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAuthenticationFailed):
			ErrAuthenticationFailed.WriteError(w)
		case errors.Is(err, service.ErrMFARequired):
			ErrMFARequired.WriteError(w)
		case errors.Is(err, service.ErrStorageUnavailable):
			ErrStorageUnavailable.WriteError(w)
		default:
			log.Error("login failed", "err", err)
			ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, domain.Token{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   h.AccessTTLSecs,
		Scope:       strings.Join(scopes, " "),
	})
}
