package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/filevault-labs/filevault/internal/auth/service"
	"github.com/filevault-labs/filevault/pkg/httpx"
	"github.com/filevault-labs/filevault/pkg/slogx"
)

// ChangePasswordHandler serves POST /api/user/password for the authenticated
// session. The current password must be re-supplied: a live token alone is
// not enough to take over an account.
type ChangePasswordHandler struct {
	UserService *service.UserService
}

func (h *ChangePasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	username := httpx.SubjectFromContext(ctx)
	if username == "" {
		ErrInvalidToken.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}

	currentPassword := r.Form.Get("current_password")
	newPassword := r.Form.Get("new_password")
	if currentPassword == "" || newPassword == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.UserService.ChangePassword(ctx, username, currentPassword, newPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrAuthenticationFailed):
			ErrAuthenticationFailed.WriteError(w)
		case errors.Is(err, service.ErrStorageUnavailable):
			ErrStorageUnavailable.WriteError(w)
		default:
			log.Error("password change failed", "err", err)
			ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteAccountHandler serves POST /api/user/delete. The password must be
// re-supplied, and the cascade from the users table revokes every session
// the account still holds.
type DeleteAccountHandler struct {
	UserService *service.UserService
}

func (h *DeleteAccountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	username := httpx.SubjectFromContext(ctx)
	if username == "" {
		ErrInvalidToken.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}

	password := strings.TrimSpace(r.Form.Get("password"))
	if password == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.UserService.DeleteAccount(ctx, username, password); err != nil {
		switch {
		case errors.Is(err, service.ErrAuthenticationFailed):
			ErrAuthenticationFailed.WriteError(w)
		case errors.Is(err, service.ErrStorageUnavailable):
			ErrStorageUnavailable.WriteError(w)
		default:
			log.Error("account deletion failed", "err", err)
			ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
