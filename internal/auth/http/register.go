package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/filevault-labs/filevault/internal/auth/service"
	"github.com/filevault-labs/filevault/pkg/httpx"
	"github.com/filevault-labs/filevault/pkg/slogx"
)

// RegisterHandler serves POST /api/register.
type RegisterHandler struct {
	UserService *service.UserService
}

type registerResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}

	username := strings.TrimSpace(r.Form.Get("username"))
	password := r.Form.Get("password")
	email := strings.TrimSpace(r.Form.Get("email"))

	if username == "" || password == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.UserService.Register(ctx, username, password, email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			ErrUsernameTaken.WriteError(w)
		case errors.Is(err, service.ErrStorageUnavailable):
			ErrStorageUnavailable.WriteError(w)
		default:
			log.Error("registration failed", "err", err)
			ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, registerResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}
