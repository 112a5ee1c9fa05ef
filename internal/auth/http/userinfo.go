package http

import (
	"errors"
	"net/http"

	"github.com/filevault-labs/filevault/internal/auth/service"
	"github.com/filevault-labs/filevault/internal/auth/store"
	"github.com/filevault-labs/filevault/pkg/httpx"
	"github.com/filevault-labs/filevault/pkg/slogx"
)

// UserInfoHandler serves GET /api/user/me for the authenticated session.
type UserInfoHandler struct {
	UserService *service.UserService
}

type userInfoResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	username := httpx.SubjectFromContext(ctx)
	if username == "" {
		ErrInvalidToken.WriteError(w)
		return
	}

	user, err := h.UserService.GetUserByUsername(ctx, username)
	if err != nil {
		log.Warn("failed to load user", "username", username, "err", err)
		if errors.Is(err, store.ErrNotFound) {
			// Subject vanished between Authorize and here.
			ErrInvalidToken.WriteError(w)
			return
		}
		ErrStorageUnavailable.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userInfoResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}
