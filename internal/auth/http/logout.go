package http

import (
	"errors"
	"net/http"

	"github.com/filevault-labs/filevault/internal/auth/service"
	"github.com/filevault-labs/filevault/pkg/slogx"
)

// LogoutHandler serves POST /api/logout.
// Revocation is idempotent and quiet: any well-formed request gets 204, so
// the endpoint cannot be used to probe token validity.
type LogoutHandler struct {
	SessionService *service.SessionService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token, ok := bearerToken(r)
	if !ok {
		ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.SessionService.Logout(ctx, token); err != nil {
		if errors.Is(err, service.ErrStorageUnavailable) {
			ErrStorageUnavailable.WriteError(w)
			return
		}
		log.Error("logout failed", "err", err)
		ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
