package http

import (
	"errors"
	"net/http"

	"github.com/filevault-labs/filevault/internal/auth/domain"
	"github.com/filevault-labs/filevault/internal/auth/service"
	"github.com/filevault-labs/filevault/pkg/httpx"
	"github.com/filevault-labs/filevault/pkg/slogx"
)

// RefreshHandler serves POST /api/token/refresh.
// The current session token goes in the Authorization header; on success the
// old token is retired and a replacement is returned.
type RefreshHandler struct {
	SessionService *service.SessionService
	AccessTTLSecs  int64
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token, ok := bearerToken(r)
	if !ok {
		ErrInvalidToken.WriteError(w)
		return
	}

	newToken, err := h.SessionService.Refresh(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			ErrInvalidToken.WriteError(w)
		case errors.Is(err, service.ErrStorageUnavailable):
			ErrStorageUnavailable.WriteError(w)
		default:
			log.Error("refresh failed", "err", err)
			ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, domain.Token{
		AccessToken: newToken,
		TokenType:   "bearer",
		ExpiresIn:   h.AccessTTLSecs,
	})
}
