package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/filevault-labs/filevault/internal/auth/service"
	"github.com/filevault-labs/filevault/pkg/httpx"
)

// requireSession authenticates the bearer token via the session service and,
// on success, attaches the claims to the request context. Every rejection is
// the uniform 401 except storage trouble, which is an honest 503.
func requireSession(sessions *service.SessionService, requiredScopes ...string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				ErrInvalidToken.WriteError(w)
				return
			}

			claims, err := sessions.Authorize(r.Context(), token, requiredScopes)
			if err != nil {
				if errors.Is(err, service.ErrStorageUnavailable) {
					ErrStorageUnavailable.WriteError(w)
					return
				}
				ErrInvalidToken.WriteError(w)
				return
			}

			ctx := httpx.ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(auth[len(prefix):]), true
}
