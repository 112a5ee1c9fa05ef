package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/filevault-labs/filevault/pkg/httpx"
	"github.com/filevault-labs/filevault/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestChainOrdering(t *testing.T) {
	var order []string

	tag := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), tag("outer"), tag("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestContextRoundTrip(t *testing.T) {
	claims := jwtx.NewSessionClaims("alice", []string{"vault.read"}, time.Minute, "issuer", time.Now())
	ctx := httpx.ContextWithClaims(t.Context(), claims)

	require.Equal(t, "alice", httpx.SubjectFromContext(ctx))

	got, ok := httpx.ClaimsFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, claims.TokenID(), got.TokenID())

	// Empty context yields zero values, not panics.
	require.Empty(t, httpx.SubjectFromContext(t.Context()))
	_, ok = httpx.ClaimsFromContext(t.Context())
	require.False(t, ok)
}

func TestRequireAllScopes(t *testing.T) {
	handler := httpx.RequireAllScopes("vault.read", "vault.write")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	do := func(scopes []string) *httptest.ResponseRecorder {
		claims := jwtx.NewSessionClaims("alice", scopes, time.Minute, "issuer", time.Now())
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(httpx.ContextWithClaims(r.Context(), claims))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	w := do([]string{"vault.read", "vault.write", "extra"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do([]string{"vault.read"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Header().Get("WWW-Authenticate"), "insufficient_scope")
}

func TestWriteJSONSetsNoStore(t *testing.T) {
	w := httptest.NewRecorder()
	httpx.WriteJSON(w, http.StatusTeapot, map[string]string{"k": "v"})

	require.Equal(t, http.StatusTeapot, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"k":"v"}`, w.Body.String())
}

func TestWriteBearerError(t *testing.T) {
	w := httptest.NewRecorder()
	httpx.WriteBearerError(w, "the access token is not valid")

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
}

func TestParseSpaceDelimitedFields(t *testing.T) {
	require.Nil(t, httpx.ParseSpaceDelimitedFields("  "))
	require.Equal(t, []string{"a", "b"}, httpx.ParseSpaceDelimitedFields(" a  b "))
}
