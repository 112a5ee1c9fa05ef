package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/filevault-labs/filevault/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIPKeyExtractor(t *testing.T) {
	t.Run("remote addr", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.10:54321"
		require.Equal(t, "192.0.2.10", httpx.IPKeyExtractor(r))
	})

	t.Run("x-forwarded-for takes precedence", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.10:54321"
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 192.0.2.1")
		require.Equal(t, "203.0.113.7", httpx.IPKeyExtractor(r))
	})

	t.Run("x-real-ip fallback", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.10:54321"
		r.Header.Set("X-Real-IP", "203.0.113.9")
		require.Equal(t, "203.0.113.9", httpx.IPKeyExtractor(r))
	})
}

func TestFormFieldKeyExtractor(t *testing.T) {
	form := url.Values{"username": {"alice"}}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	extractor := httpx.FormFieldKeyExtractor("username")
	require.Equal(t, "alice", extractor(r))
}

func TestCompositeKeyExtractor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:54321"

	extractor := httpx.CompositeKeyExtractor(":",
		httpx.IPKeyExtractor,
		func(*http.Request) string { return "" }, // skipped
		func(*http.Request) string { return "alice" },
	)
	require.Equal(t, "192.0.2.10:alice", extractor(r))
}

func TestRateLimitMiddleware(t *testing.T) {
	config := httpx.RateLimitConfig{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		Burst:             2,
	}

	handler := httpx.RateLimitByIP(config)(okHandler())

	doRequest := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	// Burst allows the first two requests through.
	require.Equal(t, http.StatusOK, doRequest("192.0.2.1").Code)
	require.Equal(t, http.StatusOK, doRequest("192.0.2.1").Code)

	// Third request from the same IP is rejected with retry metadata.
	w := doRequest("192.0.2.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
	require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))

	// A different IP has its own bucket.
	require.Equal(t, http.StatusOK, doRequest("192.0.2.2").Code)
}

func TestRateLimitProfilesOrdering(t *testing.T) {
	// Strict < Moderate < Lenient < Public; a failure here usually means
	// an env override leaked into the test environment.
	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
	require.Less(t, httpx.LenientLimit.RequestsPerWindow, httpx.PublicLimit.RequestsPerWindow)
}
