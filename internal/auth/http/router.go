package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/filevault-labs/filevault/internal/auth/service"
	"github.com/filevault-labs/filevault/internal/auth/store"
	"github.com/filevault-labs/filevault/pkg/httpx"
	"github.com/filevault-labs/filevault/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	accessTTL    time.Duration

	store          store.Store
	SessionService *service.SessionService
	UserService    *service.UserService
	MFAService     *service.MFAService
}

func NewRouter(
	buildVersion string,
	accessTTL time.Duration,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		accessTTL:    accessTTL,
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSessions()
	r.registerUsers()
	r.registerMFA()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSessions() {
	ttlSecs := int64(r.accessTTL.Seconds())

	// POST /api/token - strict rate limit by IP + username form field to
	// slow down credential stuffing against a single account.
	tokenHandler := &TokenHandler{SessionService: r.SessionService, AccessTTLSecs: ttlSecs}
	r.Mux.Handle("POST /api/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)

	// POST /api/token/refresh - moderate rate limit (one live token per
	// caller anyway, rotation is cheap)
	refreshHandler := &RefreshHandler{SessionService: r.SessionService, AccessTTLSecs: ttlSecs}
	r.Mux.Handle("POST /api/token/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /api/logout - moderate rate limit
	logoutHandler := &LogoutHandler{SessionService: r.SessionService}
	r.Mux.Handle("POST /api/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	// POST /api/register - strict rate limit (account creation abuse)
	registerHandler := &RegisterHandler{UserService: r.UserService}
	r.Mux.Handle("POST /api/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /api/user/me - requires a live session, no particular scope
	userInfoHandler := &UserInfoHandler{UserService: r.UserService}
	r.Mux.Handle("GET /api/user/me",
		httpx.Chain(userInfoHandler,
			requireSession(r.SessionService),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// POST /api/user/password - strict rate limit since the current
	// password can be guessed through this endpoint too.
	changePasswordHandler := &ChangePasswordHandler{UserService: r.UserService}
	r.Mux.Handle("POST /api/user/password",
		httpx.Chain(changePasswordHandler,
			requireSession(r.SessionService),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	// POST /api/user/delete - same reasoning as password change
	deleteAccountHandler := &DeleteAccountHandler{UserService: r.UserService}
	r.Mux.Handle("POST /api/user/delete",
		httpx.Chain(deleteAccountHandler,
			requireSession(r.SessionService),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMFA() {
	mfaHandler := &MFAHandler{UserService: r.UserService, MFAService: r.MFAService}

	r.Mux.Handle("POST /api/user/mfa/enroll",
		httpx.Chain(http.HandlerFunc(mfaHandler.HandleEnroll),
			requireSession(r.SessionService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /api/user/mfa/activate",
		httpx.Chain(http.HandlerFunc(mfaHandler.HandleActivate),
			requireSession(r.SessionService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /api/user/mfa/disable",
		httpx.Chain(http.HandlerFunc(mfaHandler.HandleDisable),
			requireSession(r.SessionService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
