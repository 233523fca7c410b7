package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/laqq/authd/internal/auth/service"
	"github.com/laqq/authd/internal/auth/store"
	"github.com/laqq/authd/pkg/httpx"
	"github.com/laqq/authd/pkg/jwtx"
	"github.com/laqq/authd/pkg/slogx"
)

// RegisteredOperations lists every gate operation the routes below use. The
// application constructs its Gate from this list, so a route wired to an
// unmapped operation fails at startup instead of denying in production.
func RegisteredOperations() []service.Operation {
	return []service.Operation{
		service.OpUsersList,
		service.OpUsersRetrieve,
		service.OpUsersCreate,
		service.OpUsersUpdate,
		service.OpUsersDestroy,
		service.OpUsersResetPassword,
		service.OpUsersToggleActive,
		service.OpProfileRetrieve,
		service.OpProfileUpdate,
		service.OpChangePassword,
		service.OpTwoFactorEnroll,
		service.OpTwoFactorVerify,
		service.OpTwoFactorDisable,
		service.OpRolesList,
		service.OpRolesRetrieve,
		service.OpRolesCreate,
		service.OpRolesUpdate,
		service.OpRolesDestroy,
		service.OpRolesGrant,
		service.OpRolesRevoke,
		service.OpPermissionsList,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier  jwtx.Verifier
	version   string
	startTime time.Time
	logger    *slog.Logger

	store store.Store
	Gate  *service.Gate

	LoginService      *service.LoginService
	TokenService      *service.TokenService
	UserService       *service.UserService
	RoleService       *service.RoleService
	PermissionService *service.PermissionService
	TOTPService       *service.TOTPService
}

func NewRouter(
	verifier jwtx.Verifier,
	version string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		verifier:  verifier,
		version:   version,
		startTime: time.Now(),
		store:     st,
		logger:    logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (rt *Router) ApplyRoutes() {
	rt.registerAuth()
	rt.registerUsers()
	rt.registerProfile()
	rt.registerTwoFactor()
	rt.registerRoles()
	rt.registerPermissions()
	rt.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (rt *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(rt.Mux, rt.middlewares...).ServeHTTP(w, req)
}

func (rt *Router) registerAuth() {
	loginHandler := &LoginHandler{Router: rt, LoginService: rt.LoginService}

	// Credential endpoint: strict limit by IP to slow brute force.
	rt.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Refresh carries no password, but it is still unauthenticated at the
	// middleware level (the token itself is the credential).
	refreshHandler := &RefreshHandler{TokenService: rt.TokenService}
	rt.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (rt *Router) registerUsers() {
	h := &UsersHandler{Router: rt, Users: rt.UserService}

	secured := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(rt.verifier),
			httpx.RateLimitByUser(limit),
		)
	}

	rt.Mux.Handle("GET /v1/users", secured(h.HandleList, httpx.LenientLimit))
	rt.Mux.Handle("POST /v1/users", secured(h.HandleCreate, httpx.ModerateLimit))
	rt.Mux.Handle("GET /v1/users/{id}", secured(h.HandleRetrieve, httpx.LenientLimit))
	rt.Mux.Handle("PUT /v1/users/{id}", secured(h.HandleUpdate, httpx.ModerateLimit))
	rt.Mux.Handle("DELETE /v1/users/{id}", secured(h.HandleDestroy, httpx.ModerateLimit))
	rt.Mux.Handle("POST /v1/users/{id}/reset-password", secured(h.HandleResetPassword, httpx.ModerateLimit))
	rt.Mux.Handle("POST /v1/users/{id}/toggle-active", secured(h.HandleToggleActive, httpx.ModerateLimit))
}

func (rt *Router) registerProfile() {
	h := &ProfileHandler{Router: rt, Users: rt.UserService}

	// "me" is a literal segment, so it wins over the {id} wildcard above.
	rt.Mux.Handle("GET /v1/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleRetrieve),
			httpx.AuthnMiddleware(rt.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	rt.Mux.Handle("PUT /v1/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			httpx.AuthnMiddleware(rt.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	rt.Mux.Handle("POST /v1/users/me/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			httpx.AuthnMiddleware(rt.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (rt *Router) registerTwoFactor() {
	h := &TwoFactorHandler{Router: rt, TOTP: rt.TOTPService}

	rt.Mux.Handle("POST /v1/2fa/enroll",
		httpx.Chain(http.HandlerFunc(h.HandleEnroll),
			httpx.AuthnMiddleware(rt.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// Verification consumes OTP guesses, so it gets the strict profile.
	rt.Mux.Handle("POST /v1/2fa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.AuthnMiddleware(rt.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	rt.Mux.Handle("POST /v1/2fa/disable",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			httpx.AuthnMiddleware(rt.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (rt *Router) registerRoles() {
	h := &RolesHandler{Router: rt, Roles: rt.RoleService}

	secured := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(rt.verifier),
			httpx.RateLimitByUser(limit),
		)
	}

	rt.Mux.Handle("GET /v1/roles", secured(h.HandleList, httpx.LenientLimit))
	rt.Mux.Handle("POST /v1/roles", secured(h.HandleCreate, httpx.ModerateLimit))
	rt.Mux.Handle("GET /v1/roles/{id}", secured(h.HandleRetrieve, httpx.LenientLimit))
	rt.Mux.Handle("PUT /v1/roles/{id}", secured(h.HandleUpdate, httpx.ModerateLimit))
	rt.Mux.Handle("DELETE /v1/roles/{id}", secured(h.HandleDestroy, httpx.ModerateLimit))
	rt.Mux.Handle("GET /v1/roles/{id}/permissions", secured(h.HandleListPermissions, httpx.LenientLimit))
	rt.Mux.Handle("POST /v1/roles/{id}/permissions", secured(h.HandleGrant, httpx.ModerateLimit))
	rt.Mux.Handle("DELETE /v1/roles/{id}/permissions/{permissionID}", secured(h.HandleRevoke, httpx.ModerateLimit))
}

func (rt *Router) registerPermissions() {
	h := &PermissionsHandler{Router: rt, Permissions: rt.PermissionService}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(rt.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		)
	}

	rt.Mux.Handle("GET /v1/permissions", secured(h.HandleList))
	rt.Mux.Handle("GET /v1/permissions/by-module", secured(h.HandleListByModule))
}

func (rt *Router) registerSystem() {
	// Monitoring systems poll these, so the limits stay lenient.
	rt.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(rt.startTime, rt.version),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	rt.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(rt.startTime, rt.version, rt.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
