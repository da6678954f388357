package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lumehq/accountd/internal/account/service"
	"github.com/lumehq/accountd/internal/account/store"
	"github.com/lumehq/accountd/pkg/cachex"
	"github.com/lumehq/accountd/pkg/httpx"
	"github.com/lumehq/accountd/pkg/jwtx"
	"github.com/lumehq/accountd/pkg/slogx"

	_ "github.com/lumehq/accountd/api/account" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Config carries the admission knobs the router needs.
type Config struct {
	RateLimitPerMinute   int
	MaxConcurrentCalls   int
	ConcurrencyCacheSize int
	HandlerTimeout       time.Duration
}

// Router holds shared dependencies for HTTP handlers and composes each
// route's guard pipeline explicitly. There is no implicit global
// interception: what a route runs is what its registration lists.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	cfg         Config
	store       store.Store
	cache       cachex.Cache
	concurrency *httpx.ConcurrencyLimiter

	AuthService  *service.AuthService
	SessionSvc   *service.SessionService
	UserService  *service.UserService
	RolesService *service.RolesService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	cache cachex.Cache,
	logger *slog.Logger,
	cfg Config,
) (*Router, error) {
	limiter, err := httpx.NewConcurrencyLimiter(cfg.ConcurrencyCacheSize, cfg.MaxConcurrentCalls)
	if err != nil {
		return nil, err
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		cfg:          cfg,
		store:        st,
		cache:        cache,
		concurrency:  limiter,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.RecoverMiddleware,
		httpx.TimeoutMiddleware(cfg.HandlerTimeout),
	}

	return r, nil
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerRoles()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Account Service API
//	@version		0.1.0
//	@description	Account backend providing registration with email verification, JWT session management with logout blacklisting and password-change revocation, and admission control on every route.
//
//	@contact.name	Lume Team
//	@contact.url	https://github.com/lumehq/accountd
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// RouteLimits is the explicit per-route admission record attached at
// registration. Zero values fall back to the configured defaults.
type RouteLimits struct {
	PerMinute int // rate limit, requests per minute
	MaxCalls  int // concurrent in-flight calls per caller
}

func (r *Router) rateFor(lim RouteLimits) int {
	if lim.PerMinute > 0 {
		return lim.PerMinute
	}
	return r.cfg.RateLimitPerMinute
}

// public composes the guard pipeline for unauthenticated routes. Concurrency
// is keyed by client IP since no identity is available yet.
func (r *Router) public(h http.Handler, lim RouteLimits) http.Handler {
	return httpx.Chain(h,
		httpx.RateLimitMiddleware(r.cache, r.rateFor(lim)),
		r.concurrency.Middleware(lim.MaxCalls),
	)
}

// protected composes the full pipeline: rate guard, revocation guard
// (blacklist and threshold on decoded-only claims), signature guard, then
// user-keyed concurrency. The revocation guard never stands alone; the
// signature guard behind it is what proves the token is genuine.
func (r *Router) protected(h http.Handler, lim RouteLimits) http.Handler {
	return httpx.Chain(h,
		httpx.RateLimitMiddleware(r.cache, r.rateFor(lim)),
		RevocationGuard(r.SessionSvc),
		SignatureGuard(r.verifier),
		r.concurrency.Middleware(lim.MaxCalls),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService: r.AuthService,
		Verifier:    r.verifier,
	}

	r.Mux.Handle("POST /v1/auth/register",
		r.public(http.HandlerFunc(h.HandleRegister), RouteLimits{PerMinute: 10}))
	r.Mux.Handle("POST /v1/auth/login",
		r.public(http.HandlerFunc(h.HandleLogin), RouteLimits{PerMinute: 10}))
	r.Mux.Handle("GET /v1/auth/verify",
		r.public(http.HandlerFunc(h.HandleVerify), RouteLimits{PerMinute: 10}))
	r.Mux.Handle("POST /v1/auth/resend",
		r.public(http.HandlerFunc(h.HandleResend), RouteLimits{PerMinute: 10}))

	r.Mux.Handle("POST /v1/auth/refresh",
		r.protected(http.HandlerFunc(h.HandleRefresh), RouteLimits{PerMinute: 30}))
	r.Mux.Handle("POST /v1/auth/logout",
		r.protected(http.HandlerFunc(h.HandleLogout), RouteLimits{PerMinute: 30}))

	// Password changes are serialized per caller: the hash-verify-rehash
	// cycle is expensive and racing changes would make the revocation
	// threshold ambiguous.
	r.Mux.Handle("POST /v1/auth/password",
		r.protected(http.HandlerFunc(h.HandleChangePassword), RouteLimits{PerMinute: 10, MaxCalls: 1}))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	r.Mux.Handle("GET /v1/users/me",
		r.protected(http.HandlerFunc(h.HandleMe), RouteLimits{}))
}

func (r *Router) registerRoles() {
	h := &RolesHandler{RolesService: r.RolesService}

	r.Mux.Handle("GET /v1/roles",
		r.protected(http.HandlerFunc(h.HandleList), RouteLimits{}))
}

func (r *Router) registerSystem() {
	lim := RouteLimits{PerMinute: 120}
	r.Mux.Handle("GET /livez",
		r.public(LivezHandler(r.startTime, r.buildVersion), lim))
	r.Mux.Handle("GET /readyz",
		r.public(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache), lim))
}
