package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/wingsite/internal/middleware"
)

// Route paths
const (
	RouteLogin       = "/api/auth/login"
	RouteVerify      = "/api/auth/verify"
	RouteUsers       = "/api/auth/users"
	RouteUsersID     = "/api/auth/users/{id}"
	RouteContent     = "/api/content"
	RouteContentType = "/api/content/{type}"
	RouteConfigKey   = "/api/config/{key}"
	RouteSendEmail   = "/api/send-email"
	RouteInbound     = "/api/webhooks/inbound"
	RouteStatus      = "/api/status"
	RouteEvents      = "/api/events"
	RouteJobs        = "/api/admin/jobs"
	RouteJobRun      = "/api/admin/jobs/{name}/run"
	RouteHealth      = "/health"
)

// RouterConfig holds the middleware settings of the router.
type RouterConfig struct {
	CORSOrigins   []string
	IsDevelopment bool

	// Public endpoint limiters; nil disables limiting.
	EmailLimiter   *middleware.RateLimiter
	WebhookLimiter *middleware.RateLimiter
}

// NewRouter mounts every endpoint on a chi router.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(h.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment)))
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSOrigins}))

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	requireAuth := middleware.RequireAuth(h.Auth.Tokens())

	r.Get(RouteHealth, h.Health)
	r.Get(RouteStatus, h.Status)

	// Auth
	if h.LoginGuard != nil {
		r.With(h.LoginGuard.Middleware()).Post(RouteLogin, h.Login)
	} else {
		r.Post(RouteLogin, h.Login)
	}
	r.Get(RouteVerify, h.Verify)

	// Public reads
	r.Get(RouteContent, h.BulkGet)
	r.Get(RouteContentType, h.GetContent)
	r.Get(RouteConfigKey, h.GetConfig)

	// Public writes
	r.With(limit(cfg.EmailLimiter)).Post(RouteSendEmail, h.SendEmail)
	r.With(limit(cfg.WebhookLimiter)).Post(RouteInbound, h.InboundWebhook)

	// Admin
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireAdmin)

		r.Get(RouteUsers, h.ListOrGetUsers)
		r.Post(RouteUsers, h.CreateUser)
		r.Put(RouteUsers, h.UpdateUser)
		r.Delete(RouteUsers, h.DeleteUser)
		r.Get(RouteUsersID, h.ListOrGetUsers)
		r.Put(RouteUsersID, h.UpdateUser)
		r.Delete(RouteUsersID, h.DeleteUser)

		r.Post(RouteContent, h.BulkImport)
		r.Post(RouteContentType, h.PutContent)
		r.Put(RouteContentType, h.PutContent)
		r.Delete(RouteContentType, h.DeleteContent)

		r.Post(RouteConfigKey, h.PutConfig)
		r.Put(RouteConfigKey, h.PutConfig)

		r.Get(RouteInbound, h.ListInbound)
		r.Get(RouteEvents, h.ListEvents)
		r.Get(RouteJobs, h.ListJobs)
		r.Post(RouteJobRun, h.RunJob)
	})

	return r
}

func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware()
}
