package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/gymdesk/internal/config"
	"github.com/tendant/gymdesk/internal/http/features/account"
	"github.com/tendant/gymdesk/internal/http/features/common"
	"github.com/tendant/gymdesk/internal/http/features/google"
	"github.com/tendant/gymdesk/internal/http/features/members"
	"github.com/tendant/gymdesk/internal/http/features/memberships"
	"github.com/tendant/gymdesk/internal/http/features/subscriptions"
	"github.com/tendant/gymdesk/internal/http/middleware"
	"github.com/tendant/gymdesk/internal/httputil"
	"github.com/tendant/gymdesk/pkg/domain"
)

// Accounts is the account service the routes depend on.
type Accounts interface {
	account.Service
	google.Accounts
	members.Registrar
	middleware.TokenVerifier
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger   *slog.Logger
	Accounts Accounts

	Members       members.Store
	Plans         memberships.Store
	Subscriptions subscriptions.Store
	Subscriber    subscriptions.Creator

	// Google enables federated login when non-nil. OAuthStates must then be set too.
	Google      google.IdentityProvider
	OAuthStates *google.StateStore
	FrontendURL string

	Cookie          httputil.CookieConfig
	Input           common.InputRules
	CORSOrigins     []string
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig

	// Metrics and Gatherer are optional; /metrics is only mounted with a Gatherer.
	Metrics  *middleware.Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)
	authenticated := middleware.Authenticate(cfg.Accounts)
	administrative := middleware.Authorize(domain.RoleAdmin, domain.RoleStaff)
	adminOnly := middleware.Authorize(domain.RoleAdmin)

	accountHandler := account.NewHandler(cfg.Logger, cfg.Accounts, cfg.Input, cfg.Cookie)
	membershipHandler := memberships.NewHandler(cfg.Logger, cfg.Plans)
	memberHandler := members.NewHandler(cfg.Logger, cfg.Members, cfg.Accounts, cfg.Input)
	subscriptionHandler := subscriptions.NewHandler(cfg.Logger, cfg.Subscriptions, cfg.Subscriber)

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimiters["api"])

		r.Route("/auth", func(r chi.Router) {
			r.With(rateLimiters["auth"]).Post("/login", accountHandler.Login)
			r.Post("/logout", accountHandler.Logout)
			r.With(rateLimiters["auth"], middleware.OptionalAuth(cfg.Accounts)).Post("/register", accountHandler.Register)
			r.With(rateLimiters["auth"], authenticated, adminOnly).Post("/register-admin", accountHandler.RegisterAdmin)
			r.With(authenticated).Get("/me", accountHandler.Me)
			r.With(authenticated, middleware.Authorize(domain.RoleMember)).Patch("/complete-profile", accountHandler.CompleteProfile)

			if cfg.Google != nil {
				googleHandler := google.NewHandler(cfg.Logger, cfg.Google, cfg.Accounts, cfg.OAuthStates, cfg.FrontendURL, cfg.Cookie)
				r.Get("/google", googleHandler.Start)
				r.Get("/google/callback", googleHandler.Callback)
			}
		})

		r.Route("/memberships", func(r chi.Router) {
			r.Get("/", membershipHandler.List)
			r.Get("/{id}", membershipHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(authenticated, adminOnly)
				r.Post("/", membershipHandler.Create)
				r.Put("/{id}", membershipHandler.Update)
				r.Delete("/{id}", membershipHandler.Delete)
			})
		})

		r.Route("/members", func(r chi.Router) {
			r.Use(authenticated)
			r.With(administrative).Post("/", memberHandler.Create)
			r.With(administrative).Get("/", memberHandler.List)
			r.Get("/{id}", memberHandler.Get)
			r.Put("/{id}", memberHandler.Update)
			r.With(adminOnly).Delete("/{id}", memberHandler.Delete)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/", subscriptionHandler.Create)
			r.With(administrative).Get("/", subscriptionHandler.List)
			r.Get("/member/{memberId}", subscriptionHandler.ListByMember)
			r.Get("/member/{memberId}/active", subscriptionHandler.Active)
			r.Get("/{id}", subscriptionHandler.Get)
			r.With(administrative).Put("/{id}", subscriptionHandler.Update)
			r.With(adminOnly).Delete("/{id}", subscriptionHandler.Delete)
		})
	})

	return r
}
