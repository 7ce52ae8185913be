// Package gym wires the gym management backend from a database handle and
// exposes it as an http.Handler.
//
// Setup:
//
//  1. Apply the migrations (gymdesk migrate up)
//  2. Create a Gym and mount its router
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/gym_system?sslmode=disable")
//
//	g, err := gym.New(gym.Config{
//	    DB:        db,
//	    JWTSecret: "your-secret-key-at-least-32-chars",
//	})
//	if err != nil {
//	    log.Fatal(err) // fails if migrations haven't been run
//	}
//	defer g.Close()
//
//	http.ListenAndServe(":3000", g.Router())
package gym

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/gymdesk/internal/config"
	httpserver "github.com/tendant/gymdesk/internal/http"
	"github.com/tendant/gymdesk/internal/http/features/common"
	"github.com/tendant/gymdesk/internal/http/features/google"
	"github.com/tendant/gymdesk/internal/http/middleware"
	"github.com/tendant/gymdesk/internal/httputil"
	"github.com/tendant/gymdesk/internal/seed"
	"github.com/tendant/gymdesk/pkg/auth"
	"github.com/tendant/gymdesk/pkg/repository"
	"github.com/tendant/gymdesk/pkg/subscriptions"
)

// Config holds the configuration for a Gym.
type Config struct {
	// DB is the database connection (required).
	DB *sql.DB

	// JWTSecret signs access tokens (required, min 32 chars).
	JWTSecret string

	// JWTExpiresIn is the token lifetime, e.g. "30d" or "12h" (default: 30d).
	JWTExpiresIn string

	// JWTIssuer is the iss claim (default: "gymdesk").
	JWTIssuer string

	// BcryptCost is the password hashing cost (default: 10).
	BcryptCost int

	// Google enables Google sign-in (optional).
	Google *GoogleConfig

	// FrontendURL receives the Google callback redirect.
	FrontendURL string

	CookieSecure       bool
	CookieDomain       string
	CORSAllowedOrigins []string

	PasswordPolicy  config.PasswordPolicyConfig
	RateLimit       config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig

	// Metrics receives the HTTP collectors and backs /metrics (optional).
	Metrics *prometheus.Registry

	// Logger is the structured logger (default: JSON on stdout).
	Logger *slog.Logger
}

// GoogleConfig holds Google OAuth configuration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Gym is a wired gym management backend.
type Gym struct {
	config          Config
	adminsRepo      *repository.AdminsRepository
	membersRepo     *repository.MembersRepository
	membershipsRepo *repository.MembershipsRepository
	subsRepo        *repository.SubscriptionsRepository
	authService     *auth.Service
	subsService     *subscriptions.Service
	googleClient    *auth.GoogleClient
	oauthStates     *google.StateStore
	metrics         *middleware.Metrics
	seeder          *seed.Seeder
}

// FromConfig maps application settings onto a Gym Config.
func FromConfig(cfg *config.Config, db *sql.DB, logger *slog.Logger) Config {
	c := Config{
		DB:                 db,
		JWTSecret:          cfg.JWTSecret,
		JWTExpiresIn:       cfg.JWTExpiresIn,
		JWTIssuer:          cfg.JWTIssuer,
		BcryptCost:         cfg.BcryptCost,
		FrontendURL:        cfg.FrontendURL,
		CookieSecure:       cfg.CookieSecure,
		CookieDomain:       cfg.CookieDomain,
		CORSAllowedOrigins: cfg.AllowedOrigins(),
		PasswordPolicy:     cfg.PasswordPolicyConfig,
		RateLimit:          cfg.RateLimitConfig,
		SecurityHeaders:    cfg.SecurityHeadersConfig,
		Validation:         cfg.ValidationConfig,
		Logger:             logger,
	}
	if cfg.HasGoogleOAuth() {
		c.Google = &GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURI:  cfg.GoogleRedirectURI,
		}
	}
	return c
}

// New creates a Gym. It returns an error if the schema has not been migrated.
func New(cfg Config) (*Gym, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := validateSchema(cfg.DB); err != nil {
		return nil, err
	}
	return build(cfg), nil
}

func build(cfg Config) *Gym {
	adminsRepo := repository.NewAdminsRepository(cfg.DB)
	membersRepo := repository.NewMembersRepository(cfg.DB)
	membershipsRepo := repository.NewMembershipsRepository(cfg.DB)
	subsRepo := repository.NewSubscriptionsRepository(cfg.DB)

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	authService := auth.NewService(auth.Config{
		TokenSecret: []byte(cfg.JWTSecret),
		TokenExpiry: cfg.JWTExpiresIn,
		TokenIssuer: cfg.JWTIssuer,
	}, adminsRepo, membersRepo, hasher)

	g := &Gym{
		config:          cfg,
		adminsRepo:      adminsRepo,
		membersRepo:     membersRepo,
		membershipsRepo: membershipsRepo,
		subsRepo:        subsRepo,
		authService:     authService,
		subsService:     subscriptions.NewService(membersRepo, membershipsRepo, subsRepo),
		seeder:          seed.New(cfg.Logger, membershipsRepo, adminsRepo, hasher),
	}

	if cfg.Google != nil {
		g.googleClient = auth.NewGoogleClient(auth.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURI:  cfg.Google.RedirectURI,
		})
		g.oauthStates = google.NewStateStore(google.DefaultCleanupInterval)
		cfg.Logger.Warn("Google OAuth: using in-memory state storage (not safe for multi-replica)")
	}
	if cfg.Metrics != nil {
		g.metrics = middleware.NewMetrics(cfg.Metrics)
	}
	return g
}

// Router returns the HTTP handler with every route under /api plus /health and /metrics.
func (g *Gym) Router() http.Handler {
	rc := httpserver.RouterConfig{
		Logger:        g.config.Logger,
		Accounts:      g.authService,
		Members:       g.membersRepo,
		Plans:         g.membershipsRepo,
		Subscriptions: g.subsRepo,
		Subscriber:    g.subsService,
		FrontendURL:   g.config.FrontendURL,
		Cookie: httputil.CookieConfig{
			Domain:   g.config.CookieDomain,
			Path:     "/",
			Secure:   g.config.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		},
		Input: common.InputRules{
			Passwords:       auth.NewPasswordPolicy(g.config.PasswordPolicy),
			BlockDisposable: g.config.Validation.BlockDisposableEmails,
		},
		CORSOrigins:     g.config.CORSAllowedOrigins,
		RateLimitConfig: g.config.RateLimit,
		SecurityHeaders: g.config.SecurityHeaders,
		Validation:      g.config.Validation,
	}
	if g.googleClient != nil {
		rc.Google = g.googleClient
		rc.OAuthStates = g.oauthStates
	}
	if g.metrics != nil {
		rc.Metrics = g.metrics
		rc.Gatherer = g.config.Metrics
	}
	return httpserver.NewRouter(rc)
}

// Seed inserts the membership catalog and the default accounts into empty tables.
func (g *Gym) Seed(ctx context.Context) error {
	if _, err := g.seeder.Memberships(ctx, false); err != nil {
		return err
	}
	_, err := g.seeder.Admins(ctx, false)
	return err
}

// Seeder returns the seeder for explicit reseeding.
func (g *Gym) Seeder() *seed.Seeder {
	return g.seeder
}

// AuthService returns the account service for advanced usage.
func (g *Gym) AuthService() *auth.Service {
	return g.authService
}

// AuthMiddleware returns middleware that validates access tokens.
// Use this to protect your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(g.AuthMiddleware())
//	    r.Get("/protected", handler)
//	})
func (g *Gym) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Authenticate(g.authService)
}

// Close stops background work. It does not close the database.
func (g *Gym) Close() {
	if g.oauthStates != nil {
		g.oauthStates.Close()
	}
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("gym: DB is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("gym: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("gym: JWTSecret must be at least 32 characters")
	}
	if cfg.Google != nil {
		if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
			return errors.New("gym: Google ClientID and ClientSecret are required when Google is configured")
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "gymdesk"
	}
	if cfg.JWTExpiresIn == "" {
		cfg.JWTExpiresIn = "30d"
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 10
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:5173"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}

// validateSchema checks that required database tables exist.
func validateSchema(db *sql.DB) error {
	requiredTables := []string{"admins", "members", "memberships", "subscriptions"}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRow(query, table).Scan(&name)
		if err == sql.ErrNoRows {
			return fmt.Errorf("gym: missing table '%s' - run migrations first (gymdesk migrate up)", table)
		}
		if err != nil {
			return fmt.Errorf("gym: failed to check schema: %w", err)
		}
	}

	return nil
}
