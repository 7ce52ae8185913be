// Package config loads gymdesk settings from the environment and an optional .env file.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tendant/gymdesk/pkg/repository"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string `mapstructure:"SERVER_ADDR"`
	ServerPort int    `mapstructure:"SERVER_PORT"`

	// Database. DatabaseURL wins over the DB_* parts when set.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      int    `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`

	// JWT
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	JWTExpiresIn string `mapstructure:"JWT_EXPIRES_IN"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`

	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// Google OAuth (optional)
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `mapstructure:"GOOGLE_REDIRECT_URI"`
	FrontendURL        string `mapstructure:"FRONTEND_URL"`

	CookieSecure       bool   `mapstructure:"COOKIE_SECURE"`
	CookieDomain       string `mapstructure:"COOKIE_DOMAIN"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	MigrateOnStart bool   `mapstructure:"MIGRATE_ON_START"`
	SeedOnStart    bool   `mapstructure:"SEED_ON_START"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`

	RateLimitConfig       RateLimitConfig       `mapstructure:",squash"`
	SecurityHeadersConfig SecurityHeadersConfig `mapstructure:",squash"`
	ValidationConfig      ValidationConfig      `mapstructure:",squash"`
	PasswordPolicyConfig  PasswordPolicyConfig  `mapstructure:",squash"`
}

// RateLimitConfig configures the per-IP request limiters.
type RateLimitConfig struct {
	Enabled      bool          `mapstructure:"RATE_LIMIT_ENABLED"`
	AuthRequests int           `mapstructure:"RATE_LIMIT_AUTH_REQUESTS"`
	AuthWindow   time.Duration `mapstructure:"RATE_LIMIT_AUTH_WINDOW"`
	APIRequests  int           `mapstructure:"RATE_LIMIT_API_REQUESTS"`
	APIWindow    time.Duration `mapstructure:"RATE_LIMIT_API_WINDOW"`
}

// SecurityHeadersConfig configures the response security headers.
type SecurityHeadersConfig struct {
	Enabled    bool `mapstructure:"SECURITY_HEADERS_ENABLED"`
	HSTSMaxAge int  `mapstructure:"SECURITY_HEADERS_HSTS_MAX_AGE"`
}

// ValidationConfig bounds request input.
type ValidationConfig struct {
	MaxRequestBodySize    int64 `mapstructure:"MAX_REQUEST_BODY_SIZE"`
	BlockDisposableEmails bool  `mapstructure:"BLOCK_DISPOSABLE_EMAILS"`
}

// PasswordPolicyConfig is the complexity required of new local passwords.
type PasswordPolicyConfig struct {
	MinLength        int  `mapstructure:"PASSWORD_MIN_LENGTH"`
	RequireUppercase bool `mapstructure:"PASSWORD_REQUIRE_UPPERCASE"`
	RequireLowercase bool `mapstructure:"PASSWORD_REQUIRE_LOWERCASE"`
	RequireNumber    bool `mapstructure:"PASSWORD_REQUIRE_NUMBER"`
	RequireSpecial   bool `mapstructure:"PASSWORD_REQUIRE_SPECIAL"`
}

var defaults = map[string]any{
	"SERVER_ADDR":                   "0.0.0.0",
	"SERVER_PORT":                   3000,
	"DATABASE_URL":                  "",
	"DB_HOST":                       "localhost",
	"DB_PORT":                       5432,
	"DB_USER":                       "postgres",
	"DB_PASSWORD":                   "postgres",
	"DB_NAME":                       "gym_system",
	"DB_SSLMODE":                    "disable",
	"JWT_SECRET":                    "",
	"JWT_EXPIRES_IN":                "30d",
	"JWT_ISSUER":                    "gymdesk",
	"BCRYPT_COST":                   10,
	"GOOGLE_CLIENT_ID":              "",
	"GOOGLE_CLIENT_SECRET":          "",
	"GOOGLE_REDIRECT_URI":           "",
	"FRONTEND_URL":                  "http://localhost:5173",
	"COOKIE_SECURE":                 false,
	"COOKIE_DOMAIN":                 "",
	"CORS_ALLOWED_ORIGINS":          "*",
	"MIGRATE_ON_START":              true,
	"SEED_ON_START":                 true,
	"LOG_LEVEL":                     "info",
	"RATE_LIMIT_ENABLED":            true,
	"RATE_LIMIT_AUTH_REQUESTS":      10,
	"RATE_LIMIT_AUTH_WINDOW":        "1m",
	"RATE_LIMIT_API_REQUESTS":       120,
	"RATE_LIMIT_API_WINDOW":         "1m",
	"SECURITY_HEADERS_ENABLED":      true,
	"SECURITY_HEADERS_HSTS_MAX_AGE": 0,
	"MAX_REQUEST_BODY_SIZE":         1 << 20,
	"BLOCK_DISPOSABLE_EMAILS":       false,
	"PASSWORD_MIN_LENGTH":           8,
	"PASSWORD_REQUIRE_UPPERCASE":    false,
	"PASSWORD_REQUIRE_LOWERCASE":    false,
	"PASSWORD_REQUIRE_NUMBER":       false,
	"PASSWORD_REQUIRE_SPECIAL":      false,
}

// Load reads .env when present, then the environment. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET is required")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.ServerPort <= 0 {
		return nil, errors.New("config: SERVER_PORT must be positive")
	}

	return &cfg, nil
}

// HasGoogleOAuth returns true if Google OAuth is configured.
func (c *Config) HasGoogleOAuth() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Database returns the connection settings for repository.NewDB.
func (c *Config) Database() repository.Config {
	return repository.Config{
		URL:      c.DatabaseURL,
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
