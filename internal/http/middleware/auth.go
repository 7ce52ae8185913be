package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/tendant/gymdesk/internal/httputil"
	"github.com/tendant/gymdesk/pkg/auth"
	"github.com/tendant/gymdesk/pkg/domain"
)

type contextKey string

// ClaimsKey is the context key for the verified token claims.
const ClaimsKey contextKey = "claims"

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// bearerToken reads the Authorization header first, then the auth cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if token, ok := httputil.GetAuthTokenFromCookie(r); ok {
		return token
	}
	return ""
}

func unauthorized(w http.ResponseWriter, err *domain.Error) {
	httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Message)
}

// Authenticate rejects requests without a valid token and stores its claims in the context.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, domain.ErrMissingAuthorization)
				return
			}
			claims, err := tokens.VerifyToken(token)
			if err != nil {
				unauthorized(w, domain.ErrInvalidToken)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClaimsKey, claims)))
		})
	}
}

// OptionalAuth stores claims when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if claims, err := tokens.VerifyToken(token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ClaimsKey, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authorize allows only principals holding one of roles. It must run after Authenticate.
func Authorize(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				unauthorized(w, domain.ErrMissingAuthorization)
				return
			}
			if !slices.Contains(roles, claims.Role) {
				httputil.Error(w, http.StatusForbidden, "FORBIDDEN", domain.ErrNoPermission.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims extracts the token claims from the request context.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

// WithClaims returns ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
