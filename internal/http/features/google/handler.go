// Package google serves the Google sign-in redirect flow.
package google

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tendant/gymdesk/internal/errutil"
	"github.com/tendant/gymdesk/internal/httputil"
	"github.com/tendant/gymdesk/pkg/domain"
)

// IdentityProvider runs the OAuth exchange. *auth.GoogleClient satisfies it.
type IdentityProvider interface {
	GenerateAuthURL(state, nonce string) string
	Authenticate(ctx context.Context, code, nonce string) (domain.ExternalIdentity, error)
}

// Accounts maps a federated identity to a local account and signs it in.
type Accounts interface {
	FindOrCreateGoogleUser(ctx context.Context, ident domain.ExternalIdentity, target domain.Role) (*domain.Principal, bool, error)
	GenerateToken(p *domain.Principal) (string, error)
	TokenTTL() time.Duration
}

// Handler handles Google OAuth endpoints.
type Handler struct {
	logger       *slog.Logger
	provider     IdentityProvider
	accounts     Accounts
	states       *StateStore
	frontendURL  string
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new Google handler.
func NewHandler(logger *slog.Logger, provider IdentityProvider, accounts Accounts, states *StateStore, frontendURL string, cookieConfig httputil.CookieConfig) *Handler {
	return &Handler{
		logger:       logger,
		provider:     provider,
		accounts:     accounts,
		states:       states,
		frontendURL:  frontendURL,
		cookieConfig: cookieConfig,
	}
}

// Start initiates the Google OAuth flow.
// GET /api/auth/google
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	state, err := generateRandomString(32)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	h.states.Put(state, nonce)
	http.Redirect(w, r, h.provider.GenerateAuthURL(state, nonce), http.StatusFound)
}

// Callback finishes the flow and hands the token to the frontend.
// Federated sign-in always resolves to a member account.
// GET /api/auth/google/callback?code=...&state=...
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		h.logger.Info("google sign-in cancelled", "error", e)
		h.fail(w, r, "access_denied")
		return
	}

	nonce, ok := h.states.Take(q.Get("state"))
	if !ok {
		h.logger.Warn("google callback with unknown or expired state", "remote_addr", r.RemoteAddr)
		h.fail(w, r, "invalid_state")
		return
	}

	ident, err := h.provider.Authenticate(r.Context(), q.Get("code"), nonce)
	if err != nil {
		errutil.LogError(h.logger, "google authentication failed", err)
		h.fail(w, r, "google_auth_failed")
		return
	}

	principal, isNew, err := h.accounts.FindOrCreateGoogleUser(r.Context(), ident, domain.RoleMember)
	if err != nil {
		errutil.LogError(h.logger, "google account resolution failed", err, "email", ident.Email)
		h.fail(w, r, "account_error")
		return
	}

	token, err := h.accounts.GenerateToken(principal)
	if err != nil {
		errutil.LogError(h.logger, "token generation failed", err, "user_id", principal.ID())
		h.fail(w, r, "token_error")
		return
	}

	h.logger.Info("google sign-in", "user_id", principal.ID(), "new_user", isNew)
	httputil.SetAuthCookie(w, token, h.accounts.TokenTTL(), h.cookieConfig)
	http.Redirect(w, r, h.callbackURL(url.Values{
		"token":     {token},
		"isNewUser": {strconv.FormatBool(isNew)},
	}), http.StatusFound)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.callbackURL(url.Values{"error": {code}}), http.StatusFound)
}

func (h *Handler) callbackURL(params url.Values) string {
	return h.frontendURL + "/auth/callback?" + params.Encode()
}
