package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/gymdesk/internal/httputil"
	"github.com/tendant/gymdesk/pkg/auth"
	"github.com/tendant/gymdesk/pkg/domain"
)

type stubVerifier map[string]*auth.Claims

func (s stubVerifier) VerifyToken(token string) (*auth.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, domain.ErrInvalidToken
}

var (
	adminClaims  = &auth.Claims{UserID: uuid.New(), Email: "admin@example.com", Role: domain.RoleAdmin}
	memberClaims = &auth.Claims{UserID: uuid.New(), Email: "ana@example.com", Role: domain.RoleMember}
	verifier     = stubVerifier{"admin-token": adminClaims, "member-token": memberClaims}
)

// echoClaims writes the caller's email, or "anonymous".
func echoClaims() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := GetClaims(r.Context()); ok {
			w.Write([]byte(c.Email))
			return
		}
		w.Write([]byte("anonymous"))
	})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantBody   string
		wantError  string
	}{
		{name: "bearer", header: "Bearer admin-token", wantStatus: http.StatusOK, wantBody: "admin@example.com"},
		{name: "lowercase scheme", header: "bearer member-token", wantStatus: http.StatusOK, wantBody: "ana@example.com"},
		{name: "cookie", cookie: "member-token", wantStatus: http.StatusOK, wantBody: "ana@example.com"},
		{name: "header wins over cookie", header: "Bearer admin-token", cookie: "member-token", wantStatus: http.StatusOK, wantBody: "admin@example.com"},
		{name: "missing", wantStatus: http.StatusUnauthorized, wantError: "missing authorization"},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantError: "missing authorization"},
		{name: "invalid", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantError: "invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: httputil.AuthCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			Authenticate(verifier)(echoClaims()).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				body := decodeError(t, w)
				assert.Equal(t, tt.wantError, body.Error)
				assert.Equal(t, "UNAUTHORIZED", body.Code)
				return
			}
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "anonymous", want: "anonymous"},
		{name: "valid", header: "Bearer admin-token", want: "admin@example.com"},
		{name: "invalid is anonymous", header: "Bearer nope", want: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			OptionalAuth(verifier)(echoClaims()).ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestAuthorize(t *testing.T) {
	handler := Authenticate(verifier)(Authorize(domain.RoleAdmin, domain.RoleStaff)(echoClaims()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer member-token")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "FORBIDDEN", body.Code)
	assert.Equal(t, domain.ErrNoPermission.Message, body.Error)
}

func TestAuthorize_WithoutAuthenticate(t *testing.T) {
	w := httptest.NewRecorder()
	Authorize(domain.RoleAdmin)(echoClaims()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWithClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithClaims(req.Context(), memberClaims)

	got, ok := GetClaims(ctx)
	require.True(t, ok)
	assert.Same(t, memberClaims, got)

	_, ok = GetClaims(req.Context())
	assert.False(t, ok)
}
