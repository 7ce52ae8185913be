package account

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/gymdesk/internal/config"
	"github.com/tendant/gymdesk/internal/http/features/common"
	"github.com/tendant/gymdesk/internal/http/middleware"
	"github.com/tendant/gymdesk/internal/httputil"
	"github.com/tendant/gymdesk/internal/memstore"
	"github.com/tendant/gymdesk/pkg/auth"
	"github.com/tendant/gymdesk/pkg/domain"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	handler *Handler
	service *auth.Service
	store   *memstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	svc := auth.NewService(auth.Config{TokenSecret: []byte("test-secret"), TokenExpiry: "1h"},
		store.Admins, store.Members, auth.NewBcryptHasher(bcrypt.MinCost))
	rules := common.InputRules{Passwords: auth.NewPasswordPolicy(config.PasswordPolicyConfig{MinLength: 8})}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		handler: NewHandler(logger, svc, rules, httputil.DefaultCookieConfig()),
		service: svc,
		store:   store,
	}
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asCaller(req *http.Request, id uuid.UUID, role domain.Role) *http.Request {
	return req.WithContext(middleware.WithClaims(req.Context(), &auth.Claims{UserID: id, Role: role}))
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func validMember() map[string]any {
	return map[string]any{
		"name":       "Ana Lima",
		"email":      "ana@example.com",
		"password":   "member-pass",
		"phone":      "555-0100",
		"documentId": "DOC-1",
		"birthDate":  "1990-05-01",
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	_, err := f.service.RegisterAdmin(ctx, auth.AdminRegistration{Name: "Owner", Email: "admin@example.com", Password: "password123", Role: domain.RoleAdmin})
	require.NoError(t, err)

	t.Run("success sets cookie and returns token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.handler.Login(rec, jsonRequest(http.MethodPost, "/api/auth/login", LoginRequest{Email: "ADMIN@example.com", Password: "password123"}))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, domain.RoleAdmin, resp.User.Role)
		assert.Nil(t, resp.User.CompleteProfile)

		claims, err := f.service.VerifyToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, claims.UserID)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, httputil.AuthCookieName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.handler.Login(rec, jsonRequest(http.MethodPost, "/api/auth/login", LoginRequest{Email: "admin@example.com", Password: "nope"}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid credentials", errorBody(t, rec).Error)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.handler.Login(rec, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@example.com"}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "password", errorBody(t, rec).Field)
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestRegister_Member(t *testing.T) {
	t.Run("creates member with account", func(t *testing.T) {
		f := newFixture(t)
		rec := httptest.NewRecorder()
		f.handler.Register(rec, jsonRequest(http.MethodPost, "/api/auth/register", validMember()))

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp RegisterResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, domain.RoleMember, resp.User.Role)
		require.NotNil(t, resp.User.CompleteProfile)
		assert.True(t, *resp.User.CompleteProfile)

		m, err := f.store.Members.GetByID(t.Context(), resp.User.ID)
		require.NoError(t, err)
		assert.True(t, m.HasAccount)
		assert.Equal(t, 1990, m.BirthDate.Year())
	})

	tests := []struct {
		name       string
		mutate     func(map[string]any)
		wantStatus int
		wantField  string
	}{
		{name: "missing phone", mutate: func(b map[string]any) { delete(b, "phone") }, wantStatus: http.StatusBadRequest, wantField: "phone"},
		{name: "missing birth date", mutate: func(b map[string]any) { delete(b, "birthDate") }, wantStatus: http.StatusBadRequest, wantField: "birthDate"},
		{name: "weak password", mutate: func(b map[string]any) { b["password"] = "short" }, wantStatus: http.StatusBadRequest, wantField: "password"},
		{name: "bad email", mutate: func(b map[string]any) { b["email"] = "nobody" }, wantStatus: http.StatusBadRequest, wantField: "email"},
		{name: "unknown role", mutate: func(b map[string]any) { b["role"] = "owner" }, wantStatus: http.StatusBadRequest, wantField: "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			body := validMember()
			tt.mutate(body)
			rec := httptest.NewRecorder()
			f.handler.Register(rec, jsonRequest(http.MethodPost, "/api/auth/register", body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantField, errorBody(t, rec).Field)
		})
	}

	t.Run("duplicate email and document", func(t *testing.T) {
		f := newFixture(t)
		rec := httptest.NewRecorder()
		f.handler.Register(rec, jsonRequest(http.MethodPost, "/api/auth/register", validMember()))
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = httptest.NewRecorder()
		f.handler.Register(rec, jsonRequest(http.MethodPost, "/api/auth/register", validMember()))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "email", errorBody(t, rec).Field)

		other := validMember()
		other["email"] = "other@example.com"
		rec = httptest.NewRecorder()
		f.handler.Register(rec, jsonRequest(http.MethodPost, "/api/auth/register", other))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "documentId", errorBody(t, rec).Field)
	})
}

func TestRegister_Administrative(t *testing.T) {
	body := map[string]any{"name": "Front Desk", "email": "desk@example.com", "password": "staff-pass", "role": "staff"}

	t.Run("anonymous is forbidden", func(t *testing.T) {
		f := newFixture(t)
		rec := httptest.NewRecorder()
		f.handler.Register(rec, jsonRequest(http.MethodPost, "/api/auth/register", body))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("staff caller is forbidden", func(t *testing.T) {
		f := newFixture(t)
		rec := httptest.NewRecorder()
		f.handler.Register(rec, asCaller(jsonRequest(http.MethodPost, "/api/auth/register", body), uuid.New(), domain.RoleStaff))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin caller creates staff", func(t *testing.T) {
		f := newFixture(t)
		rec := httptest.NewRecorder()
		f.handler.Register(rec, asCaller(jsonRequest(http.MethodPost, "/api/auth/register", body), uuid.New(), domain.RoleAdmin))

		require.Equal(t, http.StatusCreated, rec.Code)
		a, err := f.store.Admins.GetByEmail(t.Context(), "desk@example.com")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleStaff, a.Role)
	})
}

func TestRegisterAdmin(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handler.RegisterAdmin(rec, jsonRequest(http.MethodPost, "/api/auth/register-admin",
		RegisterAdminRequest{Name: "Owner Two", Email: "owner2@example.com", Password: "password123", Role: domain.RoleAdmin}))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.RegisterAdmin(rec, jsonRequest(http.MethodPost, "/api/auth/register-admin",
		RegisterAdminRequest{Name: "Owner Two", Email: "owner2@example.com", Password: "password123", Role: domain.RoleAdmin}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.RegisterAdmin(rec, jsonRequest(http.MethodPost, "/api/auth/register-admin",
		RegisterAdminRequest{Name: "Someone", Email: "m@example.com", Password: "password123", Role: domain.RoleMember}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "role", errorBody(t, rec).Field)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	m, err := f.service.RegisterMember(t.Context(), auth.MemberRegistration{Name: "Ana", Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.handler.Me(rec, asCaller(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), m.ID, domain.RoleMember))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User UserSummary `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ana@example.com", resp.User.Email)

	rec = httptest.NewRecorder()
	f.handler.Me(rec, asCaller(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), uuid.New(), domain.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.Me(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCompleteProfile(t *testing.T) {
	f := newFixture(t)
	p, isNew, err := f.service.FindOrCreateGoogleUser(t.Context(), domain.ExternalIdentity{Subject: "g-1", Email: "ana@example.com", Name: "Ana"}, domain.RoleMember)
	require.NoError(t, err)
	require.True(t, isNew)

	rec := httptest.NewRecorder()
	f.handler.CompleteProfile(rec, asCaller(jsonRequest(http.MethodPatch, "/api/auth/complete-profile",
		map[string]string{"phone": "555", "documentId": "DOC-7", "birthDate": "1991-02-03"}), p.ID(), domain.RoleMember))
	require.Equal(t, http.StatusOK, rec.Code)

	var m domain.Member
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&m))
	assert.True(t, m.CompleteProfile)
	assert.Equal(t, "DOC-7", *m.DocumentID)

	rec = httptest.NewRecorder()
	f.handler.CompleteProfile(rec, asCaller(jsonRequest(http.MethodPatch, "/api/auth/complete-profile",
		map[string]string{"phone": "555"}), p.ID(), domain.RoleMember))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
