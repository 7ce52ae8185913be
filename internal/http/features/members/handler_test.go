package members

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/gymdesk/internal/http/features/common"
	"github.com/tendant/gymdesk/internal/http/middleware"
	"github.com/tendant/gymdesk/internal/httputil"
	"github.com/tendant/gymdesk/internal/memstore"
	"github.com/tendant/gymdesk/pkg/auth"
	"github.com/tendant/gymdesk/pkg/domain"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	router  http.Handler
	store   *memstore.Store
	service *auth.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	svc := auth.NewService(auth.Config{TokenSecret: []byte("test-secret")},
		store.Admins, store.Members, auth.NewBcryptHasher(bcrypt.MinCost))
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), store.Members, svc, common.InputRules{})

	r := chi.NewRouter()
	r.Post("/members", h.Create)
	r.Get("/members", h.List)
	r.Get("/members/{id}", h.Get)
	r.Put("/members/{id}", h.Update)
	r.Delete("/members/{id}", h.Delete)
	return &fixture{router: r, store: store, service: svc}
}

func (f *fixture) do(method, target string, body any, caller *auth.Claims) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if caller != nil {
		req = req.WithContext(middleware.WithClaims(req.Context(), caller))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) member(t *testing.T, name, email, doc string) *domain.Member {
	t.Helper()
	reg := auth.MemberRegistration{Name: name, Email: email}
	if doc != "" {
		reg.DocumentID = &doc
	}
	m, err := f.service.RegisterMember(t.Context(), reg)
	require.NoError(t, err)
	return m
}

var staff = &auth.Claims{UserID: uuid.New(), Role: domain.RoleStaff}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/members", map[string]any{
		"name": "Ana Lima", "email": "Ana@Example.com", "phone": "555", "documentId": "DOC-1", "birthDate": "1990-05-01",
	}, staff)
	require.Equal(t, http.StatusCreated, rec.Code)

	var m domain.Member
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&m))
	assert.Equal(t, "ana@example.com", m.Email)
	assert.False(t, m.HasAccount)
	assert.True(t, m.CompleteProfile)

	stored, err := f.store.Members.GetByID(t.Context(), m.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PasswordHash)

	rec = f.do(http.MethodPost, "/members", map[string]any{"name": "Other", "email": "other@example.com", "documentId": "DOC-1"}, staff)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPost, "/members", map[string]any{"name": "No Email"}, staff)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	f.member(t, "Carla", "carla@example.com", "")
	f.member(t, "Ana", "ana@example.com", "")
	f.member(t, "Bruno", "bruno@example.com", "")

	rec := f.do(http.MethodGet, "/members?sortBy=name&sortOrder=asc&limit=2", nil, staff)
	require.Equal(t, http.StatusOK, rec.Code)

	var page domain.Page[domain.Member]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNextPage)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Ana", page.Data[0].Name)
	assert.Equal(t, "Bruno", page.Data[1].Name)

	rec = f.do(http.MethodGet, "/members?name=carl", nil, staff)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 1, page.Total)

	tests := []string{"sortBy=phone", "sortOrder=up", "active=perhaps", "registrationDateFrom=yesterday"}
	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			rec := f.do(http.MethodGet, "/members?"+q, nil, staff)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGet_Access(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "Ana", "ana@example.com", "")
	bo := f.member(t, "Bo", "bo@example.com", "")

	self := &auth.Claims{UserID: ana.ID, Role: domain.RoleMember}
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/members/"+ana.ID.String(), nil, self).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/members/"+bo.ID.String(), nil, self).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/members/"+bo.ID.String(), nil, staff).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/members/"+uuid.NewString(), nil, staff).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/members/"+ana.ID.String(), nil, nil).Code)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "Ana", "ana@example.com", "DOC-A")
	bo := f.member(t, "Bo", "bo@example.com", "DOC-B")
	self := &auth.Claims{UserID: ana.ID, Role: domain.RoleMember}

	t.Run("member edits own contact details", func(t *testing.T) {
		rec := f.do(http.MethodPut, "/members/"+ana.ID.String(), map[string]any{"phone": "555-0100", "name": "  Ana   Lima "}, self)
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := f.store.Members.GetByID(t.Context(), ana.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana Lima", stored.Name)
		assert.Equal(t, "555-0100", *stored.Phone)
		assert.True(t, stored.CompleteProfile)
	})

	t.Run("member cannot deactivate", func(t *testing.T) {
		rec := f.do(http.MethodPut, "/members/"+ana.ID.String(), map[string]any{"active": false}, self)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("staff deactivates", func(t *testing.T) {
		rec := f.do(http.MethodPut, "/members/"+ana.ID.String(), map[string]any{"active": false}, staff)
		require.Equal(t, http.StatusOK, rec.Code)
		stored, _ := f.store.Members.GetByID(t.Context(), ana.ID)
		assert.False(t, stored.Active)
	})

	t.Run("document taken by another member", func(t *testing.T) {
		rec := f.do(http.MethodPut, "/members/"+ana.ID.String(), map[string]any{"documentId": "DOC-B"}, staff)
		assert.Equal(t, http.StatusConflict, rec.Code)

		var body httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "documentId", body.Field)
	})

	t.Run("keeping own document", func(t *testing.T) {
		rec := f.do(http.MethodPut, "/members/"+bo.ID.String(), map[string]any{"documentId": "DOC-B"}, staff)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("email taken", func(t *testing.T) {
		rec := f.do(http.MethodPut, "/members/"+bo.ID.String(), map[string]any{"email": "ANA@example.com"}, staff)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("clearing phone and document reopens the profile", func(t *testing.T) {
		rec := f.do(http.MethodPut, "/members/"+ana.ID.String(), map[string]any{"phone": "", "documentId": ""}, staff)
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := f.store.Members.GetByID(t.Context(), ana.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.Phone)
		assert.Nil(t, stored.DocumentID)
		assert.False(t, stored.CompleteProfile)

		rec = f.do(http.MethodPut, "/members/"+ana.ID.String(), map[string]any{"phone": "555-0199", "documentId": "DOC-A"}, staff)
		require.Equal(t, http.StatusOK, rec.Code)
		stored, err = f.store.Members.GetByID(t.Context(), ana.ID)
		require.NoError(t, err)
		assert.True(t, stored.CompleteProfile)
	})
}

func TestDelete_CascadesSubscriptions(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "Ana", "ana@example.com", "")
	require.NoError(t, f.store.Subscriptions.Create(t.Context(), &domain.Subscription{ID: uuid.New(), MemberID: ana.ID, MembershipID: uuid.New()}))

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/members/"+ana.ID.String(), nil, staff).Code)

	subs, err := f.store.Subscriptions.ListByMember(t.Context(), ana.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/members/"+ana.ID.String(), nil, staff).Code)
}
