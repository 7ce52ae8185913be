package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/gymdesk/pkg/domain"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
		wantField  string
		wantLogged bool
	}{
		{"validation", domain.NewError(domain.ErrValidation, "name is required").WithField("name"), 400, "VALIDATION_ERROR", "name is required", "name", false},
		{"conflict", domain.ErrEmailAlreadyRegistered, 409, "CONFLICT", "email is already registered", "email", false},
		{"not found", domain.ErrMemberNotFound, 404, "NOT_FOUND", "member not found", "", false},
		{"unauthorized", domain.ErrInvalidToken, 401, "UNAUTHORIZED", "invalid or expired token", "", false},
		{"forbidden", domain.ErrNoPermission, 403, "FORBIDDEN", "you do not have permission to perform this action", "", false},
		{"wrapped kind", oops.Wrap(domain.ErrSubscriptionNotFound), 404, "NOT_FOUND", "subscription not found", "", false},
		{"fault", oops.Code("MEMBER_LIST_FAILED").Wrap(errors.New("conn reset")), 500, "INTERNAL_ERROR", "internal server error", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logs, nil))
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/members", nil)

			WriteError(w, logger, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Error)
			assert.Equal(t, tt.wantField, body.Field)
			assert.Equal(t, tt.wantLogged, logs.Len() > 0)
		})
	}
}

type registerBody struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin staff"`
	Birth *Date  `json:"birthDate"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantField string
	}{
		{name: "valid", body: `{"name":"Ana","email":"ana@example.com","birthDate":"1990-05-01"}`},
		{name: "rfc3339 date", body: `{"name":"Ana","email":"ana@example.com","birthDate":"1990-05-01T00:00:00Z"}`},
		{name: "missing name", body: `{"email":"ana@example.com"}`, wantErr: true, wantField: "name"},
		{name: "bad email", body: `{"name":"Ana","email":"nope"}`, wantErr: true, wantField: "email"},
		{name: "bad role", body: `{"name":"Ana","email":"ana@example.com","role":"owner"}`, wantErr: true, wantField: "role"},
		{name: "bad date", body: `{"name":"Ana","email":"ana@example.com","birthDate":"May 1"}`, wantErr: true},
		{name: "malformed", body: `{"name":`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst registerBody
			err := Decode(r, &dst)
			if !tt.wantErr {
				require.NoError(t, err)
				require.NotNil(t, dst.Birth)
				assert.Equal(t, time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC), dst.Birth.Time.UTC())
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			if tt.wantField != "" {
				var derr *domain.Error
				require.ErrorAs(t, err, &derr)
				assert.Equal(t, tt.wantField, derr.Field)
			}
		})
	}
}

func TestPageRequest(t *testing.T) {
	tests := []struct {
		query string
		want  domain.PageRequest
	}{
		{"", domain.PageRequest{Page: 1, Limit: 10}},
		{"page=3&limit=25", domain.PageRequest{Page: 3, Limit: 25}},
		{"page=0&limit=1000", domain.PageRequest{Page: 1, Limit: 100}},
		{"page=x&limit=y", domain.PageRequest{Page: 1, Limit: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			assert.Equal(t, tt.want, PageRequest(r))
		})
	}
}

func TestQueryParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?active=true&from=2024-01-02&bad=maybe&sortOrder=sideways", nil)

	active, err := QueryBool(r, "active")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, *active)

	missing, err := QueryBool(r, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = QueryBool(r, "bad")
	assert.ErrorIs(t, err, domain.ErrValidation)

	from, err := QueryTime(r, "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *from)

	_, err = SortOrder(r)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAuthCookie(t *testing.T) {
	cfg := DefaultCookieConfig()
	w := httptest.NewRecorder()
	SetAuthCookie(w, "tok", time.Hour, cfg)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AuthCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	token, ok := GetAuthTokenFromCookie(r)
	assert.True(t, ok)
	assert.Equal(t, "tok", token)

	w = httptest.NewRecorder()
	ClearAuthCookie(w, cfg)
	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}
