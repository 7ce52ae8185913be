package google

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/gymdesk/internal/httputil"
	"github.com/tendant/gymdesk/internal/memstore"
	"github.com/tendant/gymdesk/pkg/auth"
	"github.com/tendant/gymdesk/pkg/domain"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProvider struct {
	ident     domain.ExternalIdentity
	err       error
	lastNonce string
}

func (f *fakeProvider) GenerateAuthURL(state, nonce string) string {
	return "https://accounts.example/auth?" + url.Values{"state": {state}, "nonce": {nonce}}.Encode()
}

func (f *fakeProvider) Authenticate(_ context.Context, code, nonce string) (domain.ExternalIdentity, error) {
	f.lastNonce = nonce
	if f.err != nil {
		return domain.ExternalIdentity{}, f.err
	}
	return f.ident, nil
}

func newTestHandler(t *testing.T, provider *fakeProvider) (*Handler, *auth.Service) {
	t.Helper()
	store := memstore.New()
	svc := auth.NewService(auth.Config{TokenSecret: []byte("test-secret"), TokenExpiry: "1h"},
		store.Admins, store.Members, auth.NewBcryptHasher(bcrypt.MinCost))
	states := NewStateStore(time.Hour)
	t.Cleanup(states.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, provider, svc, states, "http://app.example", httputil.DefaultCookieConfig()), svc
}

// start runs Start and returns the state and nonce it sent to the provider.
func start(t *testing.T, h *Handler) (string, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return loc.Query().Get("state"), loc.Query().Get("nonce")
}

func callback(h *Handler, query url.Values) *url.URL {
	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?"+query.Encode(), nil))
	loc, _ := url.Parse(rec.Header().Get("Location"))
	return loc
}

func TestCallback_NewMember(t *testing.T) {
	provider := &fakeProvider{ident: domain.ExternalIdentity{Subject: "g-1", Email: "ana@example.com", Name: "Ana"}}
	h, svc := newTestHandler(t, provider)

	state, nonce := start(t, h)
	require.NotEmpty(t, state)
	assert.NotEqual(t, state, nonce)

	loc := callback(h, url.Values{"state": {state}, "code": {"c"}})
	assert.Equal(t, "app.example", loc.Host)
	assert.Equal(t, "/auth/callback", loc.Path)
	assert.Equal(t, "true", loc.Query().Get("isNewUser"))
	assert.Equal(t, nonce, provider.lastNonce)

	claims, err := svc.VerifyToken(loc.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, claims.Role)
	assert.Equal(t, "ana@example.com", claims.Email)

	// Second sign-in resolves to the same account.
	state, _ = start(t, h)
	loc = callback(h, url.Values{"state": {state}, "code": {"c"}})
	assert.Equal(t, "false", loc.Query().Get("isNewUser"))
}

func TestCallback_Failures(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		query    func(state string) url.Values
		want     string
	}{
		{
			name:     "provider error param",
			provider: &fakeProvider{},
			query:    func(string) url.Values { return url.Values{"error": {"access_denied"}} },
			want:     "access_denied",
		},
		{
			name:     "unknown state",
			provider: &fakeProvider{},
			query:    func(string) url.Values { return url.Values{"state": {"forged"}, "code": {"c"}} },
			want:     "invalid_state",
		},
		{
			name:     "exchange fails",
			provider: &fakeProvider{err: errors.New("upstream down")},
			query:    func(s string) url.Values { return url.Values{"state": {s}, "code": {"c"}} },
			want:     "google_auth_failed",
		},
		{
			name:     "identity without email",
			provider: &fakeProvider{ident: domain.ExternalIdentity{Subject: "g-2"}},
			query:    func(s string) url.Values { return url.Values{"state": {s}, "code": {"c"}} },
			want:     "account_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, tt.provider)
			state, _ := start(t, h)

			loc := callback(h, tt.query(state))
			assert.Equal(t, tt.want, loc.Query().Get("error"))
			assert.Empty(t, loc.Query().Get("token"))
		})
	}
}

func TestCallback_StateIsSingleUse(t *testing.T) {
	provider := &fakeProvider{ident: domain.ExternalIdentity{Subject: "g-1", Email: "ana@example.com"}}
	h, _ := newTestHandler(t, provider)
	state, _ := start(t, h)

	loc := callback(h, url.Values{"state": {state}, "code": {"c"}})
	require.Empty(t, loc.Query().Get("error"))

	loc = callback(h, url.Values{"state": {state}, "code": {"c"}})
	assert.Equal(t, "invalid_state", loc.Query().Get("error"))
}

func TestStateStore_Expiry(t *testing.T) {
	s := NewStateStore(time.Hour)
	defer s.Close()

	base := time.Now()
	s.now = func() time.Time { return base }
	s.Put("a", "n-a")
	s.Put("b", "n-b")

	s.now = func() time.Time { return base.Add(stateTTL + time.Second) }
	_, ok := s.Take("a")
	assert.False(t, ok)

	s.purge()
	assert.Equal(t, 0, s.Len())
}
