package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"plus-api/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) (*Auth, *service.TokenService) {
	t.Helper()
	tokens, err := service.NewTokenService("0123456789abcdef0123456789abcdef", 0)
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-key"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuth(AuthConfig{TokenService: tokens, AdminKeyHash: string(hash), Logger: zap.NewNop()}), tokens
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if data := GetTokenDataFromContext(r.Context()); data != nil {
		w.Write([]byte(data.PlayerUUID.String()))
	}
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuth_RequirePlayer(t *testing.T) {
	auth, tokens := newTestAuth(t)
	player := uuid.New()
	token, _, err := tokens.GenerateToken(player)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/cosmetics/player", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(auth.RequirePlayer(okHandler), req).Code)

	req = httptest.NewRequest(http.MethodPut, "/cosmetics/player", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(auth.RequirePlayer(okHandler), req).Code)

	req = httptest.NewRequest(http.MethodPut, "/cosmetics/player", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := serve(auth.RequirePlayer(okHandler), req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, player.String(), rec.Body.String())
}

func TestAuth_OptionalPlayer(t *testing.T) {
	auth, _ := newTestAuth(t)

	req := httptest.NewRequest(http.MethodGet, "/cosmetics/player", nil)
	rec := serve(auth.OptionalPlayer(okHandler), req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/cosmetics/player", nil)
	req.Header.Set("Authorization", "Bearer expired.or.bad")
	assert.Equal(t, http.StatusUnauthorized, serve(auth.OptionalPlayer(okHandler), req).Code)
}

func TestAuth_RequireAdmin(t *testing.T) {
	auth, _ := newTestAuth(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(auth.RequireAdmin(okHandler), req).Code)

	req.Header.Set(AdminKeyHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, serve(auth.RequireAdmin(okHandler), req).Code)

	req.Header.Set(AdminKeyHeader, "admin-key")
	assert.Equal(t, http.StatusOK, serve(auth.RequireAdmin(okHandler), req).Code)

	unconfigured := NewAuth(AuthConfig{})
	assert.Equal(t, http.StatusForbidden, serve(unconfigured.RequireAdmin(okHandler), req).Code)
}

func TestRecovery_ReturnsJSON500(t *testing.T) {
	h := NewRecovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestRequestID_PropagatesOrGenerates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := serve(h, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "abc-123", seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestLogging_CapturesStatus(t *testing.T) {
	h := NewLogging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
