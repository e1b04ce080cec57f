package auth

import (
	"clipboard-sync/internal/config"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	return New(config.AdminConfig{Username: "admin", PasswordHash: hash})
}

func TestLogin(t *testing.T) {
	a := newTestAuth(t)

	_, err := a.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Login("root", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := a.Login("admin", "s3cret")
	require.NoError(t, err)
	user, ok := a.User(token)
	assert.True(t, ok)
	assert.Equal(t, "admin", user)

	a.Logout(token)
	_, ok = a.User(token)
	assert.False(t, ok)
}

func TestLoginDisabled(t *testing.T) {
	a := New(config.AdminConfig{})
	assert.False(t, a.Enabled())
	_, err := a.Login("admin", "x")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestMiddleware(t *testing.T) {
	a := newTestAuth(t)
	token, err := a.Login("admin", "s3cret")
	require.NoError(t, err)

	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
