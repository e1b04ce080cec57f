// Package auth guards the admin dashboard API.
package auth

import (
	"clipboard-sync/internal/config"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "clipsync_session"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDisabled           = errors.New("admin login is not configured")
)

type Authenticator struct {
	username string
	hash     []byte
	ttl      time.Duration
	sessions *cache.Cache
}

func New(cfg config.AdminConfig) *Authenticator {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Authenticator{
		username: cfg.Username,
		hash:     []byte(cfg.PasswordHash),
		ttl:      ttl,
		sessions: cache.New(ttl, time.Hour),
	}
}

func (a *Authenticator) Enabled() bool {
	return a.username != "" && len(a.hash) > 0
}

// TTL is how long a session stays valid.
func (a *Authenticator) TTL() time.Duration { return a.ttl }

// Login checks credentials and opens a session.
func (a *Authenticator) Login(username, password string) (string, error) {
	if !a.Enabled() {
		return "", ErrDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !userOK || passErr != nil {
		return "", ErrInvalidCredentials
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	a.sessions.Set(token, username, cache.DefaultExpiration)
	return token, nil
}

func (a *Authenticator) Logout(token string) {
	a.sessions.Delete(token)
}

// User returns the session owner for a valid token.
func (a *Authenticator) User(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	v, ok := a.sessions.Get(token)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// TokenFrom reads the bearer token or the session cookie.
func TokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Middleware rejects requests without a valid session.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := a.User(TokenFrom(r)); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status":"error","message":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashPassword returns the bcrypt hash to put in admin.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
