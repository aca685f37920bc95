package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	sessionkit "github.com/vikareta/sessionkit"
)

// fakeBackend is a stateful stand-in for the auth API: login and refresh
// issue sequential token pairs, /me answers for any currently valid access
// token, logout revokes everything.
type fakeBackend struct {
	mu      sync.Mutex
	seq     int
	valid   map[string]bool // access tokens
	refresh map[string]bool // refresh tokens
	mux     *http.ServeMux
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{
		valid:   make(map[string]bool),
		refresh: make(map[string]bool),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "csrf", Path: "/"})
		jsonReply(w, http.StatusOK, map[string]string{"csrfToken": "csrf"})
	})
	mux.HandleFunc("/api/auth/login", b.login)
	mux.HandleFunc("/api/auth/me", b.me)
	mux.HandleFunc("/api/auth/refresh", b.rotate)
	mux.HandleFunc("/api/auth/logout", b.logout)
	b.mux = mux
	return b
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

func (b *fakeBackend) issue() (string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	access := fmt.Sprintf("at-%d", b.seq)
	refreshTok := fmt.Sprintf("rt-%d", b.seq)
	b.valid[access] = true
	b.refresh[refreshTok] = true
	return access, refreshTok
}

func (b *fakeBackend) authorized(r *http.Request) bool {
	const pfx = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(pfx) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.valid[h[len(pfx):]]
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Password != "pw" {
		jsonReply(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "invalid credentials"})
		return
	}
	access, refreshTok := b.issue()
	jsonReply(w, http.StatusOK, map[string]any{
		"success":      true,
		"user":         backendUser(creds.Email),
		"accessToken":  access,
		"refreshToken": refreshTok,
	})
}

func (b *fakeBackend) me(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		jsonReply(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "unauthorized"})
		return
	}
	jsonReply(w, http.StatusOK, map[string]any{"success": true, "user": backendUser("a@b.com")})
}

func (b *fakeBackend) rotate(w http.ResponseWriter, r *http.Request) {
	ck, err := r.Cookie("vikareta_refresh_token")
	b.mu.Lock()
	ok := err == nil && b.refresh[ck.Value]
	b.mu.Unlock()
	if !ok {
		jsonReply(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "refresh rejected"})
		return
	}
	access, refreshTok := b.issue()
	jsonReply(w, http.StatusOK, map[string]any{
		"success":      true,
		"user":         backendUser("a@b.com"),
		"accessToken":  access,
		"refreshToken": refreshTok,
	})
}

func (b *fakeBackend) logout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.valid = make(map[string]bool)
	b.refresh = make(map[string]bool)
	b.mu.Unlock()
	jsonReply(w, http.StatusOK, map[string]bool{"success": true})
}

// revokeAccess invalidates every access token but keeps refresh tokens, the
// normal expiry situation.
func (b *fakeBackend) revokeAccess() {
	b.mu.Lock()
	b.valid = make(map[string]bool)
	b.mu.Unlock()
}

func backendUser(email string) map[string]any {
	return map[string]any{
		"id":               "u-1",
		"email":            email,
		"firstName":        "Asha",
		"role":             "seller",
		"isVerified":       true,
		"verificationTier": "gold",
	}
}

func jsonReply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newBackendClient(t *testing.T) (*sessionkit.Client, *fakeBackend) {
	t.Helper()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := sessionkit.DefaultConfig()
	cfg.HTTP.BaseURL = srv.URL
	cfg.Refresh.AttemptInterval = 0
	cfg.Refresh.InitialBackoff = time.Millisecond
	cfg.Refresh.MaxBackoff = 4 * time.Millisecond

	client, err := sessionkit.New().WithConfig(cfg).WithMetrics().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client, backend
}
