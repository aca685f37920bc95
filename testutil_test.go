package sessionkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testUser() User {
	return User{
		ID:           "u-1",
		Email:        "a@b.com",
		FirstName:    "Asha",
		Role:         RoleSeller,
		Verified:     true,
		BusinessName: "Asha Traders",
	}
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAuthSuccess(w http.ResponseWriter, user User, access, refresh string) {
	writeJSON(w, http.StatusOK, authEnvelope{
		Success:      true,
		User:         &user,
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

func writeAuthFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, authEnvelope{Success: false, Error: msg})
}

// serveCSRF installs the bootstrap endpoint on mux, issuing the token as a
// cookie the way the backend does.
func serveCSRF(mux *http.ServeMux, counter *int32) {
	mux.HandleFunc("/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		if counter != nil {
			atomic.AddInt32(counter, 1)
		}
		http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "csrf-1", Path: "/"})
		writeJSON(w, http.StatusOK, csrfEnvelope{CSRFToken: "csrf-1"})
	})
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.HTTP.BaseURL = baseURL
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.Refresh.MaxRetries = 3
	cfg.Refresh.AttemptInterval = 0
	cfg.Refresh.InitialBackoff = time.Millisecond
	cfg.Refresh.MaxBackoff = 4 * time.Millisecond
	cfg.Refresh.ExpiryLeeway = 0
	cfg.RateLimit.DefaultCooldown = 200 * time.Millisecond
	cfg.RateLimit.MaxCooldown = time.Second
	return cfg
}

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*Config)) *Client {
	t.Helper()

	cfg := testConfig(srv.URL)
	if mutate != nil {
		mutate(&cfg)
	}

	client, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}
