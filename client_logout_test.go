package sessionkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestLogoutClearsLocallyAndRemotely(t *testing.T) {
	var logoutCalls int32
	mux := http.NewServeMux()
	serveCSRF(mux, nil)
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeAuthSuccess(w, testUser(), "t1", "r1")
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logoutCalls, 1)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	loginSeed(t, c)

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout returned %v, must always be nil", err)
	}
	if atomic.LoadInt32(&logoutCalls) != 1 {
		t.Fatal("expected one remote logout call")
	}
	if c.IsAuthenticated() {
		t.Fatal("session must be cleared")
	}
	snap, _ := c.store.Load(context.Background())
	if !snap.Empty() {
		t.Fatalf("store must be cleared, got %+v", snap)
	}
}

func TestLogoutClearsLocalStateBeforeRemoteNotify(t *testing.T) {
	var c *Client
	var sawAuthenticated, sawBearer int32
	mux := http.NewServeMux()
	serveCSRF(mux, nil)
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeAuthSuccess(w, testUser(), "t1", "r1")
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		// Observed mid-flight: the caller must already be logged out.
		if c.IsAuthenticated() {
			atomic.StoreInt32(&sawAuthenticated, 1)
		}
		if r.Header.Get("Authorization") == "Bearer t1" {
			atomic.StoreInt32(&sawBearer, 1)
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c = newTestClient(t, srv, nil)
	loginSeed(t, c)

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout returned %v", err)
	}
	if atomic.LoadInt32(&sawAuthenticated) == 1 {
		t.Fatal("local session must be cleared before the remote notify goes out")
	}
	if atomic.LoadInt32(&sawBearer) != 1 {
		t.Fatal("remote notify must carry the token captured before the clear")
	}
}

func TestLogoutSucceedsWhenNetworkDown(t *testing.T) {
	mux := http.NewServeMux()
	serveCSRF(mux, nil)
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeAuthSuccess(w, testUser(), "t1", "r1")
	})
	srv := httptest.NewServer(mux)

	c := newTestClient(t, srv, func(cfg *Config) { cfg.Metrics.Enabled = true })
	loginSeed(t, c)

	srv.Close() // take the backend away

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout must swallow remote failure, got %v", err)
	}
	if c.IsAuthenticated() {
		t.Fatal("local session must be cleared regardless of the network")
	}
	if got := c.MetricsSnapshot().Counters[MetricLogoutRemoteFailure]; got != 1 {
		t.Fatalf("remote failure counter %d, want 1", got)
	}
}

func TestLogoutSkipsRemoteDuringCooldown(t *testing.T) {
	var logoutCalls int32
	mux := http.NewServeMux()
	serveCSRF(mux, nil)
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeAuthSuccess(w, testUser(), "t1", "r1")
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logoutCalls, 1)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	loginSeed(t, c)
	c.cool.Trip(0)

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout returned %v", err)
	}
	if atomic.LoadInt32(&logoutCalls) != 0 {
		t.Fatal("cooldown must suppress the remote logout call")
	}
	if c.IsAuthenticated() {
		t.Fatal("local clear still happens during cooldown")
	}
}
