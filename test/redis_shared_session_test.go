package test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	sessionkit "github.com/vikareta/sessionkit"
)

// Two client processes sharing one Redis realm behave like two browser tabs
// sharing localStorage: a login in one is visible to the other.
func TestRedisSharedSessionAcrossClients(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := sessionkit.DefaultConfig()
	cfg.HTTP.BaseURL = srv.URL
	cfg.Refresh.AttemptInterval = 0
	cfg.Refresh.InitialBackoff = time.Millisecond
	cfg.Refresh.MaxBackoff = 4 * time.Millisecond

	build := func() *sessionkit.Client {
		c, err := sessionkit.New().WithConfig(cfg).WithRedis(rdb, "a@b.com").Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		t.Cleanup(c.Close)
		return c
	}

	first := build()
	if _, err := first.Login(ctx, sessionkit.Credentials{Email: "a@b.com", Password: "pw"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// A second process starts cold and adopts the persisted session on its
	// first request.
	second := build()
	if second.IsAuthenticated() {
		t.Fatal("second client must start unauthenticated in memory")
	}
	if u := second.CurrentUser(ctx); u == nil || u.ID != "u-1" {
		t.Fatalf("second client could not adopt the shared session: %+v", u)
	}
	if !second.IsAuthenticated() {
		t.Fatal("adoption must authenticate the second client")
	}

	// A logout in one process clears the shared credentials.
	if err := first.Logout(ctx); err != nil {
		t.Fatalf("Logout returned %v", err)
	}
	third := build()
	if u := third.CurrentUser(ctx); u != nil {
		t.Fatalf("third client found a session after logout: %+v", u)
	}
}
