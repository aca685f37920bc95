// Command sessionkit-loadtest measures session client throughput against an
// in-process stub of the Vikareta auth API.
//
// It logs in a population of clients, then runs two timed phases: a
// session-check phase (GET /api/auth/me through the authorized request
// path) and a refresh phase (forced token rotation). Credentials persist
// through a Redis store so the run also exercises the cross-process
// session sharing path; without -redis-addr an embedded miniredis is used.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	sessionkit "github.com/vikareta/sessionkit"
)

func main() {
	var (
		clients     = flag.Int("clients", 64, "number of concurrent session clients")
		ops         = flag.Int("ops", 20000, "operations per phase")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "vk", "credential key prefix")
	)
	flag.Parse()

	if *clients <= 0 || *ops <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "clients, ops, and concurrency must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	api := newStubAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := sessionkit.DefaultConfig()
	cfg.HTTP.BaseURL = srv.URL
	cfg.Refresh.AttemptInterval = 0
	cfg.Storage.RedisPrefix = *prefix

	fmt.Printf("logging in %d clients...\n", *clients)
	startSeed := time.Now()
	pool := make([]*sessionkit.Client, *clients)
	for i := range pool {
		realm := fmt.Sprintf("load-%d", i)
		c, err := sessionkit.New().
			WithConfig(cfg).
			WithRedis(rdb, realm).
			WithMetrics().
			Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
			os.Exit(1)
		}
		defer c.Close()

		creds := sessionkit.Credentials{Email: realm + "@load.test", Password: "load"}
		if _, err := c.Login(ctx, creds); err != nil {
			fmt.Fprintf(os.Stderr, "seed login failed: %v\n", err)
			os.Exit(1)
		}
		pool[i] = c
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	checkStats := runPhase(ctx, pool, *ops, *concurrency, func(ctx context.Context, c *sessionkit.Client) error {
		if u := c.CurrentUser(ctx); u == nil {
			return fmt.Errorf("nil user")
		}
		return nil
	})
	refreshStats := runPhase(ctx, pool, *ops, *concurrency, func(ctx context.Context, c *sessionkit.Client) error {
		_, err := c.Refresh(ctx)
		return err
	})

	fmt.Println("---- results ----")
	printStats("session-check", checkStats)
	printStats("refresh", refreshStats)
}

func runPhase(ctx context.Context, pool []*sessionkit.Client, ops, concurrency int, op func(context.Context, *sessionkit.Client) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				c := pool[(i+worker)%len(pool)]

				t0 := time.Now()
				err := op(ctx, c)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// stubAPI is a minimal in-memory rendition of the auth backend: tokens are
// sequential per email, every bearer token it issued stays valid, and the
// refresh endpoint rotates unconditionally.
type stubAPI struct {
	mu     sync.Mutex
	seq    int64
	issued map[string]string // access token -> email
	mux    *http.ServeMux
}

func newStubAPI() *stubAPI {
	api := &stubAPI{issued: make(map[string]string)}
	mux := http.NewServeMux()
	mux.HandleFunc("/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "csrf", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]string{"csrfToken": "csrf"})
	})
	mux.HandleFunc("/api/auth/login", api.login)
	mux.HandleFunc("/api/auth/me", api.me)
	mux.HandleFunc("/api/auth/refresh", api.refresh)
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	api.mux = mux
	return api
}

func (a *stubAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *stubAPI) issue(email string) (access, refresh string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	access = fmt.Sprintf("at-%d", a.seq)
	refresh = fmt.Sprintf("rt-%d", a.seq)
	a.issued[access] = email
	return access, refresh
}

func (a *stubAPI) lookup(r *http.Request) (string, bool) {
	const pfx = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(pfx) {
		return "", false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	email, ok := a.issued[h[len(pfx):]]
	return email, ok
}

func (a *stubAPI) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "bad request"})
		return
	}
	access, refresh := a.issue(creds.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"user":         userFor(creds.Email),
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

func (a *stubAPI) me(w http.ResponseWriter, r *http.Request) {
	email, ok := a.lookup(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": userFor(email)})
}

func (a *stubAPI) refresh(w http.ResponseWriter, r *http.Request) {
	ck, err := r.Cookie("vikareta_refresh_token")
	if err != nil || ck.Value == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "missing refresh token"})
		return
	}
	access, refresh := a.issue("rotated@load.test")
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"user":         userFor("rotated@load.test"),
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

func userFor(email string) map[string]any {
	return map[string]any{
		"id":         "u-" + email,
		"email":      email,
		"role":       "seller",
		"isVerified": true,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
