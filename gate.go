package sessionkit

import (
	"context"
	"sync"
	"time"
)

// RefreshState is the explicit refresh lifecycle state. The implicit
// boolean/counter flags of the original dashboard client are replaced by a
// tagged state so the eligibility policy is auditable in isolation.
type RefreshState uint8

const (
	// StateIdle means no refresh is in flight and the retry budget remains.
	StateIdle RefreshState = iota
	// StateRefreshing means a refresh round trip is in flight; concurrent
	// callers join it instead of starting another.
	StateRefreshing
	// StateRateLimited means a 429 cooldown suppresses all refresh attempts.
	StateRateLimited
	// StateExhausted means the retry budget is spent and the session has
	// been cleared; only a fresh login leaves this state.
	StateExhausted
)

func (s RefreshState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	case StateRateLimited:
		return "rate_limited"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// refreshFlight is one in-flight refresh shared by every caller that needs
// its outcome. result and err are written exactly once, before done closes.
type refreshFlight struct {
	done   chan struct{}
	result *AuthResult
	err    error
}

func awaitFlight(ctx context.Context, f *refreshFlight) (*AuthResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// refreshGate serializes refresh attempts and enforces the eligibility
// policy: at most one refresh in flight, a minimum interval between
// attempts, and a hard retry budget that ends in StateExhausted.
type refreshGate struct {
	cfg RefreshConfig
	now func() time.Time

	mu          sync.Mutex
	state       RefreshState
	flight      *refreshFlight
	retryCount  int
	lastAttempt time.Time
}

func newRefreshGate(cfg RefreshConfig, now func() time.Time) *refreshGate {
	if now == nil {
		now = time.Now
	}
	return &refreshGate{
		cfg: cfg,
		now: now,
	}
}

// begin admits a refresh attempt. The returned flight is non-nil whenever
// the caller has an outcome to wait for; leader reports whether this caller
// must perform the round trip and complete the flight via finish.
func (g *refreshGate) begin() (flight *refreshFlight, leader bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.flight != nil {
		return g.flight, false, nil
	}
	if g.state == StateExhausted {
		return nil, false, ErrRefreshExhausted
	}
	if g.retryCount > 0 && g.now().Sub(g.lastAttempt) < g.cfg.AttemptInterval {
		return nil, false, ErrRefreshNotEligible
	}

	g.state = StateRefreshing
	g.lastAttempt = g.now()
	g.flight = &refreshFlight{done: make(chan struct{})}
	return g.flight, true, nil
}

// backoffDelay is the pre-call delay for the attempt the leader is about to
// run: zero for a first attempt, doubling per consecutive failure, capped.
func (g *refreshGate) backoffDelay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.retryCount == 0 {
		return 0
	}
	d := g.cfg.InitialBackoff
	for i := 1; i < g.retryCount; i++ {
		d *= 2
		if d >= g.cfg.MaxBackoff {
			return g.cfg.MaxBackoff
		}
	}
	if d > g.cfg.MaxBackoff {
		d = g.cfg.MaxBackoff
	}
	return d
}

// finish completes the in-flight refresh and publishes the outcome to every
// waiter. It reports whether the retry budget is now exhausted, in which
// case the caller must clear the session.
func (g *refreshGate) finish(result *AuthResult, err error) (exhausted bool) {
	g.mu.Lock()
	flight := g.flight
	g.flight = nil

	if err == nil {
		g.retryCount = 0
		g.state = StateIdle
	} else {
		g.retryCount++
		if g.retryCount >= g.cfg.MaxRetries {
			g.state = StateExhausted
			exhausted = true
		} else {
			g.state = StateIdle
		}
	}
	g.mu.Unlock()

	if flight != nil {
		flight.result = result
		flight.err = err
		close(flight.done)
	}
	return exhausted
}

// abandon completes the flight without charging the retry budget. Used for
// rate limiting and caller cancellation, which say nothing about whether
// the refresh token is still good.
func (g *refreshGate) abandon(err error) {
	g.mu.Lock()
	flight := g.flight
	g.flight = nil
	if g.state == StateRefreshing {
		g.state = StateIdle
	}
	g.mu.Unlock()

	if flight != nil {
		flight.err = err
		close(flight.done)
	}
}

// noteHealthy resets the retry budget after a successful authorized round
// trip: a healthy response is evidence the session is valid. It never
// leaves StateExhausted; only reset (login) does.
func (g *refreshGate) noteHealthy() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateIdle {
		g.retryCount = 0
	}
}

// reset restores the gate after a successful login.
func (g *refreshGate) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.retryCount = 0
	g.lastAttempt = time.Time{}
	if g.flight == nil {
		g.state = StateIdle
	}
}

// current returns the gate-owned state (rate limiting is overlaid by the
// client, which owns the cooldown).
func (g *refreshGate) current() RefreshState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *refreshGate) retries() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.retryCount
}
