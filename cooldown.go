package sessionkit

import (
	"sync"
	"time"
)

// cooldown tracks the client-side rate-limit window entered on HTTP 429.
// While active, every operation fails fast with ErrRateLimited and no
// network call is made.
type cooldown struct {
	cfg RateLimitConfig
	now func() time.Time

	mu    sync.Mutex
	until time.Time
}

func newCooldown(cfg RateLimitConfig, now func() time.Time) *cooldown {
	if now == nil {
		now = time.Now
	}
	return &cooldown{
		cfg: cfg,
		now: now,
	}
}

// Remaining reports the time left in the active window, if any.
func (c *cooldown) Remaining() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	left := c.until.Sub(c.now())
	if left <= 0 {
		return 0, false
	}
	return left, true
}

// Trip enters (or extends) the cooldown window and returns the applied
// duration. retryAfter comes from the server's Retry-After header; zero
// means the header was absent.
func (c *cooldown) Trip(retryAfter time.Duration) time.Duration {
	window := c.cfg.DefaultCooldown
	if c.cfg.HonorRetryAfter && retryAfter > 0 {
		window = retryAfter
	}
	if window > c.cfg.MaxCooldown {
		window = c.cfg.MaxCooldown
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	candidate := c.now().Add(window)
	if candidate.After(c.until) {
		c.until = candidate
	}
	return window
}

// Clear ends the window. Called on successful login.
func (c *cooldown) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.until = time.Time{}
}
