package sessionkit

import (
	"testing"
	"time"
)

func cooldownConfig() RateLimitConfig {
	return RateLimitConfig{
		DefaultCooldown: time.Minute,
		MaxCooldown:     5 * time.Minute,
		HonorRetryAfter: true,
	}
}

func TestCooldownTripAndRemaining(t *testing.T) {
	current := time.Unix(1000, 0)
	c := newCooldown(cooldownConfig(), func() time.Time { return current })

	if _, active := c.Remaining(); active {
		t.Fatal("fresh cooldown must be inactive")
	}

	if got := c.Trip(0); got != time.Minute {
		t.Fatalf("default window %v, want 1m", got)
	}
	left, active := c.Remaining()
	if !active || left != time.Minute {
		t.Fatalf("remaining %v active=%v, want 1m active", left, active)
	}

	current = current.Add(61 * time.Second)
	if _, active := c.Remaining(); active {
		t.Fatal("window must expire on its own")
	}
}

func TestCooldownHonorsRetryAfterCapped(t *testing.T) {
	current := time.Unix(1000, 0)
	c := newCooldown(cooldownConfig(), func() time.Time { return current })

	if got := c.Trip(2 * time.Minute); got != 2*time.Minute {
		t.Fatalf("retry-after window %v, want 2m", got)
	}
	if got := c.Trip(time.Hour); got != 5*time.Minute {
		t.Fatalf("window %v, want cap 5m", got)
	}
}

func TestCooldownIgnoresRetryAfterWhenDisabled(t *testing.T) {
	cfg := cooldownConfig()
	cfg.HonorRetryAfter = false
	c := newCooldown(cfg, nil)

	if got := c.Trip(3 * time.Minute); got != time.Minute {
		t.Fatalf("window %v, want default 1m", got)
	}
}

func TestCooldownExtendsNeverShortens(t *testing.T) {
	current := time.Unix(1000, 0)
	c := newCooldown(cooldownConfig(), func() time.Time { return current })

	c.Trip(4 * time.Minute)
	c.Trip(0) // shorter window must not pull the deadline in

	left, _ := c.Remaining()
	if left != 4*time.Minute {
		t.Fatalf("remaining %v, want 4m", left)
	}
}

func TestCooldownClear(t *testing.T) {
	c := newCooldown(cooldownConfig(), nil)
	c.Trip(0)
	c.Clear()
	if _, active := c.Remaining(); active {
		t.Fatal("clear must end the window")
	}
}
