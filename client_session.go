package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// CheckSession asks the server who the current session belongs to and
// refreshes the local cache from the answer. The server may authenticate
// via cookie alone, so this succeeds even when the local store is empty
// (cross-domain single sign-on). A cooldown-suppressed check returns
// [ErrRateLimited]; every other failure wraps [ErrSessionCheck].
func (c *Client) CheckSession(ctx context.Context) (*AuthResult, error) {
	if c == nil || c.closed.Load() {
		return nil, ErrClientClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ensureRequestID(ctx)

	resp, err := c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   mePath,
	})
	if err != nil {
		c.metricInc(MetricSessionCheckFailure)
		c.emitEvent(ctx, EventSessionCheckFailed, false, err, nil)
		if errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionCheck, err)
	}

	var env authEnvelope
	if derr := resp.Decode(&env); derr != nil || !env.Success || env.User == nil {
		reason := env.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		c.metricInc(MetricSessionCheckFailure)
		serr := fmt.Errorf("%w: %s", ErrSessionCheck, reason)
		c.emitEvent(ctx, EventSessionCheckFailed, false, serr, nil)
		return nil, serr
	}

	result := c.applyEnvelope(ctx, &env)
	c.metricInc(MetricSessionCheckSuccess)
	c.emitEvent(ctx, EventSessionCheck, true, nil, nil)
	return result, nil
}

// CurrentUser returns the authoritative current user. It always queries the
// server rather than trusting the local cache, because the server may hold
// a cookie session the local store knows nothing about. Any failure clears
// the local session and returns nil; CurrentUser never returns an error.
func (c *Client) CurrentUser(ctx context.Context) *User {
	if c == nil || c.closed.Load() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ensureRequestID(ctx)

	result, err := c.CheckSession(ctx)
	if err != nil {
		c.logger.Debug().Err(err).Msg("current user lookup failed, clearing session")
		c.clearSession(ctx, "session_check_failed")
		return nil
	}
	return result.User
}
