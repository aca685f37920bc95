package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Refresh exchanges the stored refresh token for a new access token. At
// most one refresh is in flight at any time; concurrent callers share the
// outcome of the in-flight attempt. Consecutive failures beyond the retry
// budget clear the session and return [ErrRefreshExhausted].
func (c *Client) Refresh(ctx context.Context) (*AuthResult, error) {
	if c == nil || c.closed.Load() {
		return nil, ErrClientClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return c.tryRefresh(ensureRequestID(ctx))
}

// tryRefresh is the orchestration wrapper around the single-round-trip
// refresh: cooldown gating, flight dedup, backoff, and budget accounting.
func (c *Client) tryRefresh(ctx context.Context) (*AuthResult, error) {
	if left, active := c.cool.Remaining(); active {
		c.metricInc(MetricRefreshRateLimited)
		return nil, fmt.Errorf("%w: retry in %s", ErrRateLimited, left.Round(time.Second))
	}

	flight, leader, err := c.gate.begin()
	if err != nil {
		return nil, err
	}
	if !leader {
		c.metricInc(MetricRefreshDeduped)
		return awaitFlight(ctx, flight)
	}

	if delay := c.gate.backoffDelay(); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			c.gate.abandon(ctx.Err())
			return nil, ctx.Err()
		}
	}

	result, err := c.refreshOnce(ctx)
	if err != nil && (errors.Is(err, ErrRateLimited) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		c.gate.abandon(err)
		c.metricInc(MetricRefreshRateLimited)
		return nil, err
	}

	exhausted := c.gate.finish(result, err)

	if err == nil {
		c.metricInc(MetricRefreshSuccess)
		c.emitEvent(ctx, EventRefresh, true, nil, nil)
		c.logger.Debug().Msg("token refresh succeeded")
		return result, nil
	}

	c.metricInc(MetricRefreshFailure)
	c.emitEvent(ctx, EventRefreshFailure, false, err, map[string]string{
		"retries": fmt.Sprintf("%d", c.gate.retries()),
	})
	c.logger.Warn().Err(err).Msg("token refresh failed")

	if exhausted {
		c.metricInc(MetricRefreshExhausted)
		c.emitEvent(ctx, EventRefreshExhausted, false, err, nil)
		c.clearSession(ctx, "refresh_exhausted")
		c.logger.Warn().Msg("refresh retries exhausted, session cleared")
		return nil, fmt.Errorf("%w: %v", ErrRefreshExhausted, err)
	}
	return nil, err
}

// refreshOnce performs exactly one round trip to the refresh endpoint. The
// refresh token travels as a cookie; the request body stays empty. Retry
// and backoff policy live in tryRefresh, never here.
func (c *Client) refreshOnce(ctx context.Context) (*AuthResult, error) {
	c.mu.RLock()
	refresh := c.refresh
	c.mu.RUnlock()
	if refresh == "" && c.cookieValue(c.config.Cookies.RefreshName) == "" {
		return nil, fmt.Errorf("%w: no refresh token held", ErrRefreshFailed)
	}

	resp, err := c.do(ctx, Request{
		Method: http.MethodPost,
		Path:   refreshPath,
	}, true)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: refresh token rejected (status %d)", ErrRefreshFailed, resp.StatusCode)
	}

	var env authEnvelope
	if derr := resp.Decode(&env); derr != nil || !env.Success {
		reason := env.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrRefreshFailed, reason)
	}

	return c.applyEnvelope(ctx, &env), nil
}
