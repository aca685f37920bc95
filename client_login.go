package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	loginPath   = "/api/auth/login"
	mePath      = "/api/auth/me"
	refreshPath = "/api/auth/refresh"
	logoutPath  = "/api/auth/logout"
)

// Login authenticates with email and password. Any session already held is
// cleared before the credentials are submitted. On success the refresh gate
// and rate limit cooldown are reset and the session is persisted. A 401
// here means rejected credentials, never a stale token, so no refresh is
// attempted.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	if c == nil || c.closed.Load() {
		return nil, ErrClientClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ensureRequestID(ctx)

	if left, active := c.cool.Remaining(); active {
		c.metricInc(MetricLoginRateLimited)
		return nil, fmt.Errorf("%w: retry in %s", ErrRateLimited, left.Round(time.Second))
	}

	// A login starts a fresh session: any identity already held, in memory
	// or persisted, is dropped before the new credentials go out.
	c.adoptStored(ctx)
	c.mu.RLock()
	hasSession := c.access != "" || c.refresh != "" || c.user != nil
	c.mu.RUnlock()
	if hasSession {
		c.clearSession(ctx, "relogin")
	}

	resp, err := c.do(ctx, Request{
		Method: http.MethodPost,
		Path:   loginPath,
		Body:   creds,
	}, true)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			c.metricInc(MetricLoginRateLimited)
			return nil, err
		}
		c.metricInc(MetricLoginFailure)
		c.emitEvent(ctx, EventLoginFailure, false, err, map[string]string{"email": creds.Email})
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	var env authEnvelope
	if derr := resp.Decode(&env); derr != nil || !env.Success {
		reason := env.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		c.metricInc(MetricLoginFailure)
		lerr := fmt.Errorf("%w: %s", ErrLoginFailed, reason)
		c.emitEvent(ctx, EventLoginFailure, false, lerr, map[string]string{"email": creds.Email})
		c.logger.Warn().Str("email", creds.Email).Str("reason", reason).Msg("login rejected")
		return nil, lerr
	}

	result := c.applyEnvelope(ctx, &env)
	c.gate.reset()
	c.cool.Clear()

	c.metricInc(MetricLoginSuccess)
	c.emitEvent(ctx, EventLogin, true, nil, nil)
	c.logger.Info().Str("email", creds.Email).Msg("login succeeded")
	return result, nil
}
