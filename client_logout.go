package sessionkit

import (
	"context"
	"fmt"
	"net/http"
)

// Logout ends the session. Local state is cleared first, so the caller is
// logged out immediately even when the server hangs; the remote notify runs
// afterwards with the captured token and is best effort. Logout always
// returns nil.
func (c *Client) Logout(ctx context.Context) error {
	if c == nil || c.closed.Load() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ensureRequestID(ctx)

	// Capture what the remote notify needs before the wipe.
	c.mu.RLock()
	access, csrf := c.access, c.csrfToken
	c.mu.RUnlock()
	if access == "" {
		access = c.cookieValue(c.config.Cookies.AccessName)
	}

	c.metricInc(MetricLogout)
	c.emitEvent(ctx, EventLogout, true, nil, nil)
	c.clearSession(ctx, "logout")

	if _, active := c.cool.Remaining(); !active {
		header := make(http.Header)
		if access != "" {
			header.Set("Authorization", "Bearer "+access)
		}
		if csrf != "" {
			header.Set(c.config.CSRF.HeaderName, csrf)
		}
		resp, err := c.do(ctx, Request{
			Method: http.MethodPost,
			Path:   logoutPath,
			Header: header,
		}, true)
		if err == nil && !resp.OK() {
			err = fmt.Errorf("%w: status %d", ErrLogoutRemote, resp.StatusCode)
		} else if err != nil {
			err = fmt.Errorf("%w: %v", ErrLogoutRemote, err)
		}
		if err != nil {
			c.metricInc(MetricLogoutRemoteFailure)
			c.emitEvent(ctx, EventLogoutRemoteFailed, false, err, nil)
			c.logger.Warn().Err(err).Msg("remote logout failed after local clear")
		}
	}

	c.logger.Info().Msg("logged out")
	return nil
}
