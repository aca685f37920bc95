package sessionkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ensureCSRF returns the token for the anti-forgery header on mutating
// requests. Resolution order: cached value, then the jar cookie, then a
// bootstrap round trip.
func (c *Client) ensureCSRF(ctx context.Context) (string, error) {
	c.mu.RLock()
	token := c.csrfToken
	c.mu.RUnlock()
	if token != "" {
		return token, nil
	}

	if v := c.cookieValue(c.config.CSRF.CookieName); v != "" {
		c.cacheCSRF(v)
		return v, nil
	}

	return c.bootstrapCSRF(ctx)
}

// bootstrapCSRF calls the token endpoint. The server issues the token as a
// cookie; some deployments additionally (or only) return it in the body.
func (c *Client) bootstrapCSRF(ctx context.Context) (string, error) {
	target, err := c.resolve(c.config.CSRF.Path, nil)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCSRFUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.HTTP.UserAgent)
	req.Header.Set("X-Request-ID", requestIDFromContext(ctx))

	res, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCSRFUnavailable, err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrCSRFUnavailable, res.StatusCode)
	}

	// The jar captured any Set-Cookie from the response.
	if v := c.cookieValue(c.config.CSRF.CookieName); v != "" {
		c.cacheCSRF(v)
		return v, nil
	}

	var env csrfEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if v := env.value(); v != "" {
			c.cacheCSRF(v)
			return v, nil
		}
	}

	return "", ErrCSRFUnavailable
}

func (c *Client) cacheCSRF(token string) {
	c.mu.Lock()
	c.csrfToken = token
	c.mu.Unlock()
}
