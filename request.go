package sessionkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Request describes one API call. Body, when non-nil, is JSON-encoded; it
// must stay re-encodable because a 401 can trigger a single replay.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// Response is the raw outcome of an API call. The body is fully read and
// the connection released before Response is returned.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: decode body: %v", ErrRequestFailed, err)
	}
	return nil
}

type ctxKey int

const requestIDKey ctxKey = iota

func ensureRequestID(ctx context.Context) context.Context {
	if requestIDFromContext(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, uuid.NewString())
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Do performs an authenticated API call. It fails fast during an active
// rate limit cooldown, refreshes proactively when the access token is near
// expiry, and on a 401 refreshes once and replays the request exactly once.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c == nil || c.closed.Load() {
		return nil, ErrClientClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ensureRequestID(ctx)

	c.adoptStored(ctx)

	if left, active := c.cool.Remaining(); active {
		return nil, fmt.Errorf("%w: retry in %s", ErrRateLimited, left.Round(time.Second))
	}

	c.mu.RLock()
	access := c.access
	c.mu.RUnlock()
	if access != "" && expiresWithin(access, c.config.Refresh.ExpiryLeeway, c.now()) {
		// Best effort: a failed proactive refresh falls through to the
		// 401 path, which retries once more.
		if _, err := c.tryRefresh(ctx); err != nil {
			c.logger.Debug().Err(err).Msg("proactive refresh failed")
		}
	}

	return c.do(ctx, req, false)
}

// Get performs a GET request and decodes a 2xx JSON body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with a JSON body and decodes a 2xx JSON
// response into out. Either may be nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// do runs one round trip. skipRefresh marks the post-refresh replay: a 401
// on the replay is final.
func (c *Client) do(ctx context.Context, req Request, skipRefresh bool) (*Response, error) {
	hreq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := c.now()
	hres, err := c.httpc.Do(hreq)
	if c.metrics.LatencyEnabled() {
		c.metrics.Observe(MetricRequestLatency, c.now().Sub(start))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	body, err := io.ReadAll(hres.Body)
	hres.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}

	resp := &Response{
		StatusCode: hres.StatusCode,
		Header:     hres.Header,
		Body:       body,
	}

	switch {
	case hres.StatusCode == http.StatusTooManyRequests:
		window := c.noteRateLimited(ctx, hres.Header)
		return resp, fmt.Errorf("%w: cooldown %s", ErrRateLimited, window)

	case hres.StatusCode == http.StatusUnauthorized && !skipRefresh:
		// Refresh only recovers a stale token. When the request went out
		// without one, a 401 is the final answer and must not charge the
		// refresh retry budget.
		if hreq.Header.Get("Authorization") == "" {
			return resp, nil
		}
		if _, rerr := c.tryRefresh(ctx); rerr != nil {
			return resp, fmt.Errorf("%w: %v", ErrNotAuthenticated, rerr)
		}
		c.metricInc(MetricRequestRetried)
		return c.do(ctx, req, true)
	}

	if resp.OK() {
		c.gate.noteHealthy()
	}
	return resp, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode body: %v", ErrRequestFailed, err)
		}
		body = bytes.NewReader(data)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	for k, vals := range req.Header {
		for _, v := range vals {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("User-Agent", c.config.HTTP.UserAgent)
	hreq.Header.Set("X-Request-ID", requestIDFromContext(ctx))
	if req.Body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}

	if token := c.bearerToken(ctx); token != "" {
		hreq.Header.Set("Authorization", "Bearer "+token)
	}

	// A caller-supplied anti-forgery header wins; logout sends the token it
	// captured before clearing the session.
	if mutating(req.Method) && hreq.Header.Get(c.config.CSRF.HeaderName) == "" {
		csrf, err := c.ensureCSRF(ctx)
		if err != nil {
			return nil, err
		}
		hreq.Header.Set(c.config.CSRF.HeaderName, csrf)
	}

	return hreq, nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: invalid path %q", ErrRequestFailed, path)
	}
	u := c.base.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// bearerToken resolves the access token: in-memory first, then the cookie
// jar. A cookie hit backfills the credential store so the fallback is
// one-time per session.
func (c *Client) bearerToken(ctx context.Context) string {
	c.mu.RLock()
	access := c.access
	c.mu.RUnlock()
	if access != "" {
		return access
	}

	fromCookie := c.cookieValue(c.config.Cookies.AccessName)
	if fromCookie == "" {
		return ""
	}

	c.mu.Lock()
	if c.access == "" {
		c.access = fromCookie
	}
	access, refresh, user := c.access, c.refresh, c.user
	c.mu.Unlock()

	c.persistSession(ctx, access, refresh, user)
	c.metricInc(MetricCookieFallback)
	c.emitEvent(ctx, EventCookieFallback, true, nil, nil)
	c.logger.Debug().Msg("access token recovered from cookie jar")
	return access
}

// noteRateLimited trips the cooldown from a 429 response and returns the
// applied window.
func (c *Client) noteRateLimited(ctx context.Context, header http.Header) time.Duration {
	window := c.cool.Trip(parseRetryAfter(header, c.now()))
	c.metricInc(MetricRateLimitHit)
	c.emitEvent(ctx, EventRateLimited, false, ErrRateLimited, map[string]string{
		"cooldown": window.String(),
	})
	c.logger.Warn().Dur("cooldown", window).Msg("rate limited by server")
	return window
}

// parseRetryAfter reads a Retry-After header as delta seconds or an HTTP
// date. Zero means absent or unparseable.
func parseRetryAfter(header http.Header, now time.Time) time.Duration {
	v := header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
