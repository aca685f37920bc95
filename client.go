package sessionkit

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vikareta/sessionkit/credstore"
	internalevents "github.com/vikareta/sessionkit/internal/events"
)

// Client owns the authenticated session against the Vikareta API. Build one
// through [Builder.Build]; all methods are safe for concurrent use.
type Client struct {
	config  Config
	httpc   *http.Client
	jar     http.CookieJar
	base    *url.URL
	store   credstore.Store
	logger  zerolog.Logger
	gate    *refreshGate
	cool    *cooldown
	events  *internalevents.Dispatcher
	metrics *Metrics
	now     func() time.Time

	mu        sync.RWMutex
	access    string
	refresh   string
	user      *User
	csrfToken string

	closed atomic.Bool
}

// Close stops the event dispatcher and marks the client unusable. Local
// session state is left intact; call [Client.Logout] first to clear it.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.closed.CompareAndSwap(false, true) {
		c.events.Close()
	}
}

// EventsDropped reports how many session events the dispatcher shed.
func (c *Client) EventsDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.events.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all metrics.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// IsAuthenticated is a pure local check: true iff both an access token and
// a cached user are held. It neither validates expiry nor contacts the
// server, so it is cheap enough for per-render UI gating.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access != "" && c.user != nil
}

// User returns a copy of the cached profile, or nil. Purely local; use
// [Client.CurrentUser] to consult the server.
func (c *Client) User() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// RefreshState reports the refresh lifecycle state, with an active rate
// limit cooldown overlaid as [StateRateLimited].
func (c *Client) RefreshState() RefreshState {
	if _, active := c.cool.Remaining(); active {
		if c.gate.current() != StateRefreshing {
			return StateRateLimited
		}
	}
	return c.gate.current()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) emitEvent(ctx context.Context, eventType string, success bool, err error, metadata map[string]string) {
	if c == nil || c.events == nil {
		return
	}

	event := Event{
		Timestamp: c.now(),
		EventType: eventType,
		Success:   success,
		RequestID: requestIDFromContext(ctx),
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}
	c.mu.RLock()
	if c.user != nil {
		event.UserID = c.user.ID
		event.Email = c.user.Email
	}
	c.mu.RUnlock()

	c.events.Emit(ctx, event)
}

// applyEnvelope stores a successful auth response: tokens when provided,
// user always. Tokens and user are persisted together in one snapshot.
func (c *Client) applyEnvelope(ctx context.Context, env *authEnvelope) *AuthResult {
	c.mu.Lock()
	if env.AccessToken != "" {
		c.access = env.AccessToken
	}
	if env.RefreshToken != "" {
		c.refresh = env.RefreshToken
	}
	if env.User != nil {
		u := *env.User
		c.user = &u
	}
	access, refresh, user := c.access, c.refresh, c.user
	c.mu.Unlock()

	c.persistSession(ctx, access, refresh, user)
	c.mirrorCookies(access, refresh)

	result := &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
	}
	if user != nil {
		u := *user
		result.User = &u
	}
	return result
}

func (c *Client) persistSession(ctx context.Context, access, refresh string, user *User) {
	snap := credstore.Snapshot{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         encodeUser(user),
	}
	if err := c.store.Save(ctx, snap); err != nil {
		// Persistence is best-effort: the in-memory session stays usable.
		c.logger.Warn().Err(err).Msg("credential store save failed")
	}
}

// clearSession wipes local state unconditionally. Store and cookie clears
// are best-effort; the in-memory wipe alone logs the client out.
func (c *Client) clearSession(ctx context.Context, reason string) {
	c.mu.Lock()
	c.access = ""
	c.refresh = ""
	c.user = nil
	c.csrfToken = ""
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("credential store clear failed")
	}
	c.dropCookies()

	c.metricInc(MetricSessionCleared)
	c.emitEvent(ctx, EventSessionCleared, true, nil, map[string]string{
		"reason": reason,
	})
}

// adoptStored pulls credentials from the store into memory when the
// in-memory session is empty (fresh process sharing a persisted session).
func (c *Client) adoptStored(ctx context.Context) {
	c.mu.RLock()
	empty := c.access == "" && c.user == nil
	c.mu.RUnlock()
	if !empty {
		return
	}

	snap, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("credential store load failed")
		return
	}
	if snap.Empty() {
		return
	}

	c.mu.Lock()
	if c.access == "" {
		c.access = snap.AccessToken
	}
	if c.refresh == "" {
		c.refresh = snap.RefreshToken
	}
	if c.user == nil {
		c.user = decodeUser(snap.User)
	}
	access, refresh := c.access, c.refresh
	c.mu.Unlock()

	c.mirrorCookies(access, refresh)
}

func (c *Client) mirrorCookies(access, refresh string) {
	if !c.config.Cookies.MirrorTokens || c.jar == nil {
		return
	}

	var cookies []*http.Cookie
	if access != "" {
		cookies = append(cookies, &http.Cookie{
			Name:  c.config.Cookies.AccessName,
			Value: access,
			Path:  "/",
		})
	}
	if refresh != "" {
		cookies = append(cookies, &http.Cookie{
			Name:  c.config.Cookies.RefreshName,
			Value: refresh,
			Path:  "/",
		})
	}
	if len(cookies) > 0 {
		c.jar.SetCookies(c.base, cookies)
	}
}

func (c *Client) dropCookies() {
	if c.jar == nil {
		return
	}
	expired := []*http.Cookie{
		{Name: c.config.Cookies.AccessName, Value: "", Path: "/", MaxAge: -1},
		{Name: c.config.Cookies.RefreshName, Value: "", Path: "/", MaxAge: -1},
		{Name: c.config.CSRF.CookieName, Value: "", Path: "/", MaxAge: -1},
	}
	c.jar.SetCookies(c.base, expired)
}

// cookieValue reads a cookie for the API origin from the jar.
func (c *Client) cookieValue(name string) string {
	if c.jar == nil {
		return ""
	}
	for _, ck := range c.jar.Cookies(c.base) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}
