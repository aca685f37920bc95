package sessionkit

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vikareta/sessionkit/credstore"
	internalevents "github.com/vikareta/sessionkit/internal/events"
)

// Builder assembles a [Client]. Zero-value defaults are production-ready;
// call the With methods to override, then Build exactly once.
type Builder struct {
	cfg    Config
	httpc  *http.Client
	jar    http.CookieJar
	store  credstore.Store
	rdb    redis.UniversalClient
	realm  string
	logger *zerolog.Logger
	sink   EventSink
	now    func() time.Time
	built  bool
}

// New starts a builder with [DefaultConfig].
func New() *Builder {
	return &Builder{cfg: defaultConfig()}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cloneConfig(cfg)
	return b
}

// WithHTTPClient supplies a custom HTTP client. Its cookie jar, when set,
// takes precedence over WithCookieJar.
func (b *Builder) WithHTTPClient(httpc *http.Client) *Builder {
	b.httpc = httpc
	return b
}

// WithCookieJar supplies the jar shared with cookie-authenticated endpoints.
func (b *Builder) WithCookieJar(jar http.CookieJar) *Builder {
	b.jar = jar
	return b
}

// WithStore supplies a credential store. Defaults to in-memory.
func (b *Builder) WithStore(store credstore.Store) *Builder {
	b.store = store
	return b
}

// WithRedis persists credentials in Redis under the given realm (one realm
// per logical user or device). Overrides WithStore.
func (b *Builder) WithRedis(client redis.UniversalClient, realm string) *Builder {
	b.rdb = client
	b.realm = realm
	return b
}

// WithLogger attaches a structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithEventSink enables the async event dispatcher and routes session
// events to sink.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	b.cfg.Events.Enabled = true
	return b
}

// WithMetrics enables in-process counters.
func (b *Builder) WithMetrics() *Builder {
	b.cfg.Metrics.Enabled = true
	return b
}

// WithLatencyHistograms additionally records request latency buckets.
// Implies WithMetrics.
func (b *Builder) WithLatencyHistograms() *Builder {
	b.cfg.Metrics.Enabled = true
	b.cfg.Metrics.EnableLatencyHistograms = true
	return b
}

// Build validates the configuration and assembles the client. A Builder
// must not be reused after a successful Build.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if err := b.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	base, err := url.Parse(b.cfg.HTTP.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	httpc := b.httpc
	if httpc == nil {
		httpc = &http.Client{Timeout: b.cfg.HTTP.Timeout}
	}
	jar := httpc.Jar
	if jar == nil {
		jar = b.jar
	}
	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
	}
	httpc.Jar = jar

	store := b.store
	if b.rdb != nil {
		store = credstore.NewRedis(b.rdb, b.cfg.Storage.RedisPrefix, b.realm, b.cfg.Storage.RedisTTL)
	}
	if store == nil {
		store = credstore.NewMemory()
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		config:  b.cfg,
		httpc:   httpc,
		jar:     jar,
		base:    base,
		store:   store,
		logger:  logger,
		gate:    newRefreshGate(b.cfg.Refresh, now),
		cool:    newCooldown(b.cfg.RateLimit, now),
		metrics: NewMetrics(b.cfg.Metrics),
		now:     now,
	}
	c.events = internalevents.NewDispatcher(internalevents.Config{
		Enabled:    b.cfg.Events.Enabled,
		BufferSize: b.cfg.Events.BufferSize,
		DropIfFull: b.cfg.Events.DropIfFull,
	}, b.sink)

	b.built = true
	return c, nil
}
