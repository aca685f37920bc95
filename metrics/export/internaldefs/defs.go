package internaldefs

import (
	sessionkit "github.com/vikareta/sessionkit"
)

// CounterDef binds a metric ID to its stable exported name and help text.
type CounterDef struct {
	ID   sessionkit.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram metric ID to its exported name.
type HistogramDef struct {
	ID   sessionkit.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter. Names are stable; renaming one
// breaks downstream dashboards.
var CounterDefs = []CounterDef{
	{ID: sessionkit.MetricLoginSuccess, Name: "sessionkit_login_success_total", Help: "Successful login attempts."},
	{ID: sessionkit.MetricLoginFailure, Name: "sessionkit_login_failure_total", Help: "Failed login attempts."},
	{ID: sessionkit.MetricLoginRateLimited, Name: "sessionkit_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: sessionkit.MetricRefreshSuccess, Name: "sessionkit_refresh_success_total", Help: "Successful token refreshes."},
	{ID: sessionkit.MetricRefreshFailure, Name: "sessionkit_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: sessionkit.MetricRefreshDeduped, Name: "sessionkit_refresh_deduped_total", Help: "Callers that joined an in-flight refresh."},
	{ID: sessionkit.MetricRefreshExhausted, Name: "sessionkit_refresh_exhausted_total", Help: "Refresh retry budget exhaustions."},
	{ID: sessionkit.MetricRefreshRateLimited, Name: "sessionkit_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: sessionkit.MetricSessionCheckSuccess, Name: "sessionkit_session_check_success_total", Help: "Successful session checks."},
	{ID: sessionkit.MetricSessionCheckFailure, Name: "sessionkit_session_check_failure_total", Help: "Failed session checks."},
	{ID: sessionkit.MetricLogout, Name: "sessionkit_logout_total", Help: "Logout operations."},
	{ID: sessionkit.MetricLogoutRemoteFailure, Name: "sessionkit_logout_remote_failure_total", Help: "Best-effort remote logout failures."},
	{ID: sessionkit.MetricRateLimitHit, Name: "sessionkit_rate_limit_hit_total", Help: "HTTP 429 responses received."},
	{ID: sessionkit.MetricCookieFallback, Name: "sessionkit_cookie_fallback_total", Help: "Access tokens recovered from the cookie jar."},
	{ID: sessionkit.MetricRequestRetried, Name: "sessionkit_request_retried_total", Help: "Requests replayed after a 401-triggered refresh."},
	{ID: sessionkit.MetricSessionCleared, Name: "sessionkit_session_cleared_total", Help: "Local session wipes."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: sessionkit.MetricRequestLatency, Name: "sessionkit_request_latency_seconds", Help: "Request round-trip latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, Prometheus style.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with identifier-safe names
// for backends that reject label syntax.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
