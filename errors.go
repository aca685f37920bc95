package sessionkit

import "errors"

var (
	// ErrRateLimited is returned when a server 429 or an active client-side
	// cooldown suppresses the call. Callers should wait and retry later.
	ErrRateLimited = errors.New("rate limited")
	// ErrLoginFailed covers credential rejection and transport failures
	// during login.
	ErrLoginFailed = errors.New("login failed")
	// ErrSessionCheck covers failures while querying the who-am-I endpoint.
	ErrSessionCheck = errors.New("session check failed")
	// ErrRefreshFailed covers a failed token refresh round trip.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrRefreshExhausted is returned once the refresh retry budget is spent;
	// the local session has been cleared and the caller must re-authenticate.
	ErrRefreshExhausted = errors.New("token refresh retries exhausted")
	// ErrRefreshNotEligible is returned when the eligibility policy suppresses
	// a refresh attempt (attempt interval not yet elapsed).
	ErrRefreshNotEligible = errors.New("refresh attempt suppressed by policy")
	// ErrLogoutRemote reports a failed remote logout call. It is informational:
	// local state is already cleared and Logout itself never returns it.
	ErrLogoutRemote = errors.New("remote logout failed")
	// ErrNotAuthenticated is returned when a request requires a session that
	// is absent or could not be recovered through refresh.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrCSRFUnavailable is returned when the CSRF bootstrap endpoint yields
	// neither a cookie nor a body token.
	ErrCSRFUnavailable = errors.New("csrf token unavailable")
	// ErrRequestFailed wraps a non-2xx API status surfaced by the JSON helper.
	ErrRequestFailed = errors.New("request failed")
	// ErrClientClosed is returned by every operation after Close.
	ErrClientClosed = errors.New("client closed")
)
