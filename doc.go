// Package sessionkit provides an authenticated session client for the Vikareta
// REST API: bearer-token storage, transparent access-token refresh, rate-limit
// cooldowns, CSRF bootstrap, and authorization-header injection for every
// outgoing request.
//
// The package is designed for concurrent consumers: Client methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
// Any number of requests that hit HTTP 401 at the same time collapse into a
// single refresh round trip; all of them wait for its one outcome.
//
// # Architecture boundaries
//
// sessionkit is the public surface. It exposes [Client], [Builder], [Config],
// and value types (User, AuthResult, MetricsSnapshot). Credential persistence
// lives behind [github.com/vikareta/sessionkit/credstore.Store] adapters;
// event dispatch lives under internal/ and is never exported directly.
//
// # What this package must NOT do
//
//   - Interpret backend payloads beyond the auth envelope.
//   - Retry refresh inside the single-round-trip primitive; orchestration,
//     backoff, and deduplication belong to the refresh gate alone.
//   - Let an internal failure escape a public operation as an untyped error:
//     every failure is wrapped into one of the sentinel kinds in errors.go.
package sessionkit
