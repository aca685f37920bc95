package credstore

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when a store backend cannot be reached.
var ErrUnavailable = errors.New("credential store unavailable")

// Snapshot is the persisted session state. Access and refresh tokens are
// written and cleared together with the serialized user profile: a partial
// snapshot never survives a Save or Clear.
type Snapshot struct {
	AccessToken  string
	RefreshToken string
	// User is the JSON-serialized profile, opaque to the store.
	User []byte
}

// Empty reports whether the snapshot holds no credentials at all.
func (s Snapshot) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && len(s.User) == 0
}

// Store persists session credentials across client restarts. Implementations
// must be safe for concurrent use.
//
// Load returns a zero Snapshot (not an error) when nothing is persisted;
// errors are reserved for backend failures.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Clear(ctx context.Context) error
}
