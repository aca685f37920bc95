package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// fileDocument is the on-disk layout. The legacy keys mirror the access
// token for older dashboard builds that still read dashboard_token or
// auth_token from the shared credentials file.
type fileDocument struct {
	AccessToken  string          `json:"vikareta_access_token,omitempty"`
	RefreshToken string          `json:"vikareta_refresh_token,omitempty"`
	User         json.RawMessage `json:"vikareta_user,omitempty"`

	LegacyDashboardToken string `json:"dashboard_token,omitempty"`
	LegacyAuthToken      string `json:"auth_token,omitempty"`
}

// File persists the snapshot as a JSON document with 0600 permissions.
type File struct {
	mu            sync.Mutex
	path          string
	legacyMirrors bool
}

// FileOption configures a [File] store.
type FileOption func(*File)

// WithLegacyMirrors controls whether the access token is duplicated under
// the legacy keys. Enabled by default.
func WithLegacyMirrors(enabled bool) FileOption {
	return func(f *File) {
		f.legacyMirrors = enabled
	}
}

// NewFile creates a file-backed store at path. The file is created lazily on
// the first Save.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{
		path:          path,
		legacyMirrors: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *File) Load(_ context.Context) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		// A corrupt file is treated as an absent session rather than a
		// backend failure: the caller re-authenticates and overwrites it.
		return Snapshot{}, nil
	}

	access := doc.AccessToken
	if access == "" {
		// Legacy fallback order matches the dashboard's storage reads.
		if doc.LegacyDashboardToken != "" {
			access = doc.LegacyDashboardToken
		} else {
			access = doc.LegacyAuthToken
		}
	}

	return Snapshot{
		AccessToken:  access,
		RefreshToken: doc.RefreshToken,
		User:         []byte(doc.User),
	}, nil
}

func (f *File) Save(_ context.Context, snap Snapshot) error {
	doc := fileDocument{
		AccessToken:  snap.AccessToken,
		RefreshToken: snap.RefreshToken,
		User:         json.RawMessage(snap.User),
	}
	if f.legacyMirrors {
		doc.LegacyDashboardToken = snap.AccessToken
		doc.LegacyAuthToken = snap.AccessToken
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
