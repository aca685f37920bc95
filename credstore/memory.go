package credstore

import (
	"context"
	"sync"
)

// Memory is the default in-process store. Credentials do not survive a
// restart; use [File] or [Redis] when persistence is needed.
type Memory struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.snap
	if len(m.snap.User) > 0 {
		out.User = append([]byte(nil), m.snap.User...)
	}
	return out, nil
}

func (m *Memory) Save(_ context.Context, snap Snapshot) error {
	if len(snap.User) > 0 {
		snap.User = append([]byte(nil), snap.User...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap = snap
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap = Snapshot{}
	return nil
}
