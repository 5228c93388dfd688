package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/engine"
)

// MockStorage is an in-memory Storage for testing.
type MockStorage struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*engine.Snapshot
	pingError error
	saveError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions: make(map[uuid.UUID]*engine.Snapshot),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on save with the given error
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error { return nil }

func (m *MockStorage) SaveSession(ctx context.Context, id uuid.UUID, snap *engine.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.sessions[id] = snap
	return nil
}

func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id], nil
}

func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
