package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Dreyzab/grenzwanderer-sub000/internal/events"
	"github.com/Dreyzab/grenzwanderer-sub000/internal/storage"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/engine"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/qr"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/scene"
)

// SessionManager owns the live engine sessions behind the API. Each
// session gets its own marker queue as synchronizer, keyed by session
// ID, so the map layer can drain visibility events independently.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*engine.Session

	source  scene.Source
	codes   qr.Table
	storage storage.Storage
	rdb     *redis.Client
	logger  *slog.Logger
}

func NewSessionManager(source scene.Source, codes qr.Table, store storage.Storage, rdb *redis.Client, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[uuid.UUID]*engine.Session),
		source:   source,
		codes:    codes,
		storage:  store,
		rdb:      rdb,
		logger:   logger,
	}
}

// Get returns the live session for an ID, if one exists in memory.
func (m *SessionManager) Get(id uuid.UUID) (*engine.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// GetOrCreate returns the live session for an ID, reviving it from a
// stored snapshot when one exists, or creating a fresh session
// otherwise. The second return reports whether saved state was found.
func (m *SessionManager) GetOrCreate(ctx context.Context, id uuid.UUID) (*engine.Session, bool, error) {
	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s, true, nil
	}
	m.mu.Unlock()

	if id == uuid.Nil {
		id = uuid.New()
	}

	s := engine.NewSession(engine.Config{
		ID:           id,
		Source:       m.source,
		Synchronizer: events.NewMarkerQueue(m.rdb, id, m.logger),
		Codes:        m.codes,
		Logger:       m.logger,
	})

	restored := false
	snap, err := m.storage.LoadSession(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("load session %s: %w", id, err)
	}
	if snap != nil {
		if err := s.Restore(ctx, *snap); err != nil {
			return nil, false, fmt.Errorf("restore session %s: %w", id, err)
		}
		restored = true
	}

	m.mu.Lock()
	// Another request may have created it while storage was read.
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, true, nil
	}
	m.sessions[id] = s
	m.mu.Unlock()

	return s, restored, nil
}

// MarkerQueue returns the marker buffer for a session.
func (m *SessionManager) MarkerQueue(id uuid.UUID) *events.MarkerQueue {
	return events.NewMarkerQueue(m.rdb, id, m.logger)
}

// Persist writes the session's current snapshot through storage.
func (m *SessionManager) Persist(ctx context.Context, s *engine.Session) error {
	snap := s.Snapshot()
	return m.storage.SaveSession(ctx, s.ID(), &snap)
}

// Remove drops the live session and its persisted snapshot.
func (m *SessionManager) Remove(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return m.storage.DeleteSession(ctx, id)
}
