package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrStaleLoad marks a superseded load: a second Load was issued
// before the first resolved, and the first's result was discarded.
// It is an expected outcome, not a failure; callers normally drop it
// silently.
var ErrStaleLoad = errors.New("stale scene load discarded")

// Store holds the currently loaded scene and the dialogue history.
// Load is the one asynchronous boundary in the engine: while a load is
// outstanding, Current keeps returning the previously loaded scene.
// Concurrent loads are last-requested-wins.
type Store struct {
	mu      sync.Mutex
	source  Source
	logger  *slog.Logger
	current *Scene
	history *History
	gen     uint64
}

// NewStore creates a store backed by source, with a history bounded to
// historyLimit entries (<= 0 uses DefaultHistoryLimit).
func NewStore(source Source, historyLimit int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		source:  source,
		logger:  logger,
		history: NewHistory(historyLimit),
	}
}

// Current returns the loaded scene, or nil when none is loaded.
func (s *Store) Current() *Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentID returns the loaded scene's id, or "".
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.ID
}

// History returns the dialogue history, oldest first.
func (s *Store) History() []DialogLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// Load fetches a scene from the source and makes it current. Loading
// the scene that is already current is a no-op returning that scene,
// with no new history entries.
//
// On ErrNotFound the previous scene (if any) stays current and the
// error is returned with the requested id. If a newer Load was issued
// while the source call was in flight, the resolved scene is dropped
// and ErrStaleLoad is returned.
func (s *Store) Load(ctx context.Context, sceneID string) (*Scene, error) {
	s.mu.Lock()
	if s.current != nil && s.current.ID == sceneID {
		cur := s.current
		s.mu.Unlock()
		return cur, nil
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	loaded, err := s.source.Load(ctx, sceneID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.logger.Debug("superseded scene load discarded", "scene_id", sceneID)
		return nil, ErrStaleLoad
	}

	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("scene not found", "scene_id", sceneID)
			return nil, fmt.Errorf("load scene %q: %w", sceneID, err)
		}
		return nil, fmt.Errorf("load scene %q: %w", sceneID, err)
	}

	s.current = loaded
	for _, line := range loaded.Lines {
		s.history.Append(line.Speaker, line.Text)
	}

	s.logger.Debug("scene loaded", "scene_id", sceneID)
	return loaded, nil
}

// Clear drops the current scene, e.g. when a dialogue exits. History
// is preserved.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.gen++
}

// Reset drops the current scene and all history.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.history.Clear()
	s.gen++
}
