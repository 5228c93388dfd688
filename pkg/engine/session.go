// Package engine wires the quest machine, dialogue interpreter, scene
// store, and marker synchronizer into one explicit session instance.
// Nothing in here is a global; independent sessions never share state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/dialogue"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/marker"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/player"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/qr"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/quest"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/scene"
)

// ErrNoScene is returned when a choice is submitted with no current
// scene, or with an index outside the scene's choice list.
var ErrNoScene = errors.New("no current scene")

// Config carries the collaborators a session needs. Source is
// required; a nil Synchronizer falls back to marker.Nop.
type Config struct {
	ID           uuid.UUID
	Source       scene.Source
	Synchronizer marker.Synchronizer
	Codes        qr.Table
	Transitions  quest.TransitionTable
	Markers      quest.MarkerTable
	HistoryLimit int
	Logger       *slog.Logger
}

// Session is one player's engine instance. All operations are
// serialized in submission order by an internal mutex, so a dispatch
// that precedes a scene load always commits before the load starts.
type Session struct {
	id     uuid.UUID
	logger *slog.Logger

	mu      sync.Mutex
	player  *player.State
	machine *quest.Machine
	store   *scene.Store
	interp  *dialogue.Interpreter
	sync    marker.Synchronizer
	codes   qr.Table
}

// NewSession constructs a session with default player state and the
// quest machine in its initial state.
func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	logger = logger.With("session_id", cfg.ID.String())

	machine := quest.NewMachine(logger)
	if cfg.Transitions != nil && cfg.Markers != nil {
		machine.WithTables(cfg.Transitions, cfg.Markers)
	}

	syncr := cfg.Synchronizer
	if syncr == nil {
		syncr = marker.Nop{}
	}
	codes := cfg.Codes
	if codes == nil {
		codes = qr.DefaultTable()
	}

	return &Session{
		id:      cfg.ID,
		logger:  logger,
		player:  player.NewState(),
		machine: machine,
		store:   scene.NewStore(cfg.Source, cfg.HistoryLimit, logger),
		interp:  dialogue.NewInterpreter(logger),
		sync:    syncr,
		codes:   codes,
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Player returns the current player snapshot. Callers must treat it
// as read-only; mutation happens only through choice effects.
func (s *Session) Player() *player.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

// QuestState returns the active quest state.
func (s *Session) QuestState() quest.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current()
}

// CompletedSteps returns recorded step identifiers, sorted.
func (s *Session) CompletedSteps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.CompletedSteps()
}

// VisibleMarkers returns the marker set for the active quest state.
func (s *Session) VisibleMarkers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.VisibleMarkers()
}

// CurrentScene returns the loaded scene, or nil.
func (s *Session) CurrentScene() *scene.Scene {
	return s.store.Current()
}

// History returns the dialogue history, oldest first.
func (s *Session) History() []scene.DialogLine {
	return s.store.History()
}

// HandleAction dispatches a quest action submitted directly by the UI
// and forwards any marker events to the synchronizer.
func (s *Session) HandleAction(ctx context.Context, action quest.Action, stepID string) (quest.Result, error) {
	s.mu.Lock()
	res, events := s.machine.Dispatch(action, stepID)
	s.mu.Unlock()

	if err := s.syncMarkers(ctx, events); err != nil {
		return res, err
	}
	return res, nil
}

// HandleChoice resolves a choice. When the outcome advances, the next
// scene is loaded only after the quest dispatch and marker fan-out
// have completed, so the loaded scene always observes post-transition
// state. When the outcome exits, the current scene is cleared.
//
// A blocked outcome leaves the session untouched.
func (s *Session) HandleChoice(ctx context.Context, c scene.Choice) (dialogue.Outcome, error) {
	s.mu.Lock()
	outcome, next, events := s.interp.Resolve(c, s.player, s.machine)
	if outcome.Kind != dialogue.OutcomeBlocked {
		s.player = next
	}
	s.mu.Unlock()

	if outcome.Kind == dialogue.OutcomeBlocked {
		return outcome, nil
	}

	if err := s.syncMarkers(ctx, events); err != nil {
		return outcome, err
	}

	switch outcome.Kind {
	case dialogue.OutcomeAdvance:
		if _, err := s.store.Load(ctx, outcome.NextSceneID); err != nil {
			if errors.Is(err, scene.ErrStaleLoad) {
				return outcome, nil
			}
			return outcome, err
		}
	case dialogue.OutcomeExit:
		s.store.Clear()
	}

	return outcome, nil
}

// HandleChoiceAt resolves the choice at index in the current scene.
func (s *Session) HandleChoiceAt(ctx context.Context, index int) (dialogue.Outcome, error) {
	cur := s.store.Current()
	if cur == nil {
		return dialogue.Outcome{}, ErrNoScene
	}
	if index < 0 || index >= len(cur.Choices) {
		return dialogue.Outcome{}, fmt.Errorf("%w: choice index %d out of range", ErrNoScene, index)
	}
	return s.HandleChoice(ctx, cur.Choices[index])
}

// HandleCode resolves a scanned QR payload. Unknown codes return
// qr.ErrUnknownCode without touching the machine. Recognized codes
// dispatch their action (with step id) and then open the binding's
// scene, if it names one.
func (s *Session) HandleCode(ctx context.Context, code string) (qr.Binding, quest.Result, error) {
	binding, err := s.codes.Lookup(code)
	if err != nil {
		s.logger.Warn("unrecognized code scanned", "code", qr.Normalize(code))
		return qr.Binding{}, quest.Result{}, err
	}

	res, err := s.HandleAction(ctx, binding.Action, binding.StepID)
	if err != nil {
		return binding, res, err
	}

	if binding.SceneID != "" {
		if _, err := s.LoadScene(ctx, binding.SceneID); err != nil && !errors.Is(err, scene.ErrStaleLoad) {
			return binding, res, err
		}
	}
	return binding, res, nil
}

// LoadScene navigates to a scene by id.
func (s *Session) LoadScene(ctx context.Context, sceneID string) (*scene.Scene, error) {
	return s.store.Load(ctx, sceneID)
}

func (s *Session) syncMarkers(ctx context.Context, events []marker.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := s.sync.Sync(ctx, events); err != nil {
		return fmt.Errorf("sync markers: %w", err)
	}
	return nil
}

// Snapshot is the persistable view of a session, exposed after every
// committed transition and effect application for the persistence
// layer to store.
type Snapshot struct {
	ID        uuid.UUID      `json:"id"`
	Quest     quest.Snapshot `json:"quest"`
	Player    *player.State  `json:"player"`
	SceneID   string         `json:"scene_id,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Snapshot captures the session for persistence.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.id,
		Quest:     s.machine.Snapshot(),
		Player:    s.player.Clone(),
		SceneID:   s.store.CurrentID(),
		UpdatedAt: time.Now(),
	}
}

// Restore replaces session state from a saved snapshot. The current
// scene, if any, is reloaded from the source so content changes win
// over stale persisted copies.
func (s *Session) Restore(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	if err := s.machine.Restore(snap.Quest); err != nil {
		s.mu.Unlock()
		return err
	}
	s.player = snap.Player.Clone()
	s.mu.Unlock()

	if snap.SceneID != "" {
		if _, err := s.store.Load(ctx, snap.SceneID); err != nil && !errors.Is(err, scene.ErrStaleLoad) {
			s.logger.Warn("could not restore scene", "scene_id", snap.SceneID, "error", err)
		}
	}
	return nil
}

// Reset starts a new game: default player state, initial quest state,
// cleared steps, scene, and history.
func (s *Session) Reset() {
	s.mu.Lock()
	s.player = player.NewState()
	s.machine.Reset()
	s.mu.Unlock()
	s.store.Reset()
	s.logger.Info("session reset")
}
