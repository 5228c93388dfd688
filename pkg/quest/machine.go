package quest

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/marker"
)

// Machine holds the current quest state and the set of completed step
// identifiers, and commits transitions against its tables. One Machine
// per session; it is not safe for concurrent use.
type Machine struct {
	transitions TransitionTable
	markers     MarkerTable
	current     State
	completed   map[string]bool
	logger      *slog.Logger
}

// Result describes the outcome of a single Dispatch call. Committed is
// false when no transition was defined for (From, action); the state
// is then unchanged and To equals From.
type Result struct {
	Committed bool  `json:"committed"`
	From      State `json:"from"`
	To        State `json:"to"`
}

// NewMachine creates a machine in StateRegistered with the default
// tables and an empty completed-step set.
func NewMachine(logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		transitions: DefaultTransitions(),
		markers:     DefaultMarkers(),
		current:     StateRegistered,
		completed:   make(map[string]bool),
		logger:      logger,
	}
}

// WithTables replaces the default transition and marker tables.
// Returns the Machine for chaining during construction.
func (m *Machine) WithTables(transitions TransitionTable, markers MarkerTable) *Machine {
	m.transitions = transitions
	m.markers = markers
	return m
}

// Current returns the active quest state.
func (m *Machine) Current() State {
	return m.current
}

// HasCompleted reports whether a step identifier has been recorded.
func (m *Machine) HasCompleted(stepID string) bool {
	return m.completed[stepID]
}

// CompletedSteps returns the recorded step identifiers, sorted.
func (m *Machine) CompletedSteps() []string {
	steps := make([]string, 0, len(m.completed))
	for id := range m.completed {
		steps = append(steps, id)
	}
	sort.Strings(steps)
	return steps
}

// Dispatch consumes an action. If the transition table defines
// (current, action), the machine commits the new state, records stepID
// (if non-empty) as completed, and returns the marker visibility diff
// between the old and new states: hides first, then shows, each in
// sorted marker order.
//
// An undefined (state, action) pair, including unknown action values,
// is never fatal: the result has Committed false and no events are
// emitted. Re-dispatching the same action afterwards is looked up
// against the new current state; the machine has no debounce.
func (m *Machine) Dispatch(action Action, stepID string) (Result, []marker.Event) {
	to, ok := m.transitions.Next(m.current, action)
	if !ok {
		m.logger.Warn("no transition for action",
			"state", m.current,
			"action", action)
		return Result{Committed: false, From: m.current, To: m.current}, nil
	}

	events := m.markerDiff(m.current, to)

	if stepID != "" {
		m.completed[stepID] = true
	}

	from := m.current
	m.current = to

	m.logger.Info("quest transition committed",
		"from", from,
		"to", to,
		"action", action,
		"step_id", stepID)

	return Result{Committed: true, From: from, To: to}, events
}

// markerDiff computes hide events for markers visible in from but not
// in to, then show events for markers newly visible in to.
func (m *Machine) markerDiff(from, to State) []marker.Event {
	oldSet := m.markers.Visible(from)
	newSet := m.markers.Visible(to)

	var hidden, shown []string
	for id := range oldSet {
		if !newSet[id] {
			hidden = append(hidden, id)
		}
	}
	for id := range newSet {
		if !oldSet[id] {
			shown = append(shown, id)
		}
	}
	sort.Strings(hidden)
	sort.Strings(shown)

	events := make([]marker.Event, 0, len(hidden)+len(shown))
	for _, id := range hidden {
		events = append(events, marker.Event{MarkerID: id, Visible: false})
	}
	for _, id := range shown {
		events = append(events, marker.Event{MarkerID: id, Visible: true})
	}
	return events
}

// VisibleMarkers returns the marker set for the current state.
func (m *Machine) VisibleMarkers() []string {
	set := m.markers.Visible(m.current)
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot is the persistable portion of a Machine.
type Snapshot struct {
	State          State    `json:"state"`
	CompletedSteps []string `json:"completed_steps,omitempty"`
}

// Snapshot captures the machine for persistence.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		State:          m.current,
		CompletedSteps: m.CompletedSteps(),
	}
}

// Restore replaces the machine's state from a snapshot. A restored
// machine reproduces identical transition behavior for any action
// sequence.
func (m *Machine) Restore(snap Snapshot) error {
	if !snap.State.Valid() {
		return fmt.Errorf("restore quest machine: unknown state %q", snap.State)
	}
	m.current = snap.State
	m.completed = make(map[string]bool, len(snap.CompletedSteps))
	for _, id := range snap.CompletedSteps {
		m.completed[id] = true
	}
	return nil
}

// Reset returns the machine to the initial state and clears completed
// steps. Used only by an explicit new-game operation.
func (m *Machine) Reset() {
	m.current = StateRegistered
	m.completed = make(map[string]bool)
}
