package marker

import "context"

// Event reports a visibility change for one map marker.
type Event struct {
	MarkerID string `json:"marker_id"`
	Visible  bool   `json:"visible"`
}

// Synchronizer forwards visibility events to the map layer. The engine
// may emit duplicate show/hide for the same marker; implementations
// must treat them as idempotent. Buffering until the map layer is
// ready is the implementation's concern, not the engine's.
type Synchronizer interface {
	Sync(ctx context.Context, events []Event) error
}

// Nop discards all events. Useful when no map layer is attached.
type Nop struct{}

func (Nop) Sync(ctx context.Context, events []Event) error { return nil }

// Recorder captures events in order for tests.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Sync(ctx context.Context, events []Event) error {
	r.Events = append(r.Events, events...)
	return nil
}

// Visible returns the set of markers currently shown after replaying
// all recorded events.
func (r *Recorder) Visible() map[string]bool {
	visible := make(map[string]bool)
	for _, e := range r.Events {
		if e.Visible {
			visible[e.MarkerID] = true
		} else {
			delete(visible, e.MarkerID)
		}
	}
	return visible
}
