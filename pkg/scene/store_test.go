package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type sourceGate struct {
	entered chan struct{}
	release chan struct{}
}

// fakeSource serves scenes from a map, optionally gating individual
// loads so tests can control resolution order.
type fakeSource struct {
	mu     sync.Mutex
	scenes map[string]*Scene
	gates  map[string]*sourceGate
	loads  int
}

func newFakeSource(scenes ...*Scene) *fakeSource {
	m := make(map[string]*Scene, len(scenes))
	for _, s := range scenes {
		m[s.ID] = s
	}
	return &fakeSource{scenes: m, gates: make(map[string]*sourceGate)}
}

// gate makes Load block for sceneID. The returned gate signals on
// entered once the load has reached the source, and blocks until
// release is closed.
func (f *fakeSource) gate(sceneID string) *sourceGate {
	g := &sourceGate{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f.mu.Lock()
	f.gates[sceneID] = g
	f.mu.Unlock()
	return g
}

func (f *fakeSource) Load(ctx context.Context, sceneID string) (*Scene, error) {
	f.mu.Lock()
	f.loads++
	gate := f.gates[sceneID]
	s, ok := f.scenes[sceneID]
	f.mu.Unlock()

	if gate != nil {
		close(gate.entered)
		<-gate.release
	}
	if !ok {
		return nil, fmt.Errorf("scene %q: %w", sceneID, ErrNotFound)
	}
	return s, nil
}

func TestStoreLoadAndCurrent(t *testing.T) {
	src := newFakeSource(&Scene{
		ID:    "trader_meeting",
		Lines: []DialogLine{{Speaker: "Trader", Text: "You made it."}},
	})
	store := NewStore(src, 0, testLogger())

	if store.Current() != nil {
		t.Fatal("new store must have no current scene")
	}

	loaded, err := store.Load(context.Background(), "trader_meeting")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID != "trader_meeting" {
		t.Errorf("loaded %q", loaded.ID)
	}
	if store.Current() != loaded {
		t.Error("Current must return the loaded scene")
	}

	history := store.History()
	if len(history) != 1 || history[0].Speaker != "Trader" {
		t.Errorf("history = %v", history)
	}
}

func TestStoreLoadSameSceneIsNoOp(t *testing.T) {
	src := newFakeSource(&Scene{
		ID:    "trader_meeting",
		Lines: []DialogLine{{Speaker: "Trader", Text: "You made it."}},
	})
	store := NewStore(src, 0, testLogger())

	if _, err := store.Load(context.Background(), "trader_meeting"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(context.Background(), "trader_meeting"); err != nil {
		t.Fatal(err)
	}

	if src.loads != 1 {
		t.Errorf("source loads = %d, want 1 (reload of current scene must not hit the source)", src.loads)
	}
	if len(store.History()) != 1 {
		t.Error("no-op load must not append history")
	}
}

func TestStoreNotFoundKeepsPreviousScene(t *testing.T) {
	src := newFakeSource(&Scene{ID: "trader_meeting"})
	store := NewStore(src, 0, testLogger())

	if _, err := store.Load(context.Background(), "trader_meeting"); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load(context.Background(), "missing_scene")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.CurrentID() != "trader_meeting" {
		t.Errorf("previous scene must stay current, got %q", store.CurrentID())
	}
}

func TestStoreNotFoundWithNoPreviousScene(t *testing.T) {
	store := NewStore(newFakeSource(), 0, testLogger())

	_, err := store.Load(context.Background(), "missing_scene")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.Current() != nil {
		t.Error("store must hold no scene after a failed first load")
	}
}

func TestStoreSupersededLoadDiscarded(t *testing.T) {
	src := newFakeSource(&Scene{ID: "scene_a"}, &Scene{ID: "scene_b"})
	store := NewStore(src, 0, testLogger())

	gateA := src.gate("scene_a")

	type result struct {
		s   *Scene
		err error
	}
	slowLoad := make(chan result, 1)
	go func() {
		s, err := store.Load(context.Background(), "scene_a")
		slowLoad <- result{s, err}
	}()
	<-gateA.entered

	// While scene_a is still in flight, a newer navigation wins.
	if _, err := store.Load(context.Background(), "scene_b"); err != nil {
		t.Fatal(err)
	}

	close(gateA.release)
	res := <-slowLoad

	if !errors.Is(res.err, ErrStaleLoad) {
		t.Fatalf("expected ErrStaleLoad, got %v", res.err)
	}
	if store.CurrentID() != "scene_b" {
		t.Errorf("current = %q, want scene_b (last requested wins)", store.CurrentID())
	}
}

func TestStoreCurrentDuringOutstandingLoad(t *testing.T) {
	src := newFakeSource(&Scene{ID: "scene_a"}, &Scene{ID: "scene_b"})
	store := NewStore(src, 0, testLogger())

	if _, err := store.Load(context.Background(), "scene_a"); err != nil {
		t.Fatal(err)
	}

	gateB := src.gate("scene_b")
	done := make(chan struct{})
	go func() {
		_, _ = store.Load(context.Background(), "scene_b")
		close(done)
	}()
	<-gateB.entered

	// The previous scene stays visible while the load is in flight.
	if store.CurrentID() != "scene_a" {
		t.Errorf("current during load = %q, want scene_a", store.CurrentID())
	}

	close(gateB.release)
	<-done

	if store.CurrentID() != "scene_b" {
		t.Errorf("current after load = %q, want scene_b", store.CurrentID())
	}
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append("npc", fmt.Sprintf("line %d", i))
	}

	entries := h.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Text != "line 2" || entries[2].Text != "line 4" {
		t.Errorf("oldest entries must be evicted first: %v", entries)
	}
}
