package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dreyzab/grenzwanderer-sub000/internal/storage"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/condition"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/effect"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/quest"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/scene"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type mapSource map[string]*scene.Scene

func (m mapSource) Load(ctx context.Context, sceneID string) (*scene.Scene, error) {
	s, ok := m[sceneID]
	if !ok {
		return nil, fmt.Errorf("scene %q: %w", sceneID, scene.ErrNotFound)
	}
	return s, nil
}

func testScenes() mapSource {
	return mapSource{
		"trader_meeting": {
			ID:    "trader_meeting",
			Lines: []scene.DialogLine{{Speaker: "Trader", Text: "Parts for the craftsman. Interested?"}},
			Choices: []scene.Choice{
				{
					Text:        "Take the job",
					Effects:     []effect.Effect{{Kind: effect.KindAddItem, Item: "delivery_manifest", Quantity: 1}},
					QuestAction: quest.ActionStartDeliveryQuest,
					StepID:      "delivery_accepted",
					NextSceneID: "warehouse",
				},
				{
					Text: "Buy a charm first",
					Condition: &condition.Condition{
						Kind:     condition.KindStat,
						Stat:     "money",
						Operator: condition.OpGTE,
						Value:    25,
					},
					Feedback: "Not enough money.",
					Exit:     true,
				},
			},
		},
		"warehouse":          {ID: "warehouse"},
		"character_creation": {ID: "character_creation"},
	}
}

type testEnv struct {
	manager *SessionManager
	store   *storage.MockStorage
	session *SessionHandler
	codes   *CodesHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := storage.NewMockStorage()
	logger := testLogger()
	manager := NewSessionManager(testScenes(), nil, store, rdb, logger)

	return &testEnv{
		manager: manager,
		store:   store,
		session: NewSessionHandler(manager, nil, logger),
		codes:   NewCodesHandler(manager, nil, logger),
	}
}

func (e *testEnv) createSession(t *testing.T) SessionResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	w := httptest.NewRecorder()
	e.session.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func mustParse(t *testing.T, id string) uuid.UUID {
	t.Helper()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	return parsed
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t)

	resp := env.createSession(t)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, quest.StateRegistered, resp.QuestState)
	assert.False(t, resp.Restored)
	assert.Empty(t, resp.VisibleMarkers)

	// The snapshot is persisted on create.
	s, ok := env.manager.Get(mustParse(t, resp.ID))
	require.True(t, ok)
	snap, err := env.store.LoadSession(context.Background(), s.ID())
	require.NoError(t, err)
	require.NotNil(t, snap)
}

func TestCreateSessionRevivesFromStorage(t *testing.T) {
	env := newTestEnv(t)

	created := env.createSession(t)
	s, _ := env.manager.Get(mustParse(t, created.ID))

	_, err := s.HandleAction(context.Background(), quest.ActionStartDeliveryQuest, "delivery_accepted")
	require.NoError(t, err)
	require.NoError(t, env.manager.Persist(context.Background(), s))

	// Simulate a restart: live session gone, snapshot remains.
	require.NoError(t, func() error {
		env.manager.mu.Lock()
		defer env.manager.mu.Unlock()
		delete(env.manager.sessions, s.ID())
		return nil
	}())

	w := postJSON(t, env.session, "/v1/sessions", createSessionRequest{ID: created.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Restored)
	assert.Equal(t, quest.StateDeliveryStarted, resp.QuestState)
	assert.Contains(t, resp.CompletedSteps, "delivery_accepted")
}

func TestGetSession(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.ID, nil)
	w := httptest.NewRecorder()
	env.session.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)
}

func TestGetSessionNotFound(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/00000000-0000-0000-0000-000000000001", nil)
	w := httptest.NewRecorder()
	env.session.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSessionInvalidID(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/not-a-uuid", nil)
	w := httptest.NewRecorder()
	env.session.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+created.ID, nil)
	w := httptest.NewRecorder()
	env.session.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	_, ok := env.manager.Get(mustParse(t, created.ID))
	assert.False(t, ok)

	snap, err := env.store.LoadSession(context.Background(), mustParse(t, created.ID))
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestDispatchAction(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := postJSON(t, env.session, "/v1/sessions/"+created.ID+"/actions", actionRequest{
		Action: quest.ActionStartGame,
		StepID: "game_started",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp actionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Result.Committed)
	assert.Equal(t, quest.StateCharacterCreation, resp.Result.To)
	assert.Equal(t, quest.StateCharacterCreation, resp.Session.QuestState)
}

func TestDispatchActionUndefinedPair(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := postJSON(t, env.session, "/v1/sessions/"+created.ID+"/actions", actionRequest{
		Action: quest.ActionTakeParts,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp actionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Result.Committed)
	assert.Equal(t, quest.StateRegistered, resp.Session.QuestState)
}

func TestDispatchActionMissingAction(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := postJSON(t, env.session, "/v1/sessions/"+created.ID+"/actions", actionRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveChoice(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := postJSON(t, env.session, "/v1/sessions/"+created.ID+"/scene", loadSceneRequest{SceneID: "trader_meeting"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = postJSON(t, env.session, "/v1/sessions/"+created.ID+"/choices", choiceRequest{Index: 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp choiceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "advance", string(resp.Outcome.Kind))
	assert.Equal(t, quest.StateDeliveryStarted, resp.Session.QuestState)
	require.NotNil(t, resp.Session.Scene)
	assert.Equal(t, "warehouse", resp.Session.Scene.ID)
}

func TestResolveChoiceBlocked(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := postJSON(t, env.session, "/v1/sessions/"+created.ID+"/scene", loadSceneRequest{SceneID: "trader_meeting"})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, env.session, "/v1/sessions/"+created.ID+"/choices", choiceRequest{Index: 1})
	require.Equal(t, http.StatusOK, w.Code)

	var resp choiceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "blocked", string(resp.Outcome.Kind))
	assert.Equal(t, "Not enough money.", resp.Outcome.Reason)
	assert.Equal(t, quest.StateRegistered, resp.Session.QuestState)
	require.NotNil(t, resp.Session.Scene)
	assert.Equal(t, "trader_meeting", resp.Session.Scene.ID)
}

func TestResolveChoiceWithoutScene(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := postJSON(t, env.session, "/v1/sessions/"+created.ID+"/choices", choiceRequest{Index: 0})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoadSceneNotFound(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := postJSON(t, env.session, "/v1/sessions/"+created.ID+"/scene", loadSceneRequest{SceneID: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSceneWhenNoneLoaded(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.ID+"/scene", nil)
	w := httptest.NewRecorder()
	env.session.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkersDrain(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := postJSON(t, env.session, "/v1/sessions/"+created.ID+"/actions", actionRequest{
		Action: quest.ActionStartDeliveryQuest,
		StepID: "delivery_accepted",
	})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.ID+"/markers", nil)
	rec := httptest.NewRecorder()
	env.session.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp markersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2)
	assert.ElementsMatch(t, []string{quest.MarkerTrader, quest.MarkerCraftsman}, resp.Visible)

	// A second drain finds an empty buffer.
	rec = httptest.NewRecorder()
	env.session.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.ID+"/markers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Events)
	assert.ElementsMatch(t, []string{quest.MarkerTrader, quest.MarkerCraftsman}, resp.Visible)
}

func TestResetSession(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	w := postJSON(t, env.session, "/v1/sessions/"+created.ID+"/actions", actionRequest{
		Action: quest.ActionStartDeliveryQuest,
		StepID: "delivery_accepted",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, env.session, "/v1/sessions/"+created.ID+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, quest.StateRegistered, resp.QuestState)
	assert.Empty(t, resp.CompletedSteps)

	// Buffered marker events from before the reset are gone.
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.ID+"/markers", nil)
	rec := httptest.NewRecorder()
	env.session.ServeHTTP(rec, req)
	var markers markersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &markers))
	assert.Empty(t, markers.Events)
}

func TestUnknownSubresource(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.ID+"/bogus", nil)
	w := httptest.NewRecorder()
	env.session.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	w := httptest.NewRecorder()
	env.session.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
