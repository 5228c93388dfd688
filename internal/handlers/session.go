package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Dreyzab/grenzwanderer-sub000/internal/events"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/dialogue"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/engine"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/marker"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/quest"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/scene"
)

// SessionHandler serves the session resource and its subresources.
// Routes:
//
//	POST   /v1/sessions                 - create (or revive) a session
//	GET    /v1/sessions/{id}            - read session state
//	DELETE /v1/sessions/{id}            - delete session
//	POST   /v1/sessions/{id}/reset      - new game
//	POST   /v1/sessions/{id}/actions    - dispatch a quest action
//	POST   /v1/sessions/{id}/choices    - resolve a choice by index
//	GET    /v1/sessions/{id}/scene      - current scene
//	POST   /v1/sessions/{id}/scene      - load a scene by id
//	GET    /v1/sessions/{id}/markers    - drain buffered marker events
type SessionHandler struct {
	manager     *SessionManager
	broadcaster *events.Broadcaster
	logger      *slog.Logger
}

func NewSessionHandler(manager *SessionManager, broadcaster *events.Broadcaster, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		manager:     manager,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// SessionResponse is the wire form of a session's current state.
type SessionResponse struct {
	ID             string             `json:"id"`
	QuestState     quest.State        `json:"quest_state"`
	CompletedSteps []string           `json:"completed_steps"`
	VisibleMarkers []string           `json:"visible_markers"`
	Player         interface{}        `json:"player"`
	Scene          *scene.Scene       `json:"scene,omitempty"`
	History        []scene.DialogLine `json:"history,omitempty"`
	Restored       bool               `json:"restored,omitempty"`
}

func sessionResponse(s *engine.Session) SessionResponse {
	return SessionResponse{
		ID:             s.ID().String(),
		QuestState:     s.QuestState(),
		CompletedSteps: s.CompletedSteps(),
		VisibleMarkers: s.VisibleMarkers(),
		Player:         s.Player(),
		Scene:          s.CurrentScene(),
		History:        s.History(),
	}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/v1/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	s, ok := h.manager.Get(id)
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, h.logger, http.StatusOK, sessionResponse(s))
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
		}
		return
	}

	switch parts[1] {
	case "actions":
		h.handleAction(w, r, s)
	case "choices":
		h.handleChoice(w, r, s)
	case "scene":
		h.handleScene(w, r, s)
	case "markers":
		h.handleMarkers(w, r, s)
	case "reset":
		h.handleReset(w, r, s)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown session subresource")
	}
}

type createSessionRequest struct {
	ID string `json:"id,omitempty"`
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	id := uuid.Nil
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
			return
		}
		id = parsed
	}

	s, restored, err := h.manager.GetOrCreate(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to create session", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create session")
		return
	}

	if err := h.manager.Persist(r.Context(), s); err != nil {
		h.logger.Error("Failed to persist session", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to persist session")
		return
	}

	if h.broadcaster != nil {
		_ = h.broadcaster.PublishSessionEvent(r.Context(), s.ID(), events.EventTypeSessionCreated)
	}

	resp := sessionResponse(s)
	resp.Restored = restored
	writeJSON(w, h.logger, http.StatusCreated, resp)
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.manager.Remove(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete session", "uuid", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type actionRequest struct {
	Action quest.Action `json:"action"`
	StepID string       `json:"step_id,omitempty"`
}

type actionResponse struct {
	Result  quest.Result    `json:"result"`
	Session SessionResponse `json:"session"`
}

func (h *SessionHandler) handleAction(w http.ResponseWriter, r *http.Request, s *engine.Session) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Action == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Action is required")
		return
	}

	res, err := s.HandleAction(r.Context(), req.Action, req.StepID)
	if err != nil {
		h.logger.Error("Failed to dispatch action", "action", req.Action, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to dispatch action")
		return
	}

	if res.Committed {
		if err := h.manager.Persist(r.Context(), s); err != nil {
			h.logger.Error("Failed to persist session", "error", err)
		}
	}
	if h.broadcaster != nil {
		_ = h.broadcaster.PublishTransition(r.Context(), s.ID(), req.Action, res)
	}

	writeJSON(w, h.logger, http.StatusOK, actionResponse{Result: res, Session: sessionResponse(s)})
}

type choiceRequest struct {
	Index int `json:"index"`
}

type choiceResponse struct {
	Outcome dialogue.Outcome `json:"outcome"`
	Session SessionResponse  `json:"session"`
}

func (h *SessionHandler) handleChoice(w http.ResponseWriter, r *http.Request, s *engine.Session) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	outcome, err := s.HandleChoiceAt(r.Context(), req.Index)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNoScene):
			writeError(w, h.logger, http.StatusConflict, err.Error())
		case errors.Is(err, scene.ErrNotFound):
			writeError(w, h.logger, http.StatusNotFound, err.Error())
		default:
			h.logger.Error("Failed to resolve choice", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to resolve choice")
		}
		return
	}

	if outcome.Kind == dialogue.OutcomeBlocked {
		if h.broadcaster != nil {
			_ = h.broadcaster.PublishChoiceBlocked(r.Context(), s.ID(), outcome.Reason)
		}
	} else {
		if err := h.manager.Persist(r.Context(), s); err != nil {
			h.logger.Error("Failed to persist session", "error", err)
		}
	}

	writeJSON(w, h.logger, http.StatusOK, choiceResponse{Outcome: outcome, Session: sessionResponse(s)})
}

type loadSceneRequest struct {
	SceneID string `json:"scene_id"`
}

func (h *SessionHandler) handleScene(w http.ResponseWriter, r *http.Request, s *engine.Session) {
	switch r.Method {
	case http.MethodGet:
		cur := s.CurrentScene()
		if cur == nil {
			writeError(w, h.logger, http.StatusNotFound, "No scene loaded")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, cur)

	case http.MethodPost:
		var req loadSceneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SceneID == "" {
			writeError(w, h.logger, http.StatusBadRequest, "scene_id is required")
			return
		}

		loaded, err := s.LoadScene(r.Context(), req.SceneID)
		if err != nil {
			switch {
			case errors.Is(err, scene.ErrStaleLoad):
				// Superseded by a newer navigation; report what is current.
				writeJSON(w, h.logger, http.StatusOK, s.CurrentScene())
			case errors.Is(err, scene.ErrNotFound):
				writeError(w, h.logger, http.StatusNotFound, "Scene not found: "+req.SceneID)
			default:
				h.logger.Error("Failed to load scene", "scene_id", req.SceneID, "error", err)
				writeError(w, h.logger, http.StatusInternalServerError, "Failed to load scene")
			}
			return
		}

		if err := h.manager.Persist(r.Context(), s); err != nil {
			h.logger.Error("Failed to persist session", "error", err)
		}
		if h.broadcaster != nil {
			_ = h.broadcaster.PublishSceneLoaded(r.Context(), s.ID(), loaded.ID)
		}
		writeJSON(w, h.logger, http.StatusOK, loaded)

	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, POST")
	}
}

type markersResponse struct {
	Events  []marker.Event `json:"events"`
	Visible []string       `json:"visible"`
}

func (h *SessionHandler) handleMarkers(w http.ResponseWriter, r *http.Request, s *engine.Session) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	drained, err := h.manager.MarkerQueue(s.ID()).Drain(r.Context())
	if err != nil {
		h.logger.Error("Failed to drain marker events", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to drain marker events")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, markersResponse{
		Events:  drained,
		Visible: s.VisibleMarkers(),
	})
}

func (h *SessionHandler) handleReset(w http.ResponseWriter, r *http.Request, s *engine.Session) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	s.Reset()
	if err := h.manager.MarkerQueue(s.ID()).Clear(r.Context()); err != nil {
		h.logger.Warn("Failed to clear marker buffer on reset", "error", err)
	}
	if err := h.manager.Persist(r.Context(), s); err != nil {
		h.logger.Error("Failed to persist session", "error", err)
	}
	if h.broadcaster != nil {
		_ = h.broadcaster.PublishSessionEvent(r.Context(), s.ID(), events.EventTypeSessionReset)
	}

	writeJSON(w, h.logger, http.StatusOK, sessionResponse(s))
}
