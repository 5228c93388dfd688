package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Dreyzab/grenzwanderer-sub000/internal/events"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/qr"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/quest"
)

// CodesHandler scans QR payloads on behalf of a session.
// Route: POST /v1/codes
type CodesHandler struct {
	manager     *SessionManager
	broadcaster *events.Broadcaster
	logger      *slog.Logger
}

func NewCodesHandler(manager *SessionManager, broadcaster *events.Broadcaster, logger *slog.Logger) *CodesHandler {
	return &CodesHandler{
		manager:     manager,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

type scanRequest struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
}

type scanResponse struct {
	Binding qr.Binding      `json:"binding"`
	Result  quest.Result    `json:"result"`
	Session SessionResponse `json:"session"`
}

func (h *CodesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Code is required")
		return
	}

	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	s, ok := h.manager.Get(id)
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return
	}

	binding, res, err := s.HandleCode(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, qr.ErrUnknownCode) {
			// Unknown codes are a user-facing outcome, not a server fault.
			writeError(w, h.logger, http.StatusNotFound, "Unknown code")
			return
		}
		h.logger.Error("Failed to handle code", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to handle code")
		return
	}

	if res.Committed {
		if err := h.manager.Persist(r.Context(), s); err != nil {
			h.logger.Error("Failed to persist session", "error", err)
		}
	}
	if h.broadcaster != nil {
		_ = h.broadcaster.PublishTransition(r.Context(), s.ID(), binding.Action, res)
	}

	writeJSON(w, h.logger, http.StatusOK, scanResponse{
		Binding: binding,
		Result:  res,
		Session: sessionResponse(s),
	})
}
