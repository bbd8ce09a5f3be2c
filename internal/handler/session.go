package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/pausely/pause-server-go/internal/middleware"
	"github.com/pausely/pause-server-go/internal/model"
	"github.com/pausely/pause-server-go/internal/service"
	"github.com/pausely/pause-server-go/internal/util"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/history", h.History)
	r.Get("/{sessionID}", h.Get)
	r.Post("/{sessionID}/messages", h.AppendMessage)
	r.Post("/{sessionID}/complete", h.Complete)
	r.Post("/{sessionID}/timer/pause", h.PauseTimer)
	r.Post("/{sessionID}/timer/resume", h.ResumeTimer)

	return r
}

// POST /v1/urge-sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		ImpulseTypeID string `json:"impulseTypeId"`
		TimerMinutes  int    `json:"timerMinutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	snapshot, err := h.sessionService.Create(r.Context(), user.ID, req.ImpulseTypeID, req.TimerMinutes)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snapshot)
}

// GET /v1/urge-sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	pagination := ParsePagination(r)
	sessions, err := h.sessionService.List(r.Context(), user.ID, pagination.Limit, pagination.Offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list sessions")
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []model.UrgeSession{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"limit":    pagination.Limit,
		"offset":   pagination.Offset,
	})
}

// GET /v1/urge-sessions/history
// Resolved sessions only: every entry has a SUCCESS or RELAPSE outcome.
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	pagination := ParsePagination(r)
	sessions, err := h.sessionService.History(r.Context(), user.ID, pagination.Limit, pagination.Offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list session history")
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []model.UrgeSession{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"limit":    pagination.Limit,
		"offset":   pagination.Offset,
	})
}

// GET /v1/urge-sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if !util.IsValidUUID(sessionID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID"})
		return
	}

	snapshot, err := h.sessionService.Get(r.Context(), sessionID, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// POST /v1/urge-sessions/{sessionID}/messages
func (h *SessionHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if !util.IsValidUUID(sessionID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID"})
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	result, err := h.sessionService.AppendMessage(r.Context(), sessionID, user.ID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// POST /v1/urge-sessions/{sessionID}/complete
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if !util.IsValidUUID(sessionID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID"})
		return
	}

	var req struct {
		Outcome model.Outcome `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	snapshot, err := h.sessionService.RecordOutcome(r.Context(), sessionID, user.ID, req.Outcome)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// POST /v1/urge-sessions/{sessionID}/timer/pause
func (h *SessionHandler) PauseTimer(w http.ResponseWriter, r *http.Request) {
	h.timerAction(w, r, h.sessionService.PauseTimer)
}

// POST /v1/urge-sessions/{sessionID}/timer/resume
func (h *SessionHandler) ResumeTimer(w http.ResponseWriter, r *http.Request) {
	h.timerAction(w, r, h.sessionService.ResumeTimer)
}

func (h *SessionHandler) timerAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, sessionID, userID string) (*service.SessionSnapshot, error),
) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if !util.IsValidUUID(sessionID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session ID"})
		return
	}

	snapshot, err := action(r.Context(), sessionID, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}
