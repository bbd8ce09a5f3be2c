package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/pausely/pause-server-go/internal/middleware"
	"github.com/pausely/pause-server-go/internal/model"
	"github.com/pausely/pause-server-go/internal/service"
)

type StreakHandler struct {
	streakService  *service.StreakService
	sessionService *service.SessionService
}

func NewStreakHandler(streakService *service.StreakService, sessionService *service.SessionService) *StreakHandler {
	return &StreakHandler{
		streakService:  streakService,
		sessionService: sessionService,
	}
}

func (h *StreakHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/current", h.Current)
	r.Get("/history", h.History)

	return r
}

// GET /v1/streaks/current
func (h *StreakHandler) Current(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	streak, err := h.streakService.Current(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to load streak")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, streak)
}

// GET /v1/streaks/history
// The resolved-session history behind the streak numbers.
func (h *StreakHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	pagination := ParsePagination(r)
	sessions, err := h.sessionService.History(r.Context(), user.ID, pagination.Limit, pagination.Offset)
	if err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to load streak history")
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
