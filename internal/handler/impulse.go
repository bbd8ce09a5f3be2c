package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/pausely/pause-server-go/internal/repository"
)

type ImpulseTypeHandler struct {
	impulseRepo repository.ImpulseTypeRepository
}

func NewImpulseTypeHandler(impulseRepo repository.ImpulseTypeRepository) *ImpulseTypeHandler {
	return &ImpulseTypeHandler{impulseRepo: impulseRepo}
}

func (h *ImpulseTypeHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)

	return r
}

// GET /v1/impulse-types
func (h *ImpulseTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	types, err := h.impulseRepo.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list impulse types")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"impulseTypes": types,
	})
}
