// Package catalog serves the model catalog.
package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
	"github.com/Jose-cardos0/ONLYNEX/pkg/utils"
)

type Handler struct {
	models catalog.Store
}

func New(models catalog.Store) *Handler {
	return &Handler{models: models}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/models", h.handleList)
	r.Get("/models/{modelID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.models.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	model, ok := h.models.FindByID(chi.URLParam(r, "modelID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "model not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, model)
}
