// Package collection serves the caller's saved cards.
package collection

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Jose-cardos0/ONLYNEX/internal/middleware"
	"github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/collection"
	"github.com/Jose-cardos0/ONLYNEX/pkg/utils"
)

type Handler struct {
	ledger *collection.Ledger
	models catalog.Store
}

func New(ledger *collection.Ledger, models catalog.Store) *Handler {
	return &Handler{ledger: ledger, models: models}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/collections", h.handleAll)
	r.Get("/collections/{modelID}", h.handleModel)
}

type modelCollection struct {
	ModelID string         `json:"modelId"`
	Cards   []catalog.Card `json:"cards"`
	Total   int            `json:"total"`
}

func (h *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	entries, err := h.ledger.All(r.Context(), identity.ID)
	if err != nil {
		log.Printf("[collection] load %s failed: %v", identity.ID, err)
		utils.RespondError(w, http.StatusServiceUnavailable, "collection unavailable")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"models": entries,
		"count":  collection.CountCards(entries),
	})
}

func (h *Handler) handleModel(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	model, ok := h.models.FindByID(chi.URLParam(r, "modelID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "model not found")
		return
	}

	saved, err := h.ledger.Query(r.Context(), identity.ID, model.ID)
	if err != nil {
		log.Printf("[collection] query %s/%s failed: %v", identity.ID, model.ID, err)
		utils.RespondError(w, http.StatusServiceUnavailable, "collection unavailable")
		return
	}

	cards := make([]catalog.Card, 0, saved.Len())
	for _, card := range model.Cards {
		if saved.Has(card.ID) {
			cards = append(cards, card)
		}
	}
	utils.RespondJSON(w, http.StatusOK, modelCollection{ModelID: model.ID, Cards: cards, Total: len(model.Cards)})
}
