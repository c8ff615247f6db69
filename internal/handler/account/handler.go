// Package account serves login and the payment provider webhook.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Jose-cardos0/ONLYNEX/internal/service/auth"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/subscription"
	"github.com/Jose-cardos0/ONLYNEX/pkg/utils"
)

// Authenticator is implemented by auth.Service.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResponse, error)
}

// EventHandler is implemented by subscription.Service.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev subscription.Event) (subscription.Result, error)
}

type Handler struct {
	auth   Authenticator
	events EventHandler
}

// New creates the account handler. Either dependency may be nil, in which
// case its route is not registered.
func New(authSvc Authenticator, events EventHandler) *Handler {
	return &Handler{auth: authSvc, events: events}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	if h.auth != nil {
		r.Post("/auth/login", h.handleLogin)
	}
	if h.events != nil {
		r.Post("/webhooks/payment", h.handlePayment)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	resp, err := h.auth.Login(r.Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		utils.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrAccountDisabled):
		utils.RespondError(w, http.StatusForbidden, "subscription inactive")
	case err != nil:
		log.Printf("[auth] login failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	default:
		utils.RespondJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) handlePayment(w http.ResponseWriter, r *http.Request) {
	var ev subscription.Event
	// provider payloads carry many more fields than we read
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&ev); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	log.Printf("[webhook] event=%q status=%q", ev.Event, ev.Status)

	result, err := h.events.HandleEvent(r.Context(), ev)
	switch {
	case errors.Is(err, subscription.ErrMissingEmail):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		log.Printf("[webhook] processing failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "webhook processing failed")
	default:
		utils.RespondJSON(w, http.StatusOK, result)
	}
}
