// Package chat exposes chat sessions over REST.
package chat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Jose-cardos0/ONLYNEX/internal/middleware"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/chat"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/collection"
	"github.com/Jose-cardos0/ONLYNEX/pkg/utils"
)

// Handler serves the session endpoints.
type Handler struct {
	chatSvc *chat.Service
	limiter *middleware.RateLimiter
}

// New creates the session handler. A nil limiter disables message throttling.
func New(chatSvc *chat.Service, limiter *middleware.RateLimiter) *Handler {
	return &Handler{chatSvc: chatSvc, limiter: limiter}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleOpen)
	r.Route("/sessions/{sessionID}", func(s chi.Router) {
		s.Get("/", h.handleSnapshot)
		s.Delete("/", h.handleClose)
		if h.limiter != nil {
			s.With(h.limiter.Handle).Post("/messages", h.handleSubmit)
		} else {
			s.Post("/messages", h.handleSubmit)
		}
		s.Post("/actions/{clipID}", h.handleAction)
		s.Post("/playback/ended", h.handlePlaybackEnded)
		s.Post("/cards/{messageID}/save", h.handleSaveCard)
	})
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var payload struct {
		ModelID string `json:"modelId"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.Open(r.Context(), payload.ModelID, chat.User{ID: identity.ID, DisplayName: identity.Name})
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session.Snapshot())
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.chatSvc.Close(session.ID()); err != nil {
		RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := session.Submit(payload.Text)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, msg)
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	state, err := session.TriggerAction(chi.URLParam(r, "clipID"))
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, state)
}

func (h *Handler) handlePlaybackEnded(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	state, err := session.PlaybackEnded()
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, state)
}

func (h *Handler) handleSaveCard(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	messageID, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	msg, err := session.SaveCard(r.Context(), messageID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, msg)
}

// session resolves the URL session for the caller, answering the error itself.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*chat.Session, bool) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return nil, false
	}
	session, err := h.chatSvc.GetFor(chi.URLParam(r, "sessionID"), identity.ID)
	if err != nil {
		RespondServiceError(w, err)
		return nil, false
	}
	return session, true
}

// StatusFor maps chat and ledger errors to HTTP statuses.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrModelRequired),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, collection.ErrInvalidClaim):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrModelNotFound),
		errors.Is(err, chat.ErrSessionNotFound),
		errors.Is(err, chat.ErrMessageNotFound),
		errors.Is(err, chat.ErrClipNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrNotACard):
		return http.StatusUnprocessableEntity
	case errors.Is(err, chat.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, chat.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, collection.ErrStoreUnavailable),
		errors.Is(err, chat.ErrClaimFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func RespondServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	utils.RespondError(w, status, message)
}
