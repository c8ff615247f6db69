// Package stream pushes session events to browsers over Server-Sent Events.
package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	chathandler "github.com/Jose-cardos0/ONLYNEX/internal/handler/chat"
	"github.com/Jose-cardos0/ONLYNEX/internal/middleware"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/chat"
	"github.com/Jose-cardos0/ONLYNEX/pkg/utils"
)

const (
	DefaultHeartbeat = 15 * time.Second
	subscriberBuffer = 64
)

// Handler streams session events.
type Handler struct {
	chatSvc   *chat.Service
	heartbeat time.Duration
}

func New(chatSvc *chat.Service, heartbeat time.Duration) *Handler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &Handler{chatSvc: chatSvc, heartbeat: heartbeat}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/events", h.handleEvents)
}

// handleEvents sends a snapshot first, then every event until the session
// closes or the client goes away.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	session, err := h.chatSvc.GetFor(chi.URLParam(r, "sessionID"), identity.ID)
	if err != nil {
		chathandler.RespondServiceError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, cancel := session.Subscribe(subscriberBuffer)
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEEvent(w, flusher, "snapshot", session.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	log.Printf("[sse] stream opened session=%s", session.ID())
	defer log.Printf("[sse] stream closed session=%s", session.ID())

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(ev.Type), ev); err != nil {
				return
			}
			if ev.Type == chat.EventClosed {
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
