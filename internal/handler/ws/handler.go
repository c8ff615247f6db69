// Package ws drives a chat session over a WebSocket: commands come in,
// session events and command results go out.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chathandler "github.com/Jose-cardos0/ONLYNEX/internal/handler/chat"
	"github.com/Jose-cardos0/ONLYNEX/internal/middleware"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/chat"
	"github.com/Jose-cardos0/ONLYNEX/pkg/utils"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

var errUnsupported = errors.New("unsupported message type")

type Handler struct {
	chatSvc  *chat.Service
	limiter  *middleware.RateLimiter
	upgrader websocket.Upgrader
}

// New creates the WebSocket handler. The limiter, when set, throttles text
// messages per identity.
func New(chatSvc *chat.Service, limiter *middleware.RateLimiter) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	ClipID    string `json:"clipId,omitempty"`
	MessageID int64  `json:"messageId,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Request   string      `json:"request,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
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

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", session.ID())

	events, unsubscribe := session.Subscribe(64)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan outgoingMessage, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, events, out)
	}()
	defer func() {
		cancel()
		<-writerDone
	}()

	send := func(msg outgoingMessage) bool {
		msg.SessionID = session.ID()
		msg.Timestamp = time.Now().Unix()
		select {
		case out <- msg:
			return true
		case <-ctx.Done():
			return false
		case <-writerDone:
			return false
		}
	}

	if !send(outgoingMessage{Type: "snapshot", Data: session.Snapshot()}) {
		return
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		result, err := h.dispatch(ctx, session, identity, msg)
		reply := outgoingMessage{Type: "result", Request: msg.Type, Data: result}
		if err != nil {
			reply = outgoingMessage{Type: "error", Request: msg.Type, Data: map[string]any{
				"message": err.Error(),
				"status":  chathandler.StatusFor(err),
			}}
		}
		if !send(reply) {
			return
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, session *chat.Session, identity middleware.Identity, msg inboundMessage) (any, error) {
	switch msg.Type {
	case "text":
		if h.limiter != nil && !h.limiter.Allow(identity.ID) {
			return nil, chat.ErrQueueFull
		}
		return session.Submit(msg.Text)
	case "action":
		return session.TriggerAction(msg.ClipID)
	case "ended":
		return session.PlaybackEnded()
	case "save":
		return session.SaveCard(ctx, msg.MessageID)
	case "snapshot":
		return session.Snapshot(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupported, msg.Type)
	}
}

// writeLoop is the only goroutine writing to conn. It ends the connection
// once the session closes.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan chat.Event, out <-chan outgoingMessage) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	write := func(msg outgoingMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("[websocket] write failed: %v", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			if !write(msg) {
				conn.Close()
				return
			}
		case ev, ok := <-events:
			if !ok {
				deadline := time.Now().Add(writeWait)
				conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"), deadline)
				conn.Close()
				return
			}
			if !write(outgoingMessage{Type: "event", SessionID: ev.SessionID, Data: ev, Timestamp: time.Now().Unix()}) {
				conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return
			}
		}
	}
}
