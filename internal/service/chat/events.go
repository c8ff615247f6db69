package chat

import (
	"log"
	"sync"

	"github.com/Jose-cardos0/ONLYNEX/internal/model/chat"
)

// EventType names a session change pushed to subscribers.
type EventType string

const (
	EventMessage   EventType = "message"
	EventTyping    EventType = "typing"
	EventPlayback  EventType = "playback"
	EventCardSaved EventType = "card_saved"
	EventClosed    EventType = "closed"
)

// Event is one change of session state.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"sessionId"`
	Message   *chat.Message  `json:"message,omitempty"`
	Typing    *bool          `json:"typing,omitempty"`
	Playback  *chat.Playback `json:"playback,omitempty"`
	CardID    string         `json:"cardId,omitempty"`
}

// broadcaster fans events out to subscribers without ever blocking the
// publisher. A subscriber that falls behind loses events.
type broadcaster struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Event
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

func (b *broadcaster) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("[session] subscriber %d of %s is slow, dropped %s event", id, ev.SessionID, ev.Type)
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
