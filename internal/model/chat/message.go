package chat

import "time"

// Sender identifies who authored a timeline entry.
type Sender string

const (
	SenderUser Sender = "user"
	// SenderPeer is the model persona on the other side of the chat.
	SenderPeer Sender = "model"
)

// Kind distinguishes plain text entries from reward cards.
type Kind string

const (
	KindText Kind = "text"
	KindCard Kind = "card"
)

// MediaType of a reward card.
type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
)

// CardRef points at a reward card from the model catalog.
type CardRef struct {
	ID        string    `json:"id"`
	MediaURL  string    `json:"mediaUrl"`
	MediaType MediaType `json:"mediaType"`
}

// Message is one entry of a session timeline. Timelines are append-only and
// are never persisted.
type Message struct {
	ID        int64     `json:"id"`
	Sender    Sender    `json:"sender"`
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text"`
	Card      *CardRef  `json:"card,omitempty"`
	Saved     bool      `json:"saved,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IsCard reports whether the message carries a reward card.
func (m Message) IsCard() bool {
	return m.Kind == KindCard && m.Card != nil
}

// Latest returns the last n messages in timeline order.
func Latest(messages []Message, n int) []Message {
	if n <= 0 || len(messages) == 0 {
		return nil
	}
	start := 0
	if len(messages) > n {
		start = len(messages) - n
	}
	out := make([]Message, len(messages)-start)
	copy(out, messages[start:])
	return out
}
