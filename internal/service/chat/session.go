package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
	"github.com/Jose-cardos0/ONLYNEX/internal/model/chat"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/ai"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/carddrop"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/collection"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/playback"
)

var (
	ErrSessionClosed   = errors.New("session closed")
	ErrEmptyMessage    = errors.New("message text is required")
	ErrQueueFull       = errors.New("too many pending messages")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotACard        = errors.New("message does not carry a card")
	ErrClipNotFound    = errors.New("action clip not found")
	ErrClaimFailed     = errors.New("card claim failed")
)

// Replier resolves peer replies. It must always return a displayable string.
type Replier interface {
	GetReply(ctx context.Context, req ai.ReplyContext) string
}

// Ledger persists claimed cards.
type Ledger interface {
	Claim(ctx context.Context, user, modelID, cardID string) (collection.ClaimResult, error)
	Query(ctx context.Context, user, modelID string) (collection.CardSet, error)
}

// User is the identity a session is opened for.
type User struct {
	ID          string
	DisplayName string
}

type submission struct {
	messageID int64
	text      string
}

// Session is one open chat screen. It owns the timeline, the video player,
// the card drop timer and the reply worker; Close releases all of them.
type Session struct {
	id      string
	model   catalog.Model
	user    User
	replier Replier
	ledger  Ledger
	cfg     Config

	player *playback.Controller
	drops  *carddrop.Scheduler
	events *broadcaster

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan submission
	wg     sync.WaitGroup

	mu        sync.Mutex
	opened    bool
	closed    bool
	startedAt time.Time
	lastStamp time.Time
	nextID    int64
	messages  []chat.Message
	claimed   map[string]struct{}
	typing    bool
	lastDrop  *time.Time
	stopTimer func() bool

	lastActive  time.Time
	subscribers int
}

func newSession(id string, model catalog.Model, user User, replier Replier, ledger Ledger, cfg Config) *Session {
	s := &Session{
		id:      id,
		model:   model,
		user:    user,
		replier: replier,
		ledger:  ledger,
		cfg:     cfg,
		events:  newBroadcaster(),
		queue:   make(chan submission, cfg.QueueSize),
		claimed: make(map[string]struct{}),
	}
	s.startedAt = cfg.Now()
	s.lastActive = s.startedAt
	s.player = playback.New(cfg.Rand(), model.VideosDigitando)
	s.drops = carddrop.New(carddrop.Config{
		Period: cfg.CardDropPeriod,
		Dwell:  cfg.CardDropDwell,
		Cards:  model.Cards,
		Rand:   cfg.Rand(),
		Start:  s.startedAt,
		Emit:   s.appendDrop,
		Ticks:  cfg.Ticks,
	})
	return s
}

func (s *Session) ID() string { return s.id }

// Owner returns the identity the session was opened for.
func (s *Session) Owner() User { return s.user }

func (s *Session) Model() catalog.Model { return s.model }

// Open starts the player, loads already claimed cards, schedules the
// greeting and starts the card drop timer and reply worker.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.opened {
		s.mu.Unlock()
		return nil
	}
	s.opened = true
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	state := s.player.Start()
	s.publishLocked(Event{Type: EventPlayback, Playback: &state})
	s.mu.Unlock()

	if held, err := s.ledger.Query(ctx, s.user.ID, s.model.ID); err != nil {
		log.Printf("[session] %s: loading collection failed: %v", s.id, err)
	} else {
		s.mu.Lock()
		for id := range held {
			s.claimed[id] = struct{}{}
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.stopTimer = s.cfg.AfterFunc(s.cfg.GreetingDelay, s.greet)
	s.drops.Start(s.ctx)
	s.wg.Add(1)
	go s.worker()

	log.Printf("[session] opened %s model=%s user=%s", s.id, s.model.ID, s.user.ID)
	return nil
}

// Close cancels the timers and the pending reply and discards the
// timeline. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	if s.stopTimer != nil {
		s.stopTimer()
	}
	s.publishLocked(Event{Type: EventClosed})
	s.events.close()
	s.messages = nil
	s.mu.Unlock()

	// The scheduler emits under its own lock, so it is stopped without
	// holding ours.
	s.drops.Stop()
	s.wg.Wait()
	log.Printf("[session] closed %s", s.id)
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Subscribe returns a channel of session events. The channel is closed when
// the session closes or cancel is called. A session with a subscriber is
// never idle.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	ch, cancel := s.events.subscribe(buffer)

	s.mu.Lock()
	s.subscribers++
	s.touchLocked()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			cancel()
			s.mu.Lock()
			s.subscribers--
			s.touchLocked()
			s.mu.Unlock()
		})
	}
}

// idleSince returns the last activity and whether nobody is subscribed.
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.subscribers == 0
}

func (s *Session) touchLocked() {
	s.lastActive = s.cfg.Now()
}

// Submit appends the user's message and queues it for a reply. Replies are
// appended in submission order.
func (s *Session) Submit(text string) (chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.opened {
		return chat.Message{}, ErrSessionClosed
	}
	s.touchLocked()

	id := s.nextID + 1
	select {
	case s.queue <- submission{messageID: id, text: text}:
	default:
		return chat.Message{}, ErrQueueFull
	}

	msg := s.appendLocked(chat.Message{Sender: chat.SenderUser, Kind: chat.KindText, Text: text})
	return msg, nil
}

// TriggerAction plays the named button clip once.
func (s *Session) TriggerAction(clipID string) (chat.Playback, error) {
	clip, ok := s.model.ActionClip(clipID)
	if !ok {
		return chat.Playback{}, fmt.Errorf("%w: %s", ErrClipNotFound, clipID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return chat.Playback{}, ErrSessionClosed
	}
	s.touchLocked()
	state := s.player.Trigger(clip)
	s.publishLocked(Event{Type: EventPlayback, Playback: &state})
	return state, nil
}

// PlaybackEnded forwards the end-of-clip signal from the player.
func (s *Session) PlaybackEnded() (chat.Playback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return chat.Playback{}, ErrSessionClosed
	}
	s.touchLocked()
	before := s.player.State()
	state := s.player.PlaybackEnded()
	if state != before {
		s.publishLocked(Event{Type: EventPlayback, Playback: &state})
	}
	return state, nil
}

// SaveCard claims the card carried by message messageID. The saved marker
// is set only once the ledger confirms the claim; ledger failures are
// returned tagged with collection.ErrStoreUnavailable.
func (s *Session) SaveCard(ctx context.Context, messageID int64) (chat.Message, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return chat.Message{}, ErrSessionClosed
	}
	s.touchLocked()
	idx := s.indexLocked(messageID)
	if idx < 0 {
		s.mu.Unlock()
		return chat.Message{}, ErrMessageNotFound
	}
	msg := s.messages[idx]
	if !msg.IsCard() {
		s.mu.Unlock()
		return chat.Message{}, ErrNotACard
	}
	cardID := msg.Card.ID
	if _, held := s.claimed[cardID]; held {
		msg = s.markSavedLocked(cardID, idx)
		s.mu.Unlock()
		return msg, nil
	}
	s.mu.Unlock()

	if _, err := s.claim(ctx, cardID); err != nil {
		log.Printf("[session] %s: save card %s failed: %v", s.id, cardID, err)
		return chat.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		msg.Saved = true
		return msg, nil
	}
	return s.markSavedLocked(cardID, s.indexLocked(messageID)), nil
}

func (s *Session) claim(ctx context.Context, cardID string) (result collection.ClaimResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrClaimFailed, r)
		}
	}()
	return s.ledger.Claim(ctx, s.user.ID, s.model.ID, cardID)
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	claimed := make([]string, 0, len(s.claimed))
	for id := range s.claimed {
		claimed = append(claimed, id)
	}
	slices.Sort(claimed)

	var lastDrop *time.Time
	if s.lastDrop != nil {
		at := *s.lastDrop
		lastDrop = &at
	}

	return chat.Session{
		ID:               s.id,
		ModelID:          s.model.ID,
		UserID:           s.user.ID,
		StartedAt:        s.startedAt,
		Typing:           s.typing,
		Playback:         s.player.State(),
		ClaimedCardIDs:   claimed,
		LastCardEmission: lastDrop,
		Messages:         slices.Clone(s.messages),
	}
}

func (s *Session) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case sub := <-s.queue:
			s.process(sub)
		}
	}
}

func (s *Session) process(sub submission) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	history := s.historyBeforeLocked(sub.messageID)
	s.setTypingLocked(true)
	s.mu.Unlock()

	reply := s.resolveReply(sub.text, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		log.Printf("[session] %s: discarding reply resolved after close", s.id)
		return
	}
	s.setTypingLocked(false)
	s.appendLocked(chat.Message{Sender: chat.SenderPeer, Kind: chat.KindText, Text: reply})
}

func (s *Session) resolveReply(text string, history []chat.Message) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[session] %s: reply panicked: %v", s.id, r)
			reply = ai.ApologyReply
		}
	}()

	return s.replier.GetReply(s.ctx, ai.ReplyContext{
		ModelID:         s.model.ID,
		ModelName:       s.model.Name,
		UserMessage:     text,
		UserIdentity:    s.user.ID,
		UserDisplayName: s.user.DisplayName,
		RecentHistory:   history,
	})
}

func (s *Session) greet() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.appendLocked(chat.Message{Sender: chat.SenderPeer, Kind: chat.KindText, Text: Greeting(s.user.DisplayName)})
}

// appendDrop is the scheduler's emit callback.
func (s *Session) appendDrop(drop carddrop.Drop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	ref := drop.Card.Ref()
	_, saved := s.claimed[ref.ID]
	msg := s.appendLocked(chat.Message{
		Sender: chat.SenderPeer,
		Kind:   chat.KindCard,
		Text:   drop.Caption,
		Card:   &ref,
		Saved:  saved,
	})
	at := msg.Timestamp
	s.lastDrop = &at
	log.Printf("[session] %s: dropped card %s after %s", s.id, ref.ID, drop.Elapsed.Round(time.Second))
}

func (s *Session) appendLocked(msg chat.Message) chat.Message {
	s.nextID++
	msg.ID = s.nextID
	msg.Timestamp = s.stampLocked()
	s.messages = append(s.messages, msg)

	published := msg
	if msg.Card != nil {
		card := *msg.Card
		published.Card = &card
	}
	s.publishLocked(Event{Type: EventMessage, Message: &published})
	return published
}

// stampLocked returns a timestamp strictly after the previous one.
func (s *Session) stampLocked() time.Time {
	now := s.cfg.Now()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Millisecond)
	}
	s.lastStamp = now
	return now
}

func (s *Session) setTypingLocked(typing bool) {
	if s.typing == typing {
		return
	}
	s.typing = typing
	s.publishLocked(Event{Type: EventTyping, Typing: &typing})
}

func (s *Session) markSavedLocked(cardID string, idx int) chat.Message {
	_, already := s.claimed[cardID]
	s.claimed[cardID] = struct{}{}
	for i := range s.messages {
		if s.messages[i].IsCard() && s.messages[i].Card.ID == cardID {
			s.messages[i].Saved = true
		}
	}
	if !already {
		s.publishLocked(Event{Type: EventCardSaved, CardID: cardID})
	}
	if idx < 0 {
		return chat.Message{}
	}
	msg := s.messages[idx]
	card := *msg.Card
	msg.Card = &card
	return msg
}

func (s *Session) indexLocked(messageID int64) int {
	// ids are ordinals, so the slot is predictable while the timeline is intact
	if i := int(messageID - 1); i >= 0 && i < len(s.messages) && s.messages[i].ID == messageID {
		return i
	}
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

func (s *Session) historyBeforeLocked(messageID int64) []chat.Message {
	end := len(s.messages)
	if idx := s.indexLocked(messageID); idx >= 0 {
		end = idx
	}
	return chat.Latest(s.messages[:end], ai.HistoryLimit)
}

func (s *Session) publishLocked(ev Event) {
	ev.SessionID = s.id
	s.events.publish(ev)
}

// Greeting is the first peer message of every session.
func Greeting(displayName string) string {
	if strings.TrimSpace(displayName) == "" {
		displayName = ai.DefaultDisplayName
	}
	return fmt.Sprintf("Oi %s! 💕 Que bom te ver por aqui! Como posso te ajudar hoje?", displayName)
}
