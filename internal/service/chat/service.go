// Package chat runs chat sessions: it wires user text through the reply
// gateway, button clicks through the video player, elapsed time through the
// card drop timer and save clicks through the collection ledger.
package chat

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/carddrop"
)

var (
	ErrModelRequired   = errors.New("model id is required")
	ErrModelNotFound   = errors.New("model not found")
	ErrSessionNotFound = errors.New("session not found")
)

const (
	DefaultGreetingDelay = time.Second
	DefaultQueueSize     = 32
	DefaultIdleTTL       = 30 * time.Minute
	DefaultMaxPerUser    = 5
)

// Config holds session timing and the injectable clock and randomness.
type Config struct {
	CardDropPeriod time.Duration
	CardDropDwell  time.Duration
	GreetingDelay  time.Duration
	QueueSize      int
	IdleTTL        time.Duration
	MaxPerUser     int

	Now       func() time.Time
	Rand      func() *rand.Rand
	Ticks     carddrop.TickSource
	AfterFunc func(d time.Duration, f func()) (stop func() bool)
	NewID     func() string
}

func (c Config) withDefaults() Config {
	if c.CardDropPeriod <= 0 {
		c.CardDropPeriod = carddrop.DefaultPeriod
	}
	if c.CardDropDwell <= 0 {
		c.CardDropDwell = carddrop.DefaultDwell
	}
	if c.GreetingDelay < 0 {
		c.GreetingDelay = 0
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = DefaultIdleTTL
	}
	if c.MaxPerUser <= 0 {
		c.MaxPerUser = DefaultMaxPerUser
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
	if c.Rand == nil {
		c.Rand = func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) }
	}
	if c.AfterFunc == nil {
		c.AfterFunc = func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		}
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	return c
}

// Service is the registry of open sessions.
type Service struct {
	models  catalog.Store
	replier Replier
	ledger  Ledger
	cfg     Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewService(models catalog.Store, replier Replier, ledger Ledger, cfg Config) *Service {
	return &Service{
		models:   models,
		replier:  replier,
		ledger:   ledger,
		cfg:      cfg.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// Open resolves the model and opens a new session for user. When user
// already holds MaxPerUser sessions the least recently active one is
// closed.
func (s *Service) Open(ctx context.Context, modelID string, user User) (*Session, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, ErrModelRequired
	}
	model, ok := s.models.FindByID(modelID)
	if !ok {
		return nil, ErrModelNotFound
	}

	session := newSession(s.cfg.NewID(), model, user, s.replier, s.ledger, s.cfg)
	if err := session.Open(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[session.ID()] = session
	evicted := s.evictLocked(user.ID, session.ID())
	s.mu.Unlock()

	for _, old := range evicted {
		log.Printf("[session] evicting %s: user %s is over %d sessions", old.ID(), user.ID, s.cfg.MaxPerUser)
		old.Close()
	}
	return session, nil
}

func (s *Service) evictLocked(userID, keep string) []*Session {
	type candidate struct {
		session *Session
		active  time.Time
	}
	var owned []candidate
	for id, session := range s.sessions {
		if id != keep && session.Owner().ID == userID {
			active, _ := session.idleSince()
			owned = append(owned, candidate{session: session, active: active})
		}
	}
	excess := len(owned) + 1 - s.cfg.MaxPerUser
	if excess <= 0 {
		return nil
	}

	slices.SortFunc(owned, func(a, b candidate) int { return a.active.Compare(b.active) })
	evicted := make([]*Session, 0, excess)
	for _, c := range owned[:excess] {
		delete(s.sessions, c.session.ID())
		evicted = append(evicted, c.session)
	}
	return evicted
}

// Reap closes every session that has had no subscriber and no activity for
// IdleTTL, and returns how many it closed.
func (s *Service) Reap(now time.Time) int {
	s.mu.Lock()
	var expired []*Session
	for id, session := range s.sessions {
		if active, idle := session.idleSince(); idle && now.Sub(active) >= s.cfg.IdleTTL {
			delete(s.sessions, id)
			expired = append(expired, session)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		session.Close()
	}
	if len(expired) > 0 {
		log.Printf("[session] reaped %d idle sessions", len(expired))
	}
	return len(expired)
}

// RunReaper calls Reap every interval until ctx ends.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reap(s.cfg.Now())
		}
	}
}

// Get retrieves an open session by identifier.
func (s *Service) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetFor retrieves a session owned by userID. Sessions of other users are
// reported as not found.
func (s *Service) GetFor(sessionID, userID string) (*Session, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Owner().ID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close tears the session down and forgets it.
func (s *Service) Close(sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Close()
	return nil
}

// CloseAll closes every open session, used on shutdown.
func (s *Service) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	if len(sessions) > 0 {
		log.Printf("[session] closed %d sessions on shutdown", len(sessions))
	}
}

// Len returns the number of open sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
