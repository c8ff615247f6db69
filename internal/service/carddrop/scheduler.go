// Package carddrop periodically drops random reward cards into an open chat
// once the user has stayed long enough.
package carddrop

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
	"github.com/Jose-cardos0/ONLYNEX/internal/model/chat"
)

const (
	DefaultPeriod = 5 * time.Minute
	DefaultDwell  = 5 * time.Minute
)

// Drop is one emitted card with its flavor caption.
type Drop struct {
	Card    catalog.Card
	Caption string
	At      time.Time
	Elapsed time.Duration
}

// TickSource returns a channel of tick times and a function releasing it.
type TickSource func(period time.Duration) (<-chan time.Time, func())

// Config controls a Scheduler.
type Config struct {
	Period time.Duration
	Dwell  time.Duration
	Cards  []catalog.Card
	Rand   *rand.Rand
	// Start is the session open instant all elapsed times are measured from.
	Start time.Time
	Emit  func(Drop)
	Ticks TickSource

	PhotoCaptions []string
	VideoCaptions []string
}

// Scheduler evaluates the drop policy on every tick: a card is emitted when
// the time elapsed since session open has reached the dwell minimum. There
// is no cap on repeats and the same card may be drawn again.
type Scheduler struct {
	cfg Config

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a scheduler. Zero durations use the five minute defaults.
func New(cfg Config) *Scheduler {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Dwell <= 0 {
		cfg.Dwell = DefaultDwell
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now()
	}
	if cfg.Ticks == nil {
		cfg.Ticks = realTicks
	}
	if len(cfg.PhotoCaptions) == 0 {
		cfg.PhotoCaptions = PhotoCaptions()
	}
	if len(cfg.VideoCaptions) == 0 {
		cfg.VideoCaptions = VideoCaptions()
	}
	cfg.Cards = append([]catalog.Card(nil), cfg.Cards...)
	return &Scheduler{cfg: cfg}
}

// Enabled reports whether the catalog has anything to drop.
func (s *Scheduler) Enabled() bool {
	return len(s.cfg.Cards) > 0
}

// Tick evaluates the policy at now and emits at most one card.
func (s *Scheduler) Tick(now time.Time) (Drop, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || len(s.cfg.Cards) == 0 {
		return Drop{}, false
	}

	elapsed := now.Sub(s.cfg.Start)
	if elapsed < s.cfg.Dwell {
		return Drop{}, false
	}

	card := s.cfg.Cards[s.cfg.Rand.IntN(len(s.cfg.Cards))]
	drop := Drop{
		Card:    card,
		Caption: s.caption(card.MediaType),
		At:      now,
		Elapsed: elapsed,
	}
	if s.cfg.Emit != nil {
		s.cfg.Emit(drop)
	}
	return drop, true
}

// Start runs the tick loop in the background until ctx ends or Stop is
// called. An empty catalog starts nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.done != nil || len(s.cfg.Cards) == 0 {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	ticks, release := s.cfg.Ticks(s.cfg.Period)
	go s.run(loopCtx, ticks, release, s.done)
}

// Stop cancels the loop and waits for it to exit. No drop is emitted once
// Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) run(ctx context.Context, ticks <-chan time.Time, release func(), done chan struct{}) {
	defer close(done)
	defer release()

	for {
		select {
		case <-ctx.Done():
			return
		case now, ok := <-ticks:
			if !ok {
				return
			}
			s.Tick(now)
		}
	}
}

func (s *Scheduler) caption(mediaType chat.MediaType) string {
	pool := s.cfg.PhotoCaptions
	if mediaType == chat.MediaVideo {
		pool = s.cfg.VideoCaptions
	}
	return pool[s.cfg.Rand.IntN(len(pool))]
}

func realTicks(period time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(period)
	return ticker.C, ticker.Stop
}
