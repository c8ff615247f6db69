// Package playback drives the persona video player: a random idle clip
// loops until a button clip is triggered, which plays once before the
// player falls back to a fresh idle clip.
package playback

import (
	"math/rand/v2"
	"sync"

	"github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
	"github.com/Jose-cardos0/ONLYNEX/internal/model/chat"
)

// State is the player state at a point in time.
type State = chat.Playback

// Controller is safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	rng   *rand.Rand
	idle  []catalog.IdleClip
	state State
}

// New creates a controller over the idle pool. The controller starts in
// no-media mode until Start is called.
func New(rng *rand.Rand, idle []catalog.IdleClip) *Controller {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	pool := make([]catalog.IdleClip, 0, len(idle))
	for _, clip := range idle {
		if clip.VideoURL != "" {
			pool = append(pool, clip)
		}
	}
	return &Controller{
		rng:   rng,
		idle:  pool,
		state: State{Mode: chat.PlaybackNoMedia},
	}
}

// Start draws a random idle clip. With an empty pool the player shows the
// static fallback image instead.
func (c *Controller) Start() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enterIdle()
	return c.state
}

// Trigger plays a button clip once and highlights its control.
func (c *Controller) Trigger(clip catalog.ActionClip) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{
		Mode:         chat.PlaybackOneShot,
		ClipURL:      clip.VideoURL,
		ActiveClipID: clip.ID,
		Loop:         false,
	}
	return c.state
}

// PlaybackEnded handles the end-of-clip signal. It only acts on one-shot
// clips; idle clips loop and a stray signal leaves the state untouched.
func (c *Controller) PlaybackEnded() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode == chat.PlaybackOneShot {
		c.enterIdle()
	}
	return c.state
}

// State returns the current player state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) enterIdle() {
	if len(c.idle) == 0 {
		c.state = State{Mode: chat.PlaybackNoMedia}
		return
	}
	clip := c.idle[c.rng.IntN(len(c.idle))]
	c.state = State{Mode: chat.PlaybackIdle, ClipURL: clip.VideoURL, Loop: true}
}
