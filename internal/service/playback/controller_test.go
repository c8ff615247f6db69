package playback

import (
	"math/rand/v2"
	"testing"

	"github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
	"github.com/Jose-cardos0/ONLYNEX/internal/model/chat"
)

var (
	idlePool = []catalog.IdleClip{
		{VideoURL: "idle-1.mp4"},
		{VideoURL: "idle-2.mp4"},
	}
	intro = catalog.ActionClip{ID: "intro", Label: "Oi!", VideoURL: "intro.mp4"}
)

func newController(idle []catalog.IdleClip) *Controller {
	return New(rand.New(rand.NewPCG(9, 9)), idle)
}

func isIdleClip(url string) bool {
	for _, clip := range idlePool {
		if clip.VideoURL == url {
			return true
		}
	}
	return false
}

func TestStartPicksIdleClip(t *testing.T) {
	c := newController(idlePool)
	state := c.Start()

	if state.Mode != chat.PlaybackIdle || !state.Loop {
		t.Fatalf("expected looping idle state, got %+v", state)
	}
	if !isIdleClip(state.ClipURL) {
		t.Fatalf("unexpected idle clip %q", state.ClipURL)
	}
}

func TestStartWithEmptyPoolIsNoMedia(t *testing.T) {
	c := newController(nil)
	if state := c.Start(); state.Mode != chat.PlaybackNoMedia || state.ClipURL != "" {
		t.Fatalf("expected no-media state, got %+v", state)
	}
}

func TestTriggerThenEndedReturnsToIdle(t *testing.T) {
	c := newController(idlePool)
	c.Start()

	state := c.Trigger(intro)
	if state.Mode != chat.PlaybackOneShot || state.ClipURL != "intro.mp4" || state.Loop {
		t.Fatalf("expected one-shot intro, got %+v", state)
	}
	if state.ActiveClipID != "intro" {
		t.Fatalf("expected intro highlighted, got %q", state.ActiveClipID)
	}

	state = c.PlaybackEnded()
	if state.Mode != chat.PlaybackIdle || !isIdleClip(state.ClipURL) {
		t.Fatalf("expected idle after one-shot, got %+v", state)
	}
	if state.ActiveClipID != "" {
		t.Fatalf("expected highlight cleared, got %q", state.ActiveClipID)
	}
}

func TestEndedWhileIdleIsNoop(t *testing.T) {
	c := newController(idlePool)
	before := c.Start()

	for i := 0; i < 5; i++ {
		if after := c.PlaybackEnded(); after != before {
			t.Fatalf("idle state changed on ended signal: %+v -> %+v", before, after)
		}
	}
}

func TestSecondEndedDoesNotReplayOneShot(t *testing.T) {
	c := newController(idlePool)
	c.Start()
	c.Trigger(intro)
	c.PlaybackEnded()

	if state := c.PlaybackEnded(); state.Mode != chat.PlaybackIdle {
		t.Fatalf("expected to stay idle, got %+v", state)
	}
}

func TestTriggerWithoutIdleMediaFallsBackToNoMedia(t *testing.T) {
	c := newController(nil)
	c.Start()
	c.Trigger(intro)

	state := c.PlaybackEnded()
	if state.Mode != chat.PlaybackNoMedia || state.ActiveClipID != "" {
		t.Fatalf("expected no-media with cleared highlight, got %+v", state)
	}
}
