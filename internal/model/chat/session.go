package chat

import "time"

// PlaybackMode of the persona video player.
type PlaybackMode string

const (
	PlaybackNoMedia PlaybackMode = "no_media"
	PlaybackIdle    PlaybackMode = "idle"
	PlaybackOneShot PlaybackMode = "one_shot"
)

// Playback describes what the video player should be showing.
type Playback struct {
	Mode         PlaybackMode `json:"mode"`
	ClipURL      string       `json:"clipUrl,omitempty"`
	ActiveClipID string       `json:"activeClipId,omitempty"`
	Loop         bool         `json:"loop"`
}

// Session is the externally visible snapshot of an open chat screen.
type Session struct {
	ID               string     `json:"id"`
	ModelID          string     `json:"modelId"`
	UserID           string     `json:"userId"`
	StartedAt        time.Time  `json:"startedAt"`
	Typing           bool       `json:"typing"`
	Playback         Playback   `json:"playback"`
	ClaimedCardIDs   []string   `json:"claimedCardIds"`
	LastCardEmission *time.Time `json:"lastCardEmission,omitempty"`
	Messages         []Message  `json:"messages"`
}
