package player

import "time"

// Event names emitted by a Handle.
type Event string

const (
	EventLoadStart      Event = "loadstart"
	EventCanPlayThrough Event = "canplaythrough"
	EventError          Event = "error"
	EventPlay           Event = "play"
	EventPause          Event = "pause"
	EventEnded          Event = "ended"
	EventTimeUpdate     Event = "timeupdate"
	EventVolumeChange   Event = "volumechange"
	EventRateChange     Event = "ratechange"
)

// EventData is passed to listeners. Err is only set for EventError.
type EventData struct {
	Event    Event         `json:"type"`
	Position time.Duration `json:"position"`
	Err      error         `json:"-"`
}

type Listener func(EventData)

// ListenerID identifies a registered listener so it can be removed again.
type ListenerID uint64

// Handle is one playback element bound to at most one source.
//
// Listeners are invoked on a goroutine owned by the handle, never from inside
// a Handle method other than Load.
type Handle interface {
	SetSource(url string)
	// Load starts fetching the source and eventually emits EventCanPlayThrough or EventError.
	Load()
	Play() error
	Pause()
	Paused() bool

	SetVolume(v float64)
	Volume() float64
	SetPlaybackRate(r float64)
	PlaybackRate() float64
	SetLoop(enabled bool)
	Loop() bool
	SetAutoplay(enabled bool)

	CurrentTime() time.Duration
	SetCurrentTime(d time.Duration)
	Duration() time.Duration

	AddEventListener(event Event, id ListenerID, fn Listener)
	RemoveEventListener(event Event, id ListenerID)

	Close() error
}

// HandleFactory creates a fresh handle for every load.
type HandleFactory func() Handle
