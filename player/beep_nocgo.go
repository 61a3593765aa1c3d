//go:build !((linux && cgo) || windows || darwin)

package player

import (
	"time"

	"cryogon/rizumu-udio/transport"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires CGO for native sound libraries.
const AudioAvailable = false

// NewBeepFactory returns handles that fail every load in builds without audio output.
func NewBeepFactory(fetcher transport.Fetcher) HandleFactory {
	return func() Handle { return NewBeepHandle(fetcher) }
}

// BeepHandle is a silent handle: Load always emits EventError with ErrAudioUnavailable.
type BeepHandle struct {
	listeners *listenerSet
	vol, rate float64
	loop      bool
}

func NewBeepHandle(transport.Fetcher) *BeepHandle {
	return &BeepHandle{listeners: newListenerSet(), vol: 1, rate: 1}
}

func (h *BeepHandle) SetSource(string) {}

func (h *BeepHandle) Load() {
	go h.listeners.fire(EventData{Event: EventError, Err: ErrAudioUnavailable})
}

func (h *BeepHandle) Play() error { return ErrAudioUnavailable }
func (h *BeepHandle) Pause() {}
func (h *BeepHandle) Paused() bool { return true }
func (h *BeepHandle) SetVolume(v float64) { h.vol = v }
func (h *BeepHandle) Volume() float64 { return h.vol }
func (h *BeepHandle) SetPlaybackRate(r float64) { h.rate = r }
func (h *BeepHandle) PlaybackRate() float64 { return h.rate }
func (h *BeepHandle) SetLoop(enabled bool) { h.loop = enabled }
func (h *BeepHandle) Loop() bool { return h.loop }
func (h *BeepHandle) SetAutoplay(bool) {}
func (h *BeepHandle) CurrentTime() time.Duration { return 0 }
func (h *BeepHandle) SetCurrentTime(time.Duration) {}
func (h *BeepHandle) Duration() time.Duration { return 0 }
func (h *BeepHandle) Close() error { return nil }

func (h *BeepHandle) AddEventListener(event Event, id ListenerID, fn Listener) {
	h.listeners.add(event, id, fn)
}

func (h *BeepHandle) RemoveEventListener(event Event, id ListenerID) {
	h.listeners.remove(event, id)
}
