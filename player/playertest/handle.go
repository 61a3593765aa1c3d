// Package playertest provides an in-memory playback handle for tests of packages built on player.
package playertest

import (
	"sync"
	"time"

	"cryogon/rizumu-udio/player"
)

type entry struct {
	id player.ListenerID
	fn player.Listener
}

// Handle is an in-memory player.Handle. Load reports readiness from its own goroutine.
type Handle struct {
	mu        sync.Mutex
	listeners map[player.Event][]entry
	paused    bool
	vol, rate float64
	loop      bool
	autoplay  bool
	pos       time.Duration
}

// NewHandle returns a paused handle at full volume and normal rate.
func NewHandle() *Handle {
	return &Handle{
		listeners: make(map[player.Event][]entry),
		paused:    true,
		vol:       1,
		rate:      1,
	}
}

// Fire invokes the listeners registered for event on the calling goroutine, in registration order.
func (h *Handle) Fire(event player.Event) {
	h.mu.Lock()
	entries := append([]entry(nil), h.listeners[event]...)
	ev := player.EventData{Event: event, Position: h.pos}
	h.mu.Unlock()
	for _, e := range entries {
		e.fn(ev)
	}
}

func (h *Handle) SetSource(string) {}

func (h *Handle) Load() {
	go func() {
		h.mu.Lock()
		if h.autoplay {
			h.paused = false
		}
		h.mu.Unlock()
		h.Fire(player.EventCanPlayThrough)
	}()
}

func (h *Handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = false
	return nil
}

func (h *Handle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = true
}

func (h *Handle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

func (h *Handle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vol = v
}

func (h *Handle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vol
}

func (h *Handle) SetPlaybackRate(r float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rate = r
}

func (h *Handle) PlaybackRate() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rate
}

func (h *Handle) SetLoop(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loop = enabled
}

func (h *Handle) Loop() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loop
}

func (h *Handle) SetAutoplay(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.autoplay = enabled
}

func (h *Handle) CurrentTime() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

func (h *Handle) SetCurrentTime(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pos = d
}

func (h *Handle) Duration() time.Duration { return 3 * time.Minute }

func (h *Handle) AddEventListener(event player.Event, id player.ListenerID, fn player.Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.listeners[event] {
		if e.id == id {
			return
		}
	}
	h.listeners[event] = append(h.listeners[event], entry{id: id, fn: fn})
}

func (h *Handle) RemoveEventListener(event player.Event, id player.ListenerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := h.listeners[event]
	for i, e := range entries {
		if e.id == id {
			h.listeners[event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

func (h *Handle) Close() error { return nil }

// Factory returns a player.HandleFactory producing fresh in-memory handles.
func Factory() player.HandleFactory {
	return func() player.Handle { return NewHandle() }
}

var _ player.Handle = (*Handle)(nil)
