package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"cryogon/rizumu-udio/models"
)

// fakeHandle is an in-memory Handle. Load reports readiness from its own goroutine unless hold is set.
type fakeHandle struct {
	listeners *listenerSet

	mu       sync.Mutex
	src      string
	loadErr  error
	hold     bool
	playErr  error
	paused   bool
	vol      float64
	rate     float64
	loop     bool
	autoplay bool
	pos      time.Duration
	dur      time.Duration
	closed   bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{listeners: newListenerSet(), paused: true, vol: 1, rate: 1, dur: 3 * time.Minute}
}

func (h *fakeHandle) SetSource(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.src = url
}

func (h *fakeHandle) Load() {
	h.mu.Lock()
	hold, err := h.hold, h.loadErr
	h.mu.Unlock()
	if hold {
		return
	}
	go h.finishLoad(err)
}

func (h *fakeHandle) finishLoad(err error) {
	if err != nil {
		h.emit(EventError, err)
		return
	}
	h.mu.Lock()
	if h.autoplay {
		h.paused = false
	}
	h.mu.Unlock()
	h.emit(EventCanPlayThrough, nil)
}

func (h *fakeHandle) emit(event Event, err error) {
	h.listeners.fire(EventData{Event: event, Position: h.CurrentTime(), Err: err})
}

func (h *fakeHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.playErr != nil {
		return h.playErr
	}
	h.paused = false
	return nil
}

func (h *fakeHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = true
}

func (h *fakeHandle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

func (h *fakeHandle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vol = v
}

func (h *fakeHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vol
}

func (h *fakeHandle) SetPlaybackRate(r float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rate = r
}

func (h *fakeHandle) PlaybackRate() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rate
}

func (h *fakeHandle) SetLoop(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loop = enabled
}

func (h *fakeHandle) Loop() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loop
}

func (h *fakeHandle) SetAutoplay(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.autoplay = enabled
}

func (h *fakeHandle) CurrentTime() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

func (h *fakeHandle) SetCurrentTime(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pos = d
}

func (h *fakeHandle) Duration() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dur
}

func (h *fakeHandle) AddEventListener(event Event, id ListenerID, fn Listener) {
	h.listeners.add(event, id, fn)
}

func (h *fakeHandle) RemoveEventListener(event Event, id ListenerID) {
	h.listeners.remove(event, id)
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *fakeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// fakeFactory records every handle it creates; configure runs on each new handle.
type fakeFactory struct {
	mu        sync.Mutex
	handles   []*fakeHandle
	configure func(i int, h *fakeHandle)
	created   chan *fakeHandle
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{created: make(chan *fakeHandle, 64)}
}

func (f *fakeFactory) New() Handle {
	h := newFakeHandle()
	f.mu.Lock()
	if f.configure != nil {
		f.configure(len(f.handles), h)
	}
	f.handles = append(f.handles, h)
	f.mu.Unlock()
	f.created <- h
	return h
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

func (f *fakeFactory) last() *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		return nil
	}
	return f.handles[len(f.handles)-1]
}

type fakeSearcher struct {
	mu      sync.Mutex
	tracks  []models.Track
	err     error
	queries []models.Query
}

func (s *fakeSearcher) Search(ctx context.Context, q models.Query) (*models.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	return &models.SearchResult{Tracks: append([]models.Track(nil), s.tracks...)}, nil
}

func (s *fakeSearcher) lastQuery() models.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[len(s.queries)-1]
}

var errRefused = errors.New("play() refused")

func track(id string) models.Track {
	return models.Track{ID: id, Artist: "Nova", Title: "Song " + id, URL: "https://cdn.test/" + id + ".mp3", Tags: []string{"jazz"}}
}
