// Package player wraps a single playback handle at a time and adds section looping, listener
// re-attachment across loads and search-driven playback on top of it.
package player

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"cryogon/rizumu-udio/models"
)

const (
	DefaultLoopInterval = 50 * time.Millisecond
	MinPlaybackRate     = 0.5
	MaxPlaybackRate     = 4.0
)

// Searcher is the search capability the controller uses for selectors and genres.
type Searcher interface {
	Search(ctx context.Context, q models.Query) (*models.SearchResult, error)
}

// LoadOptions are applied to a fresh handle before its source is set.
type LoadOptions struct {
	// Volume in [0, 1]. Nil means 1.0.
	Volume       *float64
	Loop         bool
	Autoplay     bool
	PlaybackRate float64
}

// Section is a sub-range of a track that is replayed. Zero Repetitions loops forever.
// Its JSON form carries Start and End in seconds, like State.Position.
type Section struct {
	Start       time.Duration
	End         time.Duration
	Repetitions int
}

type sectionJSON struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Repetitions int     `json:"repetitions,omitempty"`
}

func (s Section) MarshalJSON() ([]byte, error) {
	return json.Marshal(sectionJSON{Start: s.Start.Seconds(), End: s.End.Seconds(), Repetitions: s.Repetitions})
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var raw sectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Section{
		Start:       time.Duration(raw.Start * float64(time.Second)),
		End:         time.Duration(raw.End * float64(time.Second)),
		Repetitions: raw.Repetitions,
	}
	return nil
}

func (s Section) Validate() error {
	if s.Start < 0 || s.End <= s.Start {
		return fmt.Errorf("%w: start %s, end %s", ErrInvalidSection, s.Start, s.End)
	}
	if s.Repetitions < 0 {
		return fmt.Errorf("%w: negative repetitions", ErrInvalidSection)
	}
	return nil
}

type listenerEntry struct {
	id ListenerID
	fn Listener
}

type Option func(*Controller)

func WithLoopInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithRand replaces the random source used by PlayRandomByGenre.
func WithRand(intN func(n int) int) Option {
	return func(c *Controller) { c.intN = intN }
}

type Controller struct {
	newHandle HandleFactory
	searcher  Searcher
	interval  time.Duration
	intN      func(n int) int

	mu        sync.Mutex
	handle    Handle
	track     *models.Track
	listeners map[Event][]listenerEntry
	nextID    ListenerID

	section   *Section
	crossings int
	loopStop  chan struct{}

	loadSeq    uint64
	cancelLoad context.CancelFunc
}

func NewController(factory HandleFactory, searcher Searcher, opts ...Option) *Controller {
	c := &Controller{
		newHandle: factory,
		searcher:  searcher,
		interval:  DefaultLoopInterval,
		intN:      rand.IntN,
		listeners: make(map[Event][]listenerEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the current handle with a new one playing track and waits until it can play through.
// A newer Load cancels this one, which then returns ErrLoadSuperseded.
func (c *Controller) Load(ctx context.Context, track models.Track, opts LoadOptions) error {
	c.mu.Lock()
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	c.loadSeq++
	seq := c.loadSeq
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancelLoad = cancel
	c.stopLocked()

	h := c.newHandle()
	volume := 1.0
	if opts.Volume != nil && *opts.Volume >= 0 && *opts.Volume <= 1 {
		volume = *opts.Volume
	}
	h.SetVolume(volume)
	h.SetLoop(opts.Loop)
	h.SetAutoplay(opts.Autoplay)
	if opts.PlaybackRate > 0 {
		h.SetPlaybackRate(clampRate(opts.PlaybackRate))
	}
	for event, entries := range c.listeners {
		for _, e := range entries {
			h.AddEventListener(event, e.id, e.fn)
		}
	}

	ready := make(chan error, 1)
	readyID := c.reserveIDLocked()
	errorID := c.reserveIDLocked()
	h.AddEventListener(EventCanPlayThrough, readyID, func(EventData) {
		select {
		case ready <- nil:
		default:
		}
	})
	h.AddEventListener(EventError, errorID, func(ev EventData) {
		err := ev.Err
		if err == nil {
			err = fmt.Errorf("error event at %s", ev.Position)
		}
		select {
		case ready <- err:
		default:
		}
	})
	c.handle = h
	c.mu.Unlock()

	log.Printf("[Player] Loading %s - %s", track.Artist, track.Title)
	h.SetSource(track.URL)
	h.Load()

	var loadErr error
	select {
	case loadErr = <-ready:
	case <-loadCtx.Done():
		loadErr = loadCtx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	h.RemoveEventListener(EventCanPlayThrough, readyID)
	h.RemoveEventListener(EventError, errorID)

	if c.loadSeq != seq {
		return ErrLoadSuperseded
	}
	c.cancelLoad = nil
	cancel()

	if loadErr != nil {
		c.stopLocked()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: loading %s: %v", ErrPlayback, track.URL, loadErr)
	}

	t := track
	c.track = &t
	log.Printf("[Player] Ready: %s - %s", track.Artist, track.Title)
	return nil
}

func (c *Controller) reserveIDLocked() ListenerID {
	c.nextID++
	return c.nextID
}

// Play loads whatever in points at with autoplay forced on.
func (c *Controller) Play(ctx context.Context, in Input, opts LoadOptions) (models.Track, error) {
	opts.Autoplay = true

	var track models.Track
	switch {
	case in.Track != nil:
		track = *in.Track
	case in.URL != "":
		track = trackFromURL(in.URL)
	case in.Selector != "":
		if c.searcher == nil {
			return models.Track{}, ErrNoSearcher
		}
		res, err := c.searcher.Search(ctx, selectorQuery(in.Selector))
		if err != nil {
			return models.Track{}, err
		}
		if len(res.Tracks) == 0 {
			return models.Track{}, fmt.Errorf("%w: %q", ErrNoMatch, in.Selector)
		}
		track = res.Tracks[0]
	default:
		return models.Track{}, fmt.Errorf("%w: empty input", ErrNoMatch)
	}

	if err := c.Load(ctx, track, opts); err != nil {
		return models.Track{}, err
	}
	return track, nil
}

func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		c.handle.Pause()
	}
}

// Resume is best effort: a refused start is logged, not returned.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return
	}
	if err := c.handle.Play(); err != nil {
		log.Printf("[Player] Resume refused: %v", err)
	}
}

// Stop cancels the section loop, releases the handle and forgets the current track.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
		c.loadSeq++
	}
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	c.cancelSectionLocked()
	if c.handle != nil {
		h := c.handle
		h.Pause()
		h.SetSource("")
		for event, entries := range c.listeners {
			for _, e := range entries {
				h.RemoveEventListener(event, e.id)
			}
		}
		if err := h.Close(); err != nil {
			log.Printf("[Player] Closing handle: %v", err)
		}
	}
	c.handle = nil
	c.track = nil
}

// SetVolume applies v when it lies in [0, 1] and ignores it otherwise.
func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil || v < 0 || v > 1 {
		return
	}
	c.handle.SetVolume(v)
}

func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return 0
	}
	return c.handle.Volume()
}

// SetPlaybackRate clamps r into [MinPlaybackRate, MaxPlaybackRate].
func (c *Controller) SetPlaybackRate(r float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return
	}
	c.handle.SetPlaybackRate(clampRate(r))
}

func (c *Controller) PlaybackRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return 0
	}
	return c.handle.PlaybackRate()
}

func clampRate(r float64) float64 {
	return min(max(r, MinPlaybackRate), MaxPlaybackRate)
}

// Seek moves to d clamped to [0, duration]. An unknown duration only clamps below.
func (c *Controller) Seek(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	if total := c.handle.Duration(); total > 0 && d > total {
		d = total
	}
	c.handle.SetCurrentTime(d)
}

func (c *Controller) CurrentTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return 0
	}
	return c.handle.CurrentTime()
}

func (c *Controller) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return 0
	}
	return c.handle.Duration()
}

// SetLoop switches to whole-track looping, dropping any section loop.
func (c *Controller) SetLoop(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelSectionLocked()
	if c.handle != nil {
		c.handle.SetLoop(enabled)
	}
}

// AddEventListener registers fn for event on the current and every future handle.
func (c *Controller) AddEventListener(event Event, fn Listener) ListenerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.reserveIDLocked()
	c.listeners[event] = append(c.listeners[event], listenerEntry{id: id, fn: fn})
	if c.handle != nil {
		c.handle.AddEventListener(event, id, fn)
	}
	return id
}

// RemoveEventListener reports whether a listener was removed.
func (c *Controller) RemoveEventListener(event Event, id ListenerID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.listeners[event]
	for i, e := range entries {
		if e.id != id {
			continue
		}
		c.listeners[event] = append(entries[:i:i], entries[i+1:]...)
		if len(c.listeners[event]) == 0 {
			delete(c.listeners, event)
		}
		if c.handle != nil {
			c.handle.RemoveEventListener(event, id)
		}
		return true
	}
	return false
}

// CurrentTrack returns the last successfully loaded track.
func (c *Controller) CurrentTrack() (models.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.track == nil {
		return models.Track{}, false
	}
	return *c.track, true
}

// State is a snapshot of the controller for status endpoints.
type State struct {
	Track     *models.Track `json:"track"`
	Loaded    bool          `json:"loaded"`
	Playing   bool          `json:"playing"`
	Position  float64       `json:"position"`
	Duration  float64       `json:"duration"`
	Volume    float64       `json:"volume"`
	Rate      float64       `json:"rate"`
	Loop      bool          `json:"loop"`
	Section   *Section      `json:"section,omitempty"`
	Crossings int           `json:"crossings"`
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s State
	if c.track != nil {
		t := *c.track
		s.Track = &t
	}
	if c.section != nil {
		sec := *c.section
		s.Section = &sec
		s.Crossings = c.crossings
	}
	if c.handle == nil {
		return s
	}
	s.Loaded = c.track != nil
	s.Playing = !c.handle.Paused()
	s.Position = c.handle.CurrentTime().Seconds()
	s.Duration = c.handle.Duration().Seconds()
	s.Volume = c.handle.Volume()
	s.Rate = c.handle.PlaybackRate()
	s.Loop = c.handle.Loop()
	return s
}
