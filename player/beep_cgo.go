//go:build (linux && cgo) || windows || darwin

package player

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"cryogon/rizumu-udio/transport"
	"cryogon/rizumu-udio/utils"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

const (
	outputRate     = beep.SampleRate(44100)
	timeUpdateRate = 250 * time.Millisecond
)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(outputRate, outputRate.N(time.Second/10))
	})
	return speakerErr
}

// NewBeepFactory returns handles that decode mp3 sources fetched through fetcher.
func NewBeepFactory(fetcher transport.Fetcher) HandleFactory {
	return func() Handle { return NewBeepHandle(fetcher) }
}

// BeepHandle plays one mp3 source on the shared speaker.
type BeepHandle struct {
	fetcher transport.Fetcher

	mu        sync.Mutex
	src       string
	streamer  beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	volume    *effects.Volume
	resampler *beep.Resampler
	started   bool

	vol      float64
	rate     float64
	loop     atomic.Bool
	autoplay bool

	listeners *listenerSet
	events    chan EventData
	cancel    context.CancelFunc
	closed    chan struct{}
	closeOnce sync.Once
}

func NewBeepHandle(fetcher transport.Fetcher) *BeepHandle {
	if fetcher == nil {
		fetcher = &transport.DirectFetcher{Client: utils.HTTPClient}
	}
	h := &BeepHandle{
		fetcher:   fetcher,
		vol:       1,
		rate:      1,
		listeners: newListenerSet(),
		events:    make(chan EventData, 32),
		closed:    make(chan struct{}),
	}
	go h.dispatch()
	return h
}

func (h *BeepHandle) dispatch() {
	for {
		select {
		case ev := <-h.events:
			h.listeners.fire(ev)
		case <-h.closed:
			return
		}
	}
}

func (h *BeepHandle) emit(event Event, err error) {
	ev := EventData{Event: event, Position: h.CurrentTime(), Err: err}
	select {
	case h.events <- ev:
	case <-h.closed:
	}
}

// emitAsync does not block, so it is safe under the speaker lock.
func (h *BeepHandle) emitAsync(event Event) {
	go func() {
		select {
		case h.events <- EventData{Event: event}:
		case <-h.closed:
		}
	}()
}

func (h *BeepHandle) SetSource(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.src = url
}

// Load fetches and decodes the source on its own goroutine.
func (h *BeepHandle) Load() {
	h.mu.Lock()
	src := h.src
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.mu.Unlock()

	go func() {
		h.emit(EventLoadStart, nil)
		if err := h.load(ctx, src); err != nil {
			h.emit(EventError, err)
			return
		}
		h.emit(EventCanPlayThrough, nil)

		h.mu.Lock()
		autoplay := h.autoplay
		h.mu.Unlock()
		if autoplay {
			if err := h.Play(); err != nil {
				h.emit(EventError, err)
			}
		}
	}()
}

func (h *BeepHandle) load(ctx context.Context, src string) error {
	if src == "" {
		return fmt.Errorf("%w: empty source", ErrPlayback)
	}
	data, err := h.read(ctx, src)
	if err != nil {
		return err
	}

	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decoding %s: %w", src, err)
	}
	if err := initSpeaker(); err != nil {
		streamer.Close()
		return fmt.Errorf("initializing speaker: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.closed:
		streamer.Close()
		return fmt.Errorf("%w: handle closed", ErrPlayback)
	default:
	}

	h.streamer = streamer
	h.format = format
	track := &endStreamer{s: streamer, loop: &h.loop, onEnd: func() {
		h.emitAsync(EventEnded)
	}}
	h.volume = &effects.Volume{Streamer: track, Base: 2}
	applyVolume(h.volume, h.vol)
	h.resampler = beep.ResampleRatio(4, h.ratio(), h.volume)
	h.ctrl = &beep.Ctrl{Streamer: h.resampler, Paused: true}
	track.ctrl = h.ctrl

	go h.tickTime()
	return nil
}

func (h *BeepHandle) read(ctx context.Context, src string) ([]byte, error) {
	if !utils.IsDirectURL(src) {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", src, err)
		}
		return data, nil
	}
	resp, err := h.fetcher.Do(ctx, &transport.Request{Method: http.MethodGet, URL: src})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src, err)
	}
	if !resp.OK() {
		return nil, &transport.StatusError{StatusCode: resp.StatusCode, Body: http.StatusText(resp.StatusCode)}
	}
	return resp.Body, nil
}

func (h *BeepHandle) ratio() float64 {
	return h.rate * float64(h.format.SampleRate) / float64(outputRate)
}

func applyVolume(v *effects.Volume, linear float64) {
	if linear <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(linear)
}

func (h *BeepHandle) tickTime() {
	ticker := time.NewTicker(timeUpdateRate)
	defer ticker.Stop()
	for {
		select {
		case <-h.closed:
			return
		case <-ticker.C:
			if !h.Paused() {
				h.emit(EventTimeUpdate, nil)
			}
		}
	}
}

func (h *BeepHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctrl == nil {
		return ErrNotLoaded
	}
	speaker.Lock()
	err := rewindIfEnded(h.streamer)
	h.ctrl.Paused = false
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("%w: rewinding: %v", ErrPlayback, err)
	}
	if !h.started {
		speaker.Play(h.ctrl)
		h.started = true
	}
	h.emitAsync(EventPlay)
	return nil
}

func (h *BeepHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctrl == nil {
		return
	}
	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
	h.emitAsync(EventPause)
}

func (h *BeepHandle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctrl == nil {
		return true
	}
	speaker.Lock()
	defer speaker.Unlock()
	return h.ctrl.Paused
}

func (h *BeepHandle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vol = v
	if h.volume != nil {
		speaker.Lock()
		applyVolume(h.volume, v)
		speaker.Unlock()
		h.emitAsync(EventVolumeChange)
	}
}

func (h *BeepHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vol
}

func (h *BeepHandle) SetPlaybackRate(r float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rate = r
	if h.resampler != nil {
		speaker.Lock()
		h.resampler.SetRatio(h.ratio())
		speaker.Unlock()
		h.emitAsync(EventRateChange)
	}
}

func (h *BeepHandle) PlaybackRate() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rate
}

func (h *BeepHandle) SetLoop(enabled bool) { h.loop.Store(enabled) }

func (h *BeepHandle) Loop() bool { return h.loop.Load() }

func (h *BeepHandle) SetAutoplay(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.autoplay = enabled
}

func (h *BeepHandle) CurrentTime() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := h.streamer.Position()
	speaker.Unlock()
	return h.format.SampleRate.D(pos)
}

func (h *BeepHandle) SetCurrentTime(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streamer == nil {
		return
	}
	n := min(h.format.SampleRate.N(d), h.streamer.Len())
	speaker.Lock()
	err := h.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		h.emitAsync(EventError)
	}
}

func (h *BeepHandle) Duration() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streamer == nil {
		return 0
	}
	return h.format.SampleRate.D(h.streamer.Len())
}

func (h *BeepHandle) AddEventListener(event Event, id ListenerID, fn Listener) {
	h.listeners.add(event, id, fn)
}

func (h *BeepHandle) RemoveEventListener(event Event, id ListenerID) {
	h.listeners.remove(event, id)
}

// Close detaches the stream from the speaker and releases the decoder.
func (h *BeepHandle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.cancel != nil {
			h.cancel()
		}
		close(h.closed)
		if h.ctrl != nil {
			speaker.Lock()
			h.ctrl.Streamer = nil
			speaker.Unlock()
		}
		if h.streamer != nil {
			err = h.streamer.Close()
		}
		h.ctrl, h.streamer, h.volume, h.resampler = nil, nil, nil, nil
	})
	return err
}

// rewindIfEnded seeks s back to the start once it has been played to the end.
func rewindIfEnded(s beep.StreamSeeker) error {
	if s.Len() > 0 && s.Position() >= s.Len() {
		return s.Seek(0)
	}
	return nil
}

// endStreamer rewinds at the end when loop is set. Otherwise it pauses ctrl, reports the end once
// and pads with silence so the mixer keeps the stream for a later Play or seek.
type endStreamer struct {
	s     beep.StreamSeeker
	loop  *atomic.Bool
	ctrl  *beep.Ctrl
	onEnd func()
	ended bool
}

func (e *endStreamer) Stream(samples [][2]float64) (int, bool) {
	n := 0
	for n < len(samples) {
		m, ok := e.s.Stream(samples[n:])
		n += m
		if ok && m > 0 {
			e.ended = false
			continue
		}
		if !e.loop.Load() {
			if !e.ended {
				e.ended = true
				if e.ctrl != nil {
					// called from ctrl.Stream under the speaker lock
					e.ctrl.Paused = true
				}
				e.onEnd()
			}
			clear(samples[n:])
			return len(samples), true
		}
		if err := e.s.Seek(0); err != nil {
			return n, n > 0
		}
	}
	return n, true
}

func (e *endStreamer) Err() error { return e.s.Err() }
