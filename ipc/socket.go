// Package ipc serves the player over a unix socket, one JSON object per line.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"cryogon/rizumu-udio/downloader"
	"cryogon/rizumu-udio/models"
	"cryogon/rizumu-udio/player"
	"cryogon/rizumu-udio/store"

	"github.com/google/uuid"
)

const (
	DefaultSocketPath = "/tmp/rizumu.sock"
	writeTimeout      = 5 * time.Second
	maxLine           = 1 << 20
)

var ErrUnknownCommand = errors.New("unknown command")

type Options struct {
	SocketPath string
	Player     *player.Controller
	Search     player.Searcher
	Store      *store.Store
	Downloader *downloader.Service
	// StateInterval is how often player_state is broadcast while playing. Zero means one second.
	StateInterval time.Duration
}

type client struct {
	id   string
	conn net.Conn
	mu   sync.Mutex
}

func (c *client) send(msgType string, payload any) error {
	data, err := NewMessage(payload, msgType)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err = c.conn.Write(data)
	return err
}

type IPCHandler struct {
	opts Options

	mu      sync.Mutex
	clients map[string]*client
}

func NewIPCHandler(opts Options) *IPCHandler {
	if opts.SocketPath == "" {
		opts.SocketPath = DefaultSocketPath
	}
	if opts.StateInterval <= 0 {
		opts.StateInterval = time.Second
	}
	return &IPCHandler{
		opts:    opts,
		clients: make(map[string]*client),
	}
}

// Serve listens on the socket until ctx is cancelled. A stale socket file is replaced.
func (h *IPCHandler) Serve(ctx context.Context) error {
	socketPath := h.opts.SocketPath
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	go h.broadcastPlayerState(ctx)

	log.Printf("[IPC] Listening on %s", socketPath)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				h.closeClients()
				return nil
			}
			log.Printf("[IPC] Accept failed: %v", err)
			continue
		}
		go h.handleClient(ctx, conn)
	}
}

func (h *IPCHandler) handleClient(ctx context.Context, conn net.Conn) {
	c := &client{id: uuid.NewString(), conn: conn}
	h.addClient(c)
	log.Printf("[IPC] Client %s joined", c.id)

	defer func() {
		h.removeClient(c)
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("[IPC] Failed to close client %s: %v", c.id, err)
		}
		log.Printf("[IPC] Client %s left", c.id)
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var cmd Command
		if err := json.Unmarshal(line, &cmd); err != nil {
			log.Printf("[IPC] Client %s sent bad command: %v", c.id, err)
			c.send(MsgError, ErrorReply{Error: "invalid command: " + err.Error()})
			continue
		}

		msgType, payload := h.handleCommand(ctx, cmd)
		if err := c.send(msgType, payload); err != nil {
			log.Printf("[IPC] Failed to reply to %s: %v", c.id, err)
			return
		}
	}
}

func (h *IPCHandler) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *IPCHandler) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
}

func (h *IPCHandler) snapshotClients() []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *IPCHandler) closeClients() {
	for _, c := range h.snapshotClients() {
		c.conn.Close()
	}
}

func errorReply(cmd CommandType, err error) (string, any) {
	log.Printf("[IPC] %s failed: %v", cmd, err)
	return MsgError, ErrorReply{Command: cmd, Error: err.Error()}
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// handleCommand runs cmd and returns the reply for the issuing client.
func (h *IPCHandler) handleCommand(ctx context.Context, cmd Command) (string, any) {
	p := h.opts.Player

	switch cmd.Type {
	case CmdSearch:
		if h.opts.Search == nil {
			return errorReply(cmd.Type, player.ErrNoSearcher)
		}
		res, err := h.opts.Search.Search(ctx, models.Query{Term: cmd.Term, Tags: cmd.Tags, Sort: cmd.Sort})
		if err != nil {
			return errorReply(cmd.Type, err)
		}
		if h.opts.Store != nil && !res.Placeholder && !res.Cached {
			if _, err := h.opts.Store.SaveTracks(ctx, res.Tracks); err != nil {
				log.Printf("[IPC] Saving search results: %v", err)
			}
		}
		return MsgTracks, res

	case CmdPlay:
		in, err := h.resolveInput(ctx, cmd)
		if err != nil {
			return errorReply(cmd.Type, err)
		}
		track, err := p.Play(ctx, in, player.LoadOptions{Autoplay: true})
		if err != nil {
			return errorReply(cmd.Type, err)
		}
		h.recordPlay(ctx, track)
		return MsgTrack, track

	case CmdRandom:
		track, err := p.PlayRandomByGenre(ctx, cmd.Genre, player.LoadOptions{Autoplay: true})
		if err != nil {
			return errorReply(cmd.Type, err)
		}
		h.recordPlay(ctx, track)
		return MsgTrack, track

	case CmdPause:
		p.Pause()
	case CmdResume:
		p.Resume()
	case CmdStop:
		p.Stop()
	case CmdCancelLoop:
		p.CancelLoopSection()
	case CmdState:

	case CmdVolume:
		if cmd.Volume < 0 || cmd.Volume > 1 {
			return errorReply(cmd.Type, fmt.Errorf("volume %v outside [0, 1]", cmd.Volume))
		}
		p.SetVolume(cmd.Volume)
	case CmdSeek:
		p.Seek(seconds(cmd.Seconds))
	case CmdLoopSection:
		sec := player.Section{Start: seconds(cmd.Start), End: seconds(cmd.End), Repetitions: cmd.Repetitions}
		if err := p.LoopSection(sec); err != nil {
			return errorReply(cmd.Type, err)
		}

	case CmdDownload:
		if h.opts.Downloader == nil {
			return errorReply(cmd.Type, downloader.ErrClosed)
		}
		track, err := h.resolveTrack(ctx, cmd)
		if err != nil {
			return errorReply(cmd.Type, err)
		}
		task, err := h.opts.Downloader.CreateDownload(track)
		if err != nil {
			return errorReply(cmd.Type, err)
		}
		return MsgTask, task

	default:
		return errorReply(cmd.Type, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type))
	}

	return MsgPlayerState, h.playerState()
}

func (h *IPCHandler) resolveInput(ctx context.Context, cmd Command) (player.Input, error) {
	switch {
	case cmd.Track != nil:
		return player.Input{Track: cmd.Track}, nil
	case cmd.TrackID != "" && h.opts.Store != nil:
		t, err := h.opts.Store.GetTrack(ctx, cmd.TrackID)
		if err != nil {
			return player.Input{}, err
		}
		return player.Input{Track: t}, nil
	default:
		return player.ParseInput(cmd.Input), nil
	}
}

// resolveTrack picks the download target: the command's track, a stored track, or what is playing.
func (h *IPCHandler) resolveTrack(ctx context.Context, cmd Command) (models.Track, error) {
	switch {
	case cmd.Track != nil:
		return *cmd.Track, nil
	case cmd.TrackID != "" && h.opts.Store != nil:
		t, err := h.opts.Store.GetTrack(ctx, cmd.TrackID)
		if err != nil {
			return models.Track{}, err
		}
		return *t, nil
	}
	if t, ok := h.opts.Player.CurrentTrack(); ok {
		return t, nil
	}
	return models.Track{}, player.ErrNotLoaded
}

func (h *IPCHandler) recordPlay(ctx context.Context, t models.Track) {
	if h.opts.Store == nil || t.Placeholder {
		return
	}
	if err := h.opts.Store.RecordPlayback(ctx, t); err != nil {
		log.Printf("[IPC] Recording play of %s: %v", t.ID, err)
	}
}

func (h *IPCHandler) playerState() PlayerState {
	s := h.opts.Player.State()
	ps := PlayerState{
		Playing:  s.Playing,
		Progress: s.Position,
		Duration: s.Duration,
		Volume:   s.Volume,
		Looping:  s.Loop || s.Section != nil,
	}
	if s.Track != nil {
		ps.TrackID = s.Track.ID
		ps.Title = s.Track.Title
		ps.Artist = s.Track.Artist
	}
	if s.Section != nil {
		ps.SectionFrom = s.Section.Start.Seconds()
		ps.SectionTo = s.Section.End.Seconds()
	}
	return ps
}

func (h *IPCHandler) broadcastPlayerState(ctx context.Context) {
	ticker := time.NewTicker(h.opts.StateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		state := h.playerState()
		if !state.Playing {
			continue
		}
		for _, c := range h.snapshotClients() {
			if err := c.send(MsgPlayerState, state); err != nil {
				log.Printf("[IPC] Failed to broadcast player's state to %s: %v", c.id, err)
			}
		}
	}
}
