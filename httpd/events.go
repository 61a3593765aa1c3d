package httpd

import (
	"log"
	"net/http"
	"sync"
	"time"

	"cryogon/rizumu-udio/models"
	"cryogon/rizumu-udio/player"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// forwardedEvents are relayed to websocket clients. timeupdate is included so clients can draw progress.
var forwardedEvents = []player.Event{
	player.EventLoadStart,
	player.EventCanPlayThrough,
	player.EventError,
	player.EventPlay,
	player.EventPause,
	player.EventEnded,
	player.EventTimeUpdate,
	player.EventVolumeChange,
	player.EventRateChange,
}

// PlayerUpdate is one message on the /ws feed.
type PlayerUpdate struct {
	Type     player.Event  `json:"type"`
	Position float64       `json:"position"`
	Track    *models.Track `json:"track,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// wsClient owns one connection. Only its writer goroutine writes to Conn.
type wsClient struct {
	Conn      *websocket.Conn
	send      chan PlayerUpdate
	CloseOnce sync.Once
}

func (c *wsClient) close() {
	c.CloseOnce.Do(func() {
		close(c.send)
	})
}

type eventHub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}

	events    chan player.EventData
	done      chan struct{}
	closeOnce sync.Once

	ctrl        *player.Controller
	listenerIDs map[player.Event]player.ListenerID
}

func newEventHub(ctrl *player.Controller) *eventHub {
	h := &eventHub{
		clients:     make(map[*wsClient]struct{}),
		events:      make(chan player.EventData, 64),
		done:        make(chan struct{}),
		ctrl:        ctrl,
		listenerIDs: make(map[player.Event]player.ListenerID),
	}
	for _, ev := range forwardedEvents {
		h.listenerIDs[ev] = ctrl.AddEventListener(ev, h.enqueue)
	}
	go h.run()
	return h
}

// enqueue runs on the handle's goroutine, so it must not block or touch the controller.
func (h *eventHub) enqueue(ev player.EventData) {
	select {
	case h.events <- ev:
	case <-h.done:
	default:
		// a full queue only drops progress ticks in practice
	}
}

func (h *eventHub) run() {
	for {
		select {
		case ev := <-h.events:
			h.broadcast(h.update(ev))
		case <-h.done:
			return
		}
	}
}

func (h *eventHub) update(ev player.EventData) PlayerUpdate {
	u := PlayerUpdate{Type: ev.Event, Position: ev.Position.Seconds()}
	if t, ok := h.ctrl.CurrentTrack(); ok {
		u.Track = &t
	}
	if ev.Err != nil {
		u.Error = ev.Err.Error()
	}
	return u
}

func (h *eventHub) broadcast(u PlayerUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- u:
		default:
			log.Printf("[http] Dropping slow websocket client %s", c.Conn.RemoteAddr())
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *eventHub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *eventHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

func (h *eventHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close detaches from the controller and disconnects every client.
func (h *eventHub) Close() {
	h.closeOnce.Do(func() {
		for ev, id := range h.listenerIDs {
			h.ctrl.RemoveEventListener(ev, id)
		}
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for c := range h.clients {
			delete(h.clients, c)
			c.close()
		}
	})
}

func (s *Server) handleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[http] Websocket upgrade failed: %v", err)
			return
		}

		c := &wsClient{Conn: conn, send: make(chan PlayerUpdate, 16)}
		s.hub.add(c)
		log.Printf("[http] Websocket client connected: %s", conn.RemoteAddr())

		go c.writeLoop()
		c.readLoop()
		s.hub.remove(c)
	}
}

func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case u, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(u); err != nil {
				log.Printf("[http] Websocket write failed: %v", err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop only services control frames; the feed is one-way.
func (c *wsClient) readLoop() {
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				log.Printf("[http] Websocket read error: %v", err)
			}
			return
		}
	}
}
