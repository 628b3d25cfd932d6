package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rangerlab/wildwatch"
)

const (
	// historySize is how many recent notices are replayed to new clients
	historySize = 20
	// clientBuffer is how many notices may queue for a slow client before
	// further ones are dropped
	clientBuffer = 32
	writeTimeout = 5 * time.Second
)

// Hub fans notices out to the control panels connected over websocket and
// keeps the most recent ones for /api/state
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	history  []wildwatch.Notice
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

type client struct {
	conn *websocket.Conn
	send chan wildwatch.Notice
}

// NewHub returns a Hub with no connected clients
func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Report queues the notice for every connected client.  It never blocks,
// a client that is not keeping up misses the notice.
func (h *Hub) Report(n wildwatch.Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = append(h.history, n)

	if len(h.history) > historySize {
		h.history = h.history[len(h.history)-historySize:]
	}

	for c := range h.clients {
		select {
		case c.send <- n:
		default:
			h.logger.Debugw("dropping notice for slow client", "remote", c.conn.RemoteAddr())
		}
	}
}

// Recent returns the notices kept for replay, oldest first
func (h *Hub) Recent() []wildwatch.Notice {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]wildwatch.Notice(nil), h.history...)
}

// LastWarning returns the most recent warning or error message
func (h *Hub) LastWarning() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.history) - 1; i >= 0; i-- {
		if h.history[i].Level != wildwatch.LevelInfo {
			return h.history[i].Message
		}
	}

	return ""
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and streams notices to it
// until the client goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	conn, err := h.upgrader.Upgrade(w, r, nil)

	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan wildwatch.Notice, clientBuffer)}

	h.mu.Lock()
	for _, n := range h.history {
		select {
		case c.send <- n:
		default:
		}
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debugw("notice client connected", "remote", conn.RemoteAddr())

	go h.write(c)

	// the panel never sends anything, reading only detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()

	h.logger.Debugw("notice client disconnected", "remote", conn.RemoteAddr())
}

func (h *Hub) write(c *client) {

	defer c.conn.Close()

	for n := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

		if err := c.conn.WriteJSON(n); err != nil {
			h.logger.Debugw("error writing notice", "error", err)
			// unblock the reader so the client is removed
			c.conn.Close()
			return
		}
	}

	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}
