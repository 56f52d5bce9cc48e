package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/renderworks/plantops/server/internal/compute"
	"github.com/renderworks/plantops/server/internal/refresh"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; CORS is applied at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients on every tick.
type Message struct {
	Event string         `json:"event"`
	Data  compute.Output `json:"data"`
}

// Source computes a factory's metrics. *dashboard.Service satisfies it.
type Source interface {
	Today(factory string, now time.Time) compute.Output
	Changes() <-chan struct{}
}

// Hub manages WebSocket client connections. Every client is one mounted view
// with its own refresh.Driver.
type Hub struct {
	src    Source
	driver refresh.Driver

	mu      sync.Mutex
	ctx     context.Context
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn    *websocket.Conn
	send    chan []byte
	factory string
}

// New creates a Hub. driver is the template for each client's refresh
// driver; its Changes hook is filled in from src.
func New(src Source, driver refresh.Driver) *Hub {
	driver.Changes = src.Changes
	return &Hub{
		src:     src,
		driver:  driver,
		ctx:     context.Background(),
		clients: make(map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then stops every client's driver and
// closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// The factory comes from the {factory} route variable or, without a router,
// the last path segment. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	factory := mux.Vars(r)["factory"]
	if factory == "" {
		factory = r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	}

	if h.stopped() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn:    conn,
		send:    make(chan []byte, sendBufSize),
		factory: factory,
	}
	hubCtx, ok := h.register(c)
	if !ok {
		// Shutdown began during the upgrade.
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		conn.Close()
		return
	}
	ctx, cancel := context.WithCancel(hubCtx)
	defer func() {
		cancel()
		h.unregister(c)
	}()

	go c.writePump()
	go h.driver.Run(ctx, func(now time.Time) bool {
		out := h.src.Today(c.factory, now)
		data, err := json.Marshal(Message{Event: "metrics", Data: out})
		if err != nil {
			slog.Warn("ws: marshal metrics", "factory", c.factory, "err", err)
			return out.Display.IsActive
		}
		h.deliver(c, data)
		return out.Display.IsActive
	})
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

// register adds c and returns the hub's lifetime context. It refuses once
// Run's context is done, since closeAll has already run.
func (h *Hub) register(c *client) (context.Context, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx.Err() != nil {
		return nil, false
	}
	h.clients[c] = struct{}{}
	return h.ctx, true
}

func (h *Hub) stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctx.Err() != nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

// drop removes c and closes its send channel. Callers must hold h.mu.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// deliver queues data for c. A client whose buffer is full is disconnected.
func (h *Hub) deliver(c *client, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("ws: client too slow, disconnecting", "factory", c.factory)
		h.drop(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.drop(c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
