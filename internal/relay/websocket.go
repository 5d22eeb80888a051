package relay

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/service"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
)

// WebSocket tuning.
const (
	clientQueue  = 16
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = pongTimeout * 9 / 10
)

// HubOptions configures a WebSocketHub.
type HubOptions struct {
	// Stream identifies this run in every envelope.
	Stream string
	// MaxRate caps update frames per second. Zero means unlimited.
	MaxRate float64
	// CheckOrigin defaults to accepting every origin.
	CheckOrigin func(r *http.Request) bool
	// Logger defaults to logger.Default().
	Logger logger.Logger
}

// WebSocketHub broadcasts frame events to WebSocket clients. It is an
// http.Handler for the upgrade endpoint and a service.Sink. A client that
// cannot keep up loses frames instead of slowing the others.
type WebSocketHub struct {
	upgrader websocket.Upgrader
	enc      *encoder
	gate     gate
	logger   logger.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
	last    []byte
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *wsClient) stop() {
	c.once.Do(func() { close(c.done) })
}

var _ service.Sink = (*WebSocketHub)(nil)

// NewWebSocketHub creates an empty hub.
func NewWebSocketHub(opts HubOptions) *WebSocketHub {
	if opts.CheckOrigin == nil {
		opts.CheckOrigin = func(*http.Request) bool { return true }
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	return &WebSocketHub{
		upgrader: websocket.Upgrader{CheckOrigin: opts.CheckOrigin},
		enc:      newEncoder(opts.Stream),
		gate:     newGate(opts.MaxRate),
		logger:   opts.Logger.With("component", "websocket"),
		clients:  make(map[*wsClient]struct{}),
	}
}

// Name implements service.Sink.
func (h *WebSocketHub) Name() string {
	return "websocket"
}

// Clients returns the number of connected clients.
func (h *WebSocketHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the client. A new client
// first receives the last broadcast frame.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan []byte, clientQueue),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	h.logger.Info("websocket client connected", "remote", conn.RemoteAddr().String())

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and detects disconnects.
func (h *WebSocketHub) readPump(c *wsClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return
		}
	}
}

func (h *WebSocketHub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	c.stop()
	if ok {
		h.logger.Info("websocket client disconnected", "remote", c.conn.RemoteAddr().String())
	}
}

// Send broadcasts ev to every client. It reports ErrFrameSkipped when the
// rate limit drops the frame or a client queue is full.
func (h *WebSocketHub) Send(_ context.Context, ev service.FrameEvent) error {
	if !h.gate.allow(ev) {
		return service.ErrFrameSkipped
	}
	msg, err := h.enc.encode(ev)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("relay: websocket hub closed")
	}
	h.last = msg

	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return service.ErrFrameSkipped
	}
	return nil
}

// Close disconnects every client.
func (h *WebSocketHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		c.stop()
		delete(h.clients, c)
	}
	return nil
}
