package refresh

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cartrules/pkg/logging"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// InboundFrame is a message sent by a host page over the socket.
type InboundFrame struct {
	Type   string `json:"type"`
	Source string `json:"source"`
}

// SignalHandler receives change signals forwarded by host pages.
type SignalHandler func(source string)

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub keeps the connected host pages. It broadcasts refresh messages to all of
// them and bridges inbound signal frames to a SignalHandler.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	onSignal SignalHandler
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// SetSignalHandler installs the handler for inbound signal frames.
func (h *Hub) SetSignalHandler(fn SignalHandler) {
	h.mu.Lock()
	h.onSignal = fn
	h.mu.Unlock()
}

// Clients returns the number of connected host pages.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast implements Broadcaster. Clients whose buffer is full are
// disconnected rather than allowed to stall the engine.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			logging.Warn("Refresh", "Dropping slow host connection")
			delete(h.clients, c)
			close(c.send)
		}
	}
	broadcastsTotal.WithLabelValues(msg.Type).Inc()
}

// ServeWS upgrades the request and serves the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Refresh", "Failed to upgrade websocket: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan Message, sendBufferSize)}
	h.register(c)
	logging.Debug("Refresh", "Host connected (%d total)", h.Clients())

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		logging.Debug("Refresh", "Host disconnected")
	}()

	for {
		var frame InboundFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.Type != "signal" || frame.Source == "" {
			continue
		}

		h.mu.RLock()
		fn := h.onSignal
		h.mu.RUnlock()
		if fn != nil {
			fn(frame.Source)
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			logging.Debug("Refresh", "Write to host failed: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Close disconnects every host page.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
