package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"carewatch.dev/carewatch/pkg/metrics"
)

// wsEvent is pushed to connected browsers: either a snapshot replacement
// ("snapshot") or an operator notice ("notice").
type wsEvent struct {
	Type     string `json:"type"`
	Resource string `json:"resource,omitempty"`
	Version  uint64 `json:"version,omitempty"`
	Level    string `json:"level,omitempty"`
	Text     string `json:"text,omitempty"`
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// hub maintains the set of connected live-update clients and broadcasts
// events to them. Slow clients are dropped rather than allowed to block the
// broadcast loop.
type hub struct {
	logger     *slog.Logger
	metrics    *metrics.DashboardMetrics
	clients    map[*wsClient]struct{}
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
}

func newHub(logger *slog.Logger, m *metrics.DashboardMetrics) *hub {
	return &hub{
		logger:     logger,
		metrics:    m,
		clients:    make(map[*wsClient]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
	}
}

func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.gauge()
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.gauge()
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
					h.gauge()
				}
			}
		}
	}
}

func (h *hub) gauge() {
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(len(h.clients)))
	}
}

func (h *hub) snapshotApplied(resource string, version uint64) {
	h.send(wsEvent{Type: "snapshot", Resource: resource, Version: version})
}

func (h *hub) notice(level, text string) {
	h.send(wsEvent{Type: "notice", Level: level, Text: text})
}

func (h *hub) send(ev wsEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Broadcast backlog full; browsers resync on the next event.
	}
}

// wsClient is one connected browser.
type wsClient struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

// handleWS upgrades the connection and attaches it to the hub.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &wsClient{hub: s.hub, conn: conn, send: make(chan []byte, 16)}
	s.hub.register <- c
	go c.writePump()
	go c.readPump()
}

// readPump discards inbound frames; its job is detecting the close.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
