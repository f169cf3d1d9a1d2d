package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mark3labs/openspec-studio/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// liveMessage is exchanged on /api/live. The server sends "state"; clients
// may send "edit" with the full buffer text.
type liveMessage struct {
	Type  string     `json:"type"`
	Text  string     `json:"text,omitempty"`
	State *stateView `json:"state,omitempty"`
	Error string     `json:"error,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// hub fans state updates out to every live client. A client that cannot keep
// up is dropped.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func newHub(logger *slog.Logger, m *metrics.Recorder) *hub {
	return &hub{clients: map[*client]struct{}{}, logger: logger, metrics: m}
}

func (h *hub) add(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.LiveClients(1)
	h.logger.Debug("live client connected", "remote", conn.RemoteAddr().String(), "clients", n)
	return c
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.once.Do(func() { close(c.send) })
	h.metrics.LiveClients(-1)
}

func (h *hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow live client", "remote", c.conn.RemoteAddr().String())
			h.removeLocked(c)
		}
	}
}

func (h *hub) sendTo(c *client, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.removeLocked(c)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// writeLoop drains c.send until the hub closes it, then closes the socket.
// It pings every period so idle clients keep answering with pongs.
func (c *client) writeLoop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("live upgrade failed", "error", err)
		return
	}
	c := s.hub.add(conn)
	go c.writeLoop(s.pingPeriod)
	defer s.hub.remove(c)

	if msg, err := json.Marshal(liveMessage{Type: "state", State: s.state()}); err == nil {
		s.hub.sendTo(c, msg)
	}

	conn.SetReadLimit(MaxBodyBytes)
	wait := s.pongWait
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wait))

		var in liveMessage
		if err := json.Unmarshal(data, &in); err != nil || in.Type != "edit" {
			continue
		}
		// Parse failures are part of the broadcast state.
		_, _ = s.session.Edit(context.WithoutCancel(r.Context()), in.Text)
		s.publish()
	}
}

// publish pushes the current state to every live client.
func (s *Server) publish() {
	msg, err := json.Marshal(liveMessage{Type: "state", State: s.state()})
	if err != nil {
		s.logger.Error("encode live state", "error", err)
		return
	}
	s.hub.broadcast(msg)
}
