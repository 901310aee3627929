// Package realtime fans server events out to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/pkg/metrics"
)

// EventRunCheckNew is emitted after a batch of checks is accepted.
const EventRunCheckNew = "runcheck:new"

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1024
	sendBuffer     = 16
)

// Envelope is the frame written to clients.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks clients and delivers broadcasts at most once to each.
type Hub struct {
	upgrader   websocket.Upgrader
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	count      atomic.Int64

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHub builds a hub. Origins other than the request host must be listed in
// allowOrigins.
func NewHub(allowOrigins []string, logger *zap.Logger, m *metrics.Metrics) *Hub {
	h := &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		logger:     logger.With(zap.String("component", "realtime")),
		metrics:    m,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowOrigins),
	}
	return h
}

func originChecker(allow []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allow))
	for _, o := range allow {
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if allowed[strings.ToLower(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(r.Host), strings.TrimSpace(u.Host))
	}
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*client]struct{})
	defer func() {
		close(h.done)
		for c := range clients {
			close(c.send)
		}
		h.count.Store(0)
		h.metrics.SetWSClients(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			clients[c] = struct{}{}
			h.setCount(len(clients))
		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
				h.setCount(len(clients))
			}
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Debug("client buffer full, dropping event")
				}
			}
		}
	}
}

func (h *Hub) setCount(n int) {
	h.count.Store(int64(n))
	h.metrics.SetWSClients(n)
}

// ClientCount is the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Broadcast sends {"event", "data"} to every connected client. It never blocks
// on slow clients.
func (h *Hub) Broadcast(event string, payload interface{}) error {
	msg, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- msg:
		h.metrics.Broadcast(event)
	case <-h.done:
	default:
		h.logger.Warn("broadcast queue full, dropping event", zap.String("event", event))
	}
	return nil
}

// ServeWS upgrades the request and serves the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	h.logger.Debug("client connected", zap.String("remote", r.RemoteAddr))

	go h.writePump(c)
	h.readPump(c)
	h.logger.Debug("client disconnected", zap.String("remote", r.RemoteAddr))
}

// readPump drains client frames so pongs and close frames are seen.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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
