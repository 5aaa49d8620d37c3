// Package ws streams live dashboard stats to authenticated websocket clients.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"admin-dashboard/backend/internal/models"
	"admin-dashboard/backend/internal/service"
	apperrors "admin-dashboard/backend/pkg/errors"
	"admin-dashboard/backend/pkg/logger"
	"admin-dashboard/backend/pkg/pipeline"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only send small control messages.
	maxMessageSize = 4 * 1024

	// DefaultInterval is used when no positive push interval is configured.
	DefaultInterval = 5 * time.Second
)

// Message is the frame exchanged in both directions.
type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content,omitempty"`
}

// StatsSource produces a stats snapshot for a user.
type StatsSource interface {
	Snapshot(ctx context.Context, user *models.User) (*service.DashboardStats, error)
}

// Handler upgrades authenticated requests and pushes a stats frame every
// interval until the client goes away.
type Handler struct {
	stats    StatsSource
	interval time.Duration
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
	pumps   sync.WaitGroup
}

// NewHandler creates a live-stats handler. allowOrigin decides which
// browser origins may connect; nil allows all.
func NewHandler(stats StatsSource, interval time.Duration, allowOrigin func(*http.Request) bool) *Handler {
	if allowOrigin == nil {
		allowOrigin = func(*http.Request) bool { return true }
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Handler{
		stats:    stats,
		interval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin:      allowOrigin,
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		clients: make(map[*Client]struct{}),
	}
}

// ActiveConnections returns the number of open streams.
func (h *Handler) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve is the pipeline handler for GET /ws/dashboard.
func (h *Handler) Serve(req *pipeline.Request) error {
	log := logger.FromGin(req.Context)

	if h.isClosed() {
		return apperrors.NewError(http.StatusServiceUnavailable, apperrors.CodeUnavailable, "Live stats are shutting down")
	}

	conn, err := h.upgrader.Upgrade(req.Writer, req.Request, nil)
	if err != nil {
		// The upgrader has already answered with an HTTP error.
		log.Warn("Websocket upgrade failed", "error", err.Error())
		return nil
	}

	// The request context ends when this handler returns.
	ctx, cancel := context.WithCancel(context.WithoutCancel(req.Request.Context()))
	client := &Client{
		conn:   conn,
		send:   make(chan Message, 16),
		user:   req.User,
		log:    log,
		cancel: cancel,
	}
	if !h.register(client) {
		cancel()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return nil
	}
	log.Info("Live stats stream opened")

	go func() {
		defer h.pumps.Done()
		client.writePump(ctx, h.stats, h.interval)
		h.unregister(client)
	}()
	go client.readPump(ctx)
	return nil
}

// register adds c unless the handler is closed.
func (h *Handler) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.pumps.Add(1)
	return true
}

func (h *Handler) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close ends every open stream with a normal close frame and waits for the
// write pumps to exit. Later upgrade attempts get a 503.
func (h *Handler) Close() error {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		c.cancel()
	}
	h.mu.Unlock()

	h.pumps.Wait()
	return nil
}

func (h *Handler) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Client is one open stats stream.
type Client struct {
	conn   *websocket.Conn
	send   chan Message
	user   *models.User
	log    *logger.Logger
	cancel context.CancelFunc
}

func (c *Client) readPump(ctx context.Context) {
	defer c.cancel()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Websocket read failed", "error", err.Error())
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.queue(ctx, Message{Type: "error", Content: "malformed message"})
			continue
		}
		switch msg.Type {
		case "ping":
			c.queue(ctx, Message{Type: "pong"})
		default:
			c.queue(ctx, Message{Type: "error", Content: "unknown message type"})
		}
	}
}

func (c *Client) queue(ctx context.Context, msg Message) {
	select {
	case c.send <- msg:
	case <-ctx.Done():
	}
}

func (c *Client) writePump(ctx context.Context, stats StatsSource, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ping := time.NewTicker(pingPeriod)
	tick := time.NewTicker(interval)
	defer func() {
		ping.Stop()
		tick.Stop()
		c.conn.Close()
		c.log.Info("Live stats stream closed")
	}()

	if !c.pushStats(ctx, stats) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			if !c.write(msg) {
				return
			}
		case <-tick.C:
			if !c.pushStats(ctx, stats) {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) pushStats(ctx context.Context, stats StatsSource) bool {
	snap, err := stats.Snapshot(ctx, c.user)
	if err != nil {
		c.log.LogError(err, "Failed to build stats snapshot")
		return c.write(Message{Type: "error", Content: "stats unavailable"})
	}
	return c.write(Message{Type: "stats", Content: snap})
}

func (c *Client) write(msg Message) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.cancel()
		return false
	}
	return true
}
