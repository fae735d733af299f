package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/formstack/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/formstack/internal/shared/types"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	// DefaultBufferSize is the number of events queued per client before
	// further events are dropped for it.
	DefaultBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the inspector is read-only
	},
}

// Message is the envelope of everything sent to clients
type Message struct {
	Type      string           `json:"type"`
	Message   string           `json:"message,omitempty"`
	Event     *types.FormEvent `json:"event,omitempty"`
	Groups    []string         `json:"groups,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// ClientMessage is what clients may send
type ClientMessage struct {
	Type   string   `json:"type"`
	Groups []string `json:"groups,omitempty"`
}

// Hub fans lifecycle events out to WebSocket clients. Publish never blocks,
// so it can be used as the manager's event sink.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool

	bufferSize int
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// NewHub creates an empty hub
func NewHub(metrics *monitoring.Metrics, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		bufferSize: DefaultBufferSize,
		metrics:    metrics,
		logger:     logger.Named("ws"),
	}
}

// WithBufferSize overrides DefaultBufferSize for clients connecting later
func (h *Hub) WithBufferSize(n int) *Hub {
	h.bufferSize = max(n, 1)
	return h
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues the event for every subscribed client. Clients whose
// buffer is full miss it.
func (h *Hub) Publish(event types.FormEvent) {
	data, err := sonic.Marshal(Message{Type: "event", Event: &event, Timestamp: event.Timestamp.Unix()})
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("transition", event.Transition), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.accepts(event.Group) {
			continue
		}
		if c.enqueue(data) {
			h.metrics.RecordWSMessage("out", "event")
		} else {
			h.logger.Debug("client too slow, dropping event",
				zap.String("client", c.addr), zap.String("transition", event.Transition))
			h.metrics.RecordWSMessage("dropped", "event")
		}
	}
}

// HandleConnection upgrades the request and streams events until the client
// goes away.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, addr: c.ClientIP(), send: make(chan []byte, h.bufferSize)}
	if !h.register(cl) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go cl.writePump(h.logger)
	h.reply(cl, Message{Type: "system", Message: "Connected to formstack event stream"})
	h.readPump(cl)
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
		h.metrics.DecWSConnections()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.IncWSConnections()
	h.logger.Debug("client connected", zap.String("client", c.addr))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		c.close()
		h.metrics.DecWSConnections()
		h.logger.Debug("client disconnected", zap.String("client", c.addr))
	}
}

func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.String("client", c.addr), zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.reply(c, Message{Type: "error", Message: "invalid message"})
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "ping":
			h.reply(c, Message{Type: "pong"})
		case "subscribe":
			c.subscribe(msg.Groups)
			h.reply(c, Message{Type: "subscribed", Groups: msg.Groups})
		default:
			h.reply(c, Message{Type: "error", Message: "unknown message type"})
		}
	}
}

func (h *Hub) reply(c *client, msg Message) {
	msg.Timestamp = time.Now().Unix()
	data, err := sonic.Marshal(msg)
	if err != nil {
		return
	}
	if c.enqueue(data) {
		h.metrics.RecordWSMessage("out", msg.Type)
	}
}

// client is one connection. Only writePump writes to conn.
type client struct {
	conn *websocket.Conn
	addr string
	send chan []byte

	mu     sync.Mutex
	groups map[string]bool
	closed bool
}

// accepts reports whether the client wants events of the group. No
// subscription means every group.
func (c *client) accepts(group string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.groups) == 0 || c.groups[group]
}

func (c *client) subscribe(groups []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = make(map[string]bool, len(groups))
	for _, g := range groups {
		c.groups[g] = true
	}
}

func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("WebSocket write failed", zap.String("client", c.addr), zap.Error(err))
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
