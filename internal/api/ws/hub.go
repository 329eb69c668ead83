package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/confbridge/internal/shared/id"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 4096
)

// Message is the envelope of every frame
type Message struct {
	Type     string       `json:"type"`
	ClientID string       `json:"clientId,omitempty"`
	Event    *types.Event `json:"event,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // host webviews connect from file:// and custom schemes
	},
}

type client struct {
	id   id.ClientID
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to connected clients
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHub creates an empty hub
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.Named("ws"),
	}
}

// WithMetrics enables connection metrics
func (h *Hub) WithMetrics(metrics *monitoring.Metrics) *Hub {
	h.metrics = metrics
	return h
}

// Publish encodes ev and queues it for every client. It is the router
// listener and must not block.
func (h *Hub) Publish(ev types.Event) {
	data, err := sonic.Marshal(Message{Type: "event", Event: &ev})
	if err != nil {
		h.logger.Error("Failed to encode event", zap.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
			h.record("sent")
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Client too slow, disconnecting", zap.String("client_id", c.id.String()))
		h.record("dropped")
		h.remove(c)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleConnection upgrades the request and serves the client until it
// disconnects
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:   id.NewClientID(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	hello, _ := sonic.Marshal(Message{Type: "hello", ClientID: cl.id.String()})
	cl.send <- hello

	h.add(cl)
	go h.writePump(cl)
	h.readPump(cl)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
		h.disconnected()
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	h.logger.Info("Client connected", zap.String("client_id", c.id.String()))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		h.disconnected()
		h.logger.Info("Client disconnected", zap.String("client_id", c.id.String()))
	}
}

func (h *Hub) disconnected() {
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
}

func (h *Hub) record(result string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(result)
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			pong, _ := sonic.Marshal(Message{Type: "pong"})
			h.enqueue(c, pong)
		}
	}
}

// enqueue sends to a single client while holding the read lock so it cannot
// race with remove closing the channel
func (h *Hub) enqueue(c *client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
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
