package ws

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
)

// Envelope is the wire frame for every gateway message, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client is one live connection.
type Client struct {
	UserID   string
	SocketID string
	conn     *websocket.Conn
	send     chan []byte
	closed   chan struct{}
	once     sync.Once
}

func NewClient(userID, socketID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID:   userID,
		SocketID: socketID,
		conn:     conn,
		send:     make(chan []byte, 256),
		closed:   make(chan struct{}),
	}
}

// enqueue drops the frame when the client's buffer is full.
func (c *Client) enqueue(b []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.closed) })
}

// Hub is the in-process userID -> connection index. It is local to one
// gateway instance; cross-instance push would need a pub/sub extension.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register records the connection. A second connection for the same user
// overwrites the first (last-writer-wins, single active connection per user).
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.UserID] = c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.UserID]; ok && cur == c {
		delete(h.clients, c.UserID)
	}
	c.close()
}

// Push routes an event to the user's active connection; no-op when the
// user has none. Fire-and-forget: no queuing for offline users.
func (h *Hub) Push(userID, event string, payload any) bool {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return false
	}
	return c.enqueue(frame)
}

func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}
