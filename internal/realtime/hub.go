// Package realtime fans work session events out to websocket subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
)

// AllAccounts subscribes a connection to every account's events.
const AllAccounts int64 = 0

// Connection represents a single WebSocket subscriber.
type Connection struct {
	ID        string
	AccountID int64
	Conn      *websocket.Conn
	Send      chan []byte
	mu        sync.Mutex
}

// Hub manages subscribers and broadcasts session events to them.
type Hub struct {
	logger *slog.Logger

	// Connections indexed by connection ID
	connections map[string]*Connection

	// Accounts maps account_id to set of connection IDs
	accounts map[int64]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan domain.SessionEvent
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:      logger,
		connections: make(map[string]*Connection),
		accounts:    make(map[int64]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan domain.SessionEvent, 256),
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is done, after
// closing every subscriber's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, conn := range h.connections {
				h.remove(conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.accounts[conn.AccountID] == nil {
				h.accounts[conn.AccountID] = make(map[string]bool)
			}
			h.accounts[conn.AccountID][conn.ID] = true
			h.mu.Unlock()
			h.logger.Debug("subscriber registered", "conn_id", conn.ID, "account_id", conn.AccountID)

		case conn := <-h.unregister:
			h.mu.Lock()
			h.remove(conn)
			h.mu.Unlock()
			h.logger.Debug("subscriber unregistered", "conn_id", conn.ID)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) deliver(event domain.SessionEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode session event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Connection
	for _, accountID := range []int64{event.AccountID, AllAccounts} {
		for connID := range h.accounts[accountID] {
			conn := h.connections[connID]
			select {
			case conn.Send <- data:
			default:
				slow = append(slow, conn)
			}
		}
	}
	for _, conn := range slow {
		h.logger.Warn("subscriber buffer full, closing", "conn_id", conn.ID)
		h.remove(conn)
	}
}

// remove drops conn from the indexes. The caller holds h.mu.
func (h *Hub) remove(conn *Connection) {
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if ids := h.accounts[conn.AccountID]; ids != nil {
		delete(ids, conn.ID)
		if len(ids) == 0 {
			delete(h.accounts, conn.AccountID)
		}
	}
	close(conn.Send)
}

// NewConnection creates a subscriber for accountID, or for every account
// when accountID is AllAccounts.
func (h *Hub) NewConnection(ws *websocket.Conn, accountID int64) *Connection {
	return &Connection{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Conn:      ws,
		Send:      make(chan []byte, 256),
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish queues event for delivery. It never blocks: when the queue is
// full the event is dropped.
func (h *Hub) Publish(event domain.SessionEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("session event dropped, broadcast queue full",
			"type", event.Type, "session_id", event.SessionID)
	}
}

// ConnectionCount returns the number of active subscribers.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasSubscribers reports whether events of accountID reach anyone.
func (h *Hub) HasSubscribers(accountID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.accounts[accountID]) > 0 || len(h.accounts[AllAccounts]) > 0
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
