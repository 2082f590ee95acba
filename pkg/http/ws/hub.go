package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/tarea-editor/pkg/http/errors"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub manages WebSocket connections and fans messages out to topic subscribers.
// A topic is an opaque string such as "session:<id>" or "operator:<email>".
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*Connection
	topics      map[string]map[uuid.UUID]struct{}
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		topics:      make(map[string]map[uuid.UUID]struct{}),
		logger:      logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Register adds a connection subscribed to the given topics.
func (h *Hub) Register(conn *Connection, topics ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[conn.ID()] = conn
	for _, topic := range topics {
		subs, ok := h.topics[topic]
		if !ok {
			subs = make(map[uuid.UUID]struct{})
			h.topics[topic] = subs
		}
		subs[conn.ID()] = struct{}{}
	}
	h.logger.Debug().Str("conn_id", conn.ID().String()).Strs("topics", topics).Msg("connection registered")
}

// Unregister closes a connection and drops its subscriptions.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := conn.ID()
	if _, exists := h.connections[id]; !exists {
		return
	}
	conn.Close()
	delete(h.connections, id)
	for topic, subs := range h.topics {
		delete(subs, id)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	h.logger.Debug().Str("conn_id", id.String()).Msg("connection unregistered")
}

// Publish sends a message to every subscriber of topic. Delivery failures are
// logged and the first one is returned.
func (h *Hub) Publish(topic string, msg Message) error {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.topics[topic]))
	for id := range h.topics[topic] {
		if conn, ok := h.connections[id]; ok {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	var firstErr error
	for _, conn := range conns {
		if err := conn.Send(msg); err != nil {
			h.logger.Warn().Err(err).Str("topic", topic).Str("conn_id", conn.ID().String()).Msg("publish failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// CloseTopic unregisters every subscriber of topic.
func (h *Hub) CloseTopic(topic string) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.topics[topic]))
	for id := range h.topics[topic] {
		if conn, ok := h.connections[id]; ok {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.Unregister(conn)
	}
}

// Subscribers returns how many connections listen on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Connection represents a WebSocket connection with send queue.
type Connection struct {
	id     uuid.UUID
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	id := uuid.New()
	return &Connection{
		id:     id,
		conn:   conn,
		sendCh: make(chan Message, 256),
		logger: logger.With().Str("conn_id", id.String()).Logger(),
	}
}

func (c *Connection) ID() uuid.UUID { return c.id }

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	if c.conn != nil {
		c.conn.Close()
	}
}

// WritePump sends queued messages and keeps the connection alive with pings.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump receives messages and calls the handler until the peer goes away.
// Frames that are not a message envelope are answered with an invalid_payload error.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}

		msg, err := decodeFrame(data)
		if err != nil {
			c.logger.Debug().Err(err).Msg("malformed frame")
			_ = c.Send(NewErrorMessage(httperrors.ErrCodeInvalidPayload, "Malformed message", ""))
			continue
		}
		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

func decodeFrame(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	if msg.Type == "" {
		return Message{}, errors.New("message type is required")
	}
	return msg, nil
}

var (
	ErrConnectionClosed = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull    = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
