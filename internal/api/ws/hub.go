package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/your-org/deckwatch/internal/observability"
	"github.com/your-org/deckwatch/pkg/dto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a connected WebSocket viewer. A client watching a
// single table sets filter; uuid.Nil means every table.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	filter uuid.UUID
}

func (c *Client) wants(streamID uuid.UUID) bool {
	return c.filter == uuid.Nil || c.filter == streamID
}

// Hub maintains active WebSocket clients and fans table updates out to
// them. Events are marshalled once per broadcast, not per client.
type Hub struct {
	clients    map[*Client]struct{}
	events     chan *dto.WSEvent
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		events:     make(chan *dto.WSEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			observability.WSConnections.Inc()
			slog.Debug("ws client connected", "filter", client.filter)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				observability.WSConnections.Dec()
			}
			h.mu.Unlock()
			slog.Debug("ws client disconnected")

		case event := <-h.events:
			h.dispatch(event)
		}
	}
}

func (h *Hub) dispatch(event *dto.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal ws event", "error", err)
		return
	}

	var stalled []*Client

	h.mu.RLock()
	for client := range h.clients {
		if !client.wants(event.StreamID) {
			continue
		}
		select {
		case client.send <- data:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	if len(stalled) == 0 {
		return
	}

	// A full send buffer means the client stopped reading; drop it so
	// one slow viewer cannot back up the table feed.
	h.mu.Lock()
	for _, client := range stalled {
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
			observability.WSConnections.Dec()
			slog.Warn("ws client stalled, dropping", "filter", client.filter)
		}
	}
	h.mu.Unlock()
}

// BroadcastEvent queues a table update for fan-out. Drops the event if
// the hub itself is backed up.
func (h *Hub) BroadcastEvent(event *dto.WSEvent) {
	select {
	case h.events <- event:
	default:
		slog.Warn("ws event queue full, dropping", "stream_id", event.StreamID)
	}
}

// HandleWS handles WebSocket upgrade requests. An optional stream_id
// query parameter limits the client to a single table.
func (h *Hub) HandleWS(c *gin.Context) {
	filter := uuid.Nil
	if raw := c.Query("stream_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stream_id"})
			return
		}
		filter = parsed
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 64),
		filter: filter,
	}

	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		// We don't process incoming messages from clients.
		// This loop exists to detect disconnection.
	}
}
