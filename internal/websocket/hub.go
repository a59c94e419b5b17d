package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now (should be restricted in production)
	},
}

// TurnEvent is the message pushed to listeners after each turn
type TurnEvent struct {
	Type       string      `json:"type"` // "turn", "state_change", "recommendation", "session_ended"
	SessionID  string      `json:"session_id"`
	UserText   string      `json:"user_text,omitempty"`
	CaddieText string      `json:"caddie_text,omitempty"`
	State      string      `json:"state,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
}

// Client represents a WebSocket client listening to one session
type Client struct {
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *Hub
}

// Hub maintains active WebSocket connections keyed by session
type Hub struct {
	clients        map[*Client]bool
	sessionClients map[string][]*Client
	broadcast      chan []byte
	register       chan *Client
	unregister     chan *Client
	onMessage      func(sessionID string, data []byte)
	logger         *logrus.Logger
	mutex          sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:        make(map[*Client]bool),
		sessionClients: make(map[string][]*Client),
		broadcast:      make(chan []byte, 256),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		logger:         logger,
	}
}

// OnMessage registers the handler for inbound client messages. Typical
// wiring routes them through the orchestrator as text turns.
func (h *Hub) OnMessage(handler func(sessionID string, data []byte)) {
	h.onMessage = handler
}

// Run starts the hub and handles client registration/unregistration
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.sessionClients[client.SessionID] = append(h.sessionClients[client.SessionID], client)
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"session_id":    client.SessionID,
				"total_clients": len(h.clients),
			}).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			h.dropLocked(client)
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"session_id":    client.SessionID,
				"total_clients": len(h.clients),
			}).Info("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.dropLocked(client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// HandleWebSocket upgrades a connection bound to one session
func (h *Hub) HandleWebSocket(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session ID"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		SessionID: sessionID,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		Hub:       h,
	}

	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastToSession sends an event to every listener on a session.
// A listener whose send buffer is full is dropped so a turn never
// blocks on a slow connection. Handler goroutines call this
// concurrently, so evictions happen under the write lock.
func (h *Hub) BroadcastToSession(sessionID string, event TurnEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	h.mutex.Lock()
	clients := append([]*Client(nil), h.sessionClients[sessionID]...)
	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.dropLocked(client)
		}
	}
	h.mutex.Unlock()
}

// dropLocked removes a client from both maps and closes its send
// channel. The caller holds the write lock; the presence check keeps
// the close from racing the unregister path into a double close.
func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)

	sessionClients := h.sessionClients[client.SessionID]
	for i, c := range sessionClients {
		if c == client {
			h.sessionClients[client.SessionID] = append(sessionClients[:i], sessionClients[i+1:]...)
			break
		}
	}
	if len(h.sessionClients[client.SessionID]) == 0 {
		delete(h.sessionClients, client.SessionID)
	}
}

// BroadcastToAll sends a message to all connected clients
func (h *Hub) BroadcastToAll(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	h.broadcast <- data
}

// ConnectedSessions returns the session IDs with at least one listener
func (h *Hub) ConnectedSessions() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	sessions := make([]string, 0, len(h.sessionClients))
	for sessionID := range h.sessionClients {
		sessions = append(sessions, sessionID)
	}
	return sessions
}

// GetConnectionCount returns the total number of active connections
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("WebSocket error")
			}
			break
		}
		if c.Hub.onMessage != nil {
			c.Hub.onMessage(c.SessionID, data)
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.Hub.logger.WithError(err).Error("Failed to write WebSocket message")
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
