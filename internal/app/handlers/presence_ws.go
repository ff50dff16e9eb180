package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API only listens on a local address for the UI shell.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message types exchanged over the presence socket.
const (
	MessagePresence   = "presence"
	MessageLocation   = "location"
	MessageForeground = "foreground"
	MessageError      = "error"
)

// WSMessage is the envelope for every frame on the presence socket.
type WSMessage struct {
	Type      string        `json:"type"`
	Users     []models.User `json:"users,omitempty"`
	Latitude  float64       `json:"latitude,omitempty"`
	Longitude float64       `json:"longitude,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// PresenceHub fans nearby-user updates out to connected sockets.
type PresenceHub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	last    []models.User
}

// NewPresenceHub creates an empty hub.
func NewPresenceHub(logger *zap.Logger) *PresenceHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresenceHub{
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Broadcast sends users to every connected socket. Slow clients are dropped.
func (h *PresenceHub) Broadcast(users []models.User) {
	if users == nil {
		users = []models.User{}
	}
	payload, err := json.Marshal(WSMessage{Type: MessagePresence, Users: users, Timestamp: time.Now()})
	if err != nil {
		h.logger.Error("Failed to encode presence update", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = users
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("Dropping slow presence client")
			delete(h.clients, c)
			c.close()
		}
	}
}

// Clients returns the number of connected sockets.
func (h *PresenceHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *PresenceHub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		if payload, err := json.Marshal(WSMessage{Type: MessagePresence, Users: h.last, Timestamp: time.Now()}); err == nil {
			c.send <- payload
		}
	}
}

func (h *PresenceHub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

// PresenceSocket upgrades the request and streams presence updates. Inbound
// frames carry device location fixes and foreground notifications.
func (h *Handlers) PresenceSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade presence socket", zap.Error(err))
		return
	}
	client := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	h.Hub.register(client)
	h.logger.Debug("Presence socket connected", zap.String("remote", c.ClientIP()))

	go h.writePump(client)
	h.readPump(client)
}

func (h *Handlers) readPump(c *wsClient) {
	defer func() {
		h.Hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Presence socket closed", zap.Error(err))
			}
			return
		}
		h.handleInbound(c, msg)
	}
}

func (h *Handlers) handleInbound(c *wsClient, msg WSMessage) {
	switch msg.Type {
	case MessageLocation:
		if h.Location == nil {
			return
		}
		h.Location.Update(models.Coordinate{Latitude: msg.Latitude, Longitude: msg.Longitude})
	case MessageForeground:
		if h.Presence != nil {
			h.Presence.Trigger()
		}
	default:
		payload, err := json.Marshal(WSMessage{Type: MessageError, Error: "unknown message type", Timestamp: time.Now()})
		if err != nil {
			return
		}
		h.Hub.mu.RLock()
		_, live := h.Hub.clients[c]
		if live {
			select {
			case c.send <- payload:
			default:
			}
		}
		h.Hub.mu.RUnlock()
	}
}

func (h *Handlers) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
