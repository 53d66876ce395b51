// Package realtime pushes notifications to connected users over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Client is one websocket connection of a user
type Client struct {
	conn   *websocket.Conn
	userID uint
	send   chan []byte
}

type message struct {
	userID  uint
	payload []byte
}

// Hub tracks connections per user. All registration changes happen on the Run goroutine.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uint]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	notify     chan message
	done       chan struct{}
	upgrader   websocket.Upgrader
}

// NewHub returns a hub accepting websocket upgrades from allowedOrigin.
// An empty allowedOrigin accepts any origin.
func NewHub(allowedOrigin string) *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notify:     make(chan message, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Run processes registrations and deliveries until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[uint]map[*Client]struct{})
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*Client]struct{})
			}
			h.clients[c.userID][c] = struct{}{}
			h.mu.Unlock()
			logrus.WithField("user_id", c.userID).Debug("websocket client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
			logrus.WithField("user_id", c.userID).Debug("websocket client disconnected")

		case m := <-h.notify:
			h.mu.Lock()
			for c := range h.clients[m.userID] {
				select {
				case c.send <- m.payload:
				default:
					h.remove(c) // Slow consumer
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held
func (h *Hub) remove(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Notify queues v, JSON-encoded, for every connection of userID. It never blocks;
// when the queue is full the message is dropped.
func (h *Hub) Notify(userID uint, v any) {
	if h == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Warn("websocket payload not encodable")
		return
	}
	select {
	case h.notify <- message{userID: userID, payload: payload}:
	default:
		logrus.WithField("user_id", userID).Warn("websocket queue full, notification dropped")
	}
}

// Connected returns the number of open connections of userID
func (h *Hub) Connected(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve upgrades the request and keeps the connection until the peer leaves
func (h *Hub) Serve(c *gin.Context, userID uint) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	client := &Client{conn: conn, userID: userID, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go client.writePump()
	client.readPump(h)
}

// readPump only watches for disconnects; clients never send anything meaningful
func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()
	c.conn.SetReadLimit(512)
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

func (c *Client) writePump() {
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
