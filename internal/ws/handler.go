package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/plinkoplus/backend/internal/game"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the token
	},
}

// Client is one websocket connection watching a session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	playerID  int
	sessionID string
	send      chan []byte
}

// Hub fans session events out to the websockets watching each session.
type Hub struct {
	rooms      map[string]map[*Client]struct{} // sessionID -> clients
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	done       chan struct{}

	relay *Relay
}

// NewHub creates a hub. Call Run before registering clients.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// SetRelay makes Publish forward frames to other instances.
func (h *Hub) SetRelay(r *Relay) {
	h.relay = r
}

// Run processes registrations until ctx is cancelled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, room := range h.rooms {
				for c := range room {
					c.conn.Close()
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[c.sessionID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[c.sessionID] = room
			}
			room[c] = struct{}{}
			h.mu.Unlock()
			zap.S().Infof("[WS] Player %d watching session %s", c.playerID, c.sessionID)

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.sessionID]; ok {
				if _, ok := room[c]; ok {
					delete(room, c)
					close(c.send)
					if len(room) == 0 {
						delete(h.rooms, c.sessionID)
					}
					zap.S().Infof("[WS] Player %d left session %s", c.playerID, c.sessionID)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish implements game.EventSink.
func (h *Hub) Publish(sessionID string, ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		zap.S().Errorf("[WS] Error marshaling %s event: %v", ev.Type, err)
		return
	}
	h.BroadcastToSession(sessionID, data)
	if h.relay != nil {
		h.relay.Forward(sessionID, data)
	}
}

// BroadcastToSession sends an encoded frame to every client of a session.
// Slow clients drop frames instead of blocking the caller.
func (h *Hub) BroadcastToSession(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[sessionID] {
		select {
		case c.send <- data:
		default:
			zap.S().Debugf("[WS] send buffer full for player %d in session %s, dropping frame", c.playerID, sessionID)
		}
	}
}

// Watchers returns the number of clients on a session.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// writePump writes frames and keepalive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				zap.S().Debugf("[WS] write error for player %d: %v", c.playerID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				zap.S().Debugf("[WS] ping error for player %d: %v", c.playerID, err)
				return
			}
		}
	}
}

func (c *Client) sendFrame(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(message string) {
	c.sendFrame(map[string]any{"type": "error", "session_id": c.sessionID, "data": map[string]string{"message": message}})
}
