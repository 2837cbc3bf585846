package ws

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/plinkoplus/backend/internal/auth"
	"github.com/plinkoplus/backend/internal/game"
	"go.uber.org/zap"
)

// Message is a command sent by the client over the socket.
type Message struct {
	Type string   `json:"type"`
	X    *float64 `json:"x,omitempty"`
}

// position returns X, or NaN (the board center) when it was omitted.
func (m Message) position() float64 {
	if m.X == nil {
		return math.NaN()
	}
	return *m.X
}

const commandTimeout = 5 * time.Second

// SnapshotLoader reads the last saved state of a session, including
// sessions hosted by another instance.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, id string) (*game.Snapshot, error)
}

// ErrWatchOnly is reported for commands sent on a connection to a session
// hosted by another instance.
var ErrWatchOnly = errors.New("session is hosted by another instance; connection is watch-only")

// HandleWebSocket streams a session's events to its owner and accepts
// round commands. The JWT comes in the token query parameter since
// browsers cannot set headers on websocket requests. A session hosted by
// another instance is found through snaps and watched read-only; its
// frames arrive through the Redis relay. snaps may be nil.
// GET /api/v1/sessions/:id/ws?token=...
func HandleWebSocket(mgr *game.Manager, hub *Hub, snaps SnapshotLoader, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := auth.ParseToken(secret, c.Query("token"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		id := c.Param("id")
		s, owner, initial, err := locate(c.Request.Context(), mgr, snaps, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if owner != claims.PlayerID {
			c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			zap.S().Warnf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			hub:       hub,
			conn:      conn,
			playerID:  claims.PlayerID,
			sessionID: id,
			send:      make(chan []byte, sendBuffer),
		}
		if !hub.add(client) {
			conn.Close()
			return
		}

		go client.writePump()

		if s != nil {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			if snap, err := s.Snapshot(ctx); err == nil {
				initial = &snap
			}
			cancel()
		} else {
			zap.S().Infof("[WS] Player %d watching remote session %s", claims.PlayerID, id)
		}
		if initial != nil {
			client.sendFrame(game.Event{Type: game.EventState, SessionID: id, Data: initial})
		}

		go client.readPump(s)
	}
}

// locate finds a session on this instance, or the saved snapshot of one
// hosted elsewhere. It returns the owning player either way.
func locate(ctx context.Context, mgr *game.Manager, snaps SnapshotLoader, id string) (*game.Session, int, *game.Snapshot, error) {
	s, err := mgr.Get(id)
	if err == nil {
		return s, s.PlayerID, nil, nil
	}
	if snaps == nil {
		return nil, 0, nil, err
	}
	snap, err := snaps.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, 0, nil, err
	}
	if snap.Status != "" && snap.Status != game.StatusActive {
		return nil, 0, nil, game.ErrSessionNotFound
	}
	return nil, snap.PlayerID, snap, nil
}

// readPump applies client commands to the session until the socket closes.
// A nil session is a watch-only connection.
func (c *Client) readPump(s *game.Session) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.S().Infof("[WS] unexpected close for player %d: %v", c.playerID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("invalid message")
			continue
		}
		if s == nil {
			c.sendError(ErrWatchOnly.Error())
			continue
		}
		if errors.Is(c.handleMessage(s, msg), game.ErrSessionClosed) {
			return
		}
	}
}

func (c *Client) handleMessage(s *game.Session, msg Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case "move":
		if msg.X == nil {
			c.sendError("x required")
			return nil
		}
		err = s.Move(ctx, *msg.X)
	case "drop":
		_, err = s.Drop(ctx, msg.position())
	case "restart":
		err = s.Restart(ctx)
	case "bonus":
		_, err = s.BuyBonus(ctx)
	case "double":
		_, err = s.BuyDouble(ctx)
	case "get_state":
		var snap game.Snapshot
		if snap, err = s.Snapshot(ctx); err == nil {
			c.sendFrame(game.Event{Type: game.EventState, SessionID: s.ID, Data: snap})
		}
	default:
		c.sendError("unknown message type")
		return nil
	}
	if err != nil {
		c.sendError(err.Error())
	}
	return err
}
