package ws

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RelayChannel carries session frames between instances.
const RelayChannel = "round_events"

type envelope struct {
	Origin    string `json:"origin"`
	SessionID string `json:"session_id"`
	Frame     []byte `json:"frame"`
}

// Relay publishes local frames on Redis and delivers frames published by
// other instances to this hub. Outgoing frames are queued so publishers
// never wait on Redis.
type Relay struct {
	rdb    *redis.Client
	hub    *Hub
	origin string
	out    chan envelope
}

func NewRelay(rdb *redis.Client, hub *Hub) *Relay {
	return &Relay{
		rdb:    rdb,
		hub:    hub,
		origin: uuid.NewString(),
		out:    make(chan envelope, 1024),
	}
}

// Forward queues a frame for other instances.
func (r *Relay) Forward(sessionID string, frame []byte) {
	select {
	case r.out <- envelope{Origin: r.origin, SessionID: sessionID, Frame: frame}:
	default:
		zap.S().Debugf("[WS] relay queue full, dropping frame for session %s", sessionID)
	}
}

// Run publishes queued frames and consumes remote ones until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.rdb.Subscribe(ctx, RelayChannel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	in := pubsub.Channel()
	zap.S().Infof("[WS] %s relay started (instance %s)", RelayChannel, r.origin)

	for {
		select {
		case <-ctx.Done():
			zap.S().Info("[WS] relay stopping")
			return nil

		case env := <-r.out:
			payload, err := json.Marshal(env)
			if err != nil {
				continue
			}
			if err := r.rdb.Publish(ctx, RelayChannel, payload).Err(); err != nil {
				zap.S().Warnf("[WS] relay publish failed: %v", err)
			}

		case msg, ok := <-in:
			if !ok {
				return nil
			}
			r.deliver(msg.Payload)
		}
	}
}

func (r *Relay) deliver(payload string) {
	var env envelope
	if err := json.UnmarshalFromString(payload, &env); err != nil {
		zap.S().Warnf("[WS] invalid relay payload: %v", err)
		return
	}
	if env.Origin == r.origin || env.SessionID == "" {
		return
	}
	r.hub.BroadcastToSession(env.SessionID, env.Frame)
}
