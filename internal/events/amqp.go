// Package events publishes landed rounds to a message broker.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/plinkoplus/backend/internal/game"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RoutingKeyLanded is the routing key of landed-round messages.
const RoutingKeyLanded = "round.landed"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Publisher sends landed rounds to a topic exchange.
type Publisher struct {
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	zap.S().Infof("[AMQP] publishing rounds to exchange %s", exchange)
	return &Publisher{exchange: exchange, conn: conn, ch: ch}, nil
}

// PublishLanding implements game.LandingPublisher.
func (p *Publisher) PublishLanding(ctx context.Context, rec game.LandingRecord) error {
	msg, err := landingMessage(rec)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return fmt.Errorf("publisher closed")
	}
	return p.ch.Publish(p.exchange, RoutingKeyLanded, false, false, msg)
}

// Close shuts the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	p.ch.Close()
	err := p.conn.Close()
	p.ch, p.conn = nil, nil
	return err
}

func landingMessage(rec game.LandingRecord) (amqp.Publishing, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode landing: %w", err)
	}
	ts := rec.LandedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    ts,
		MessageId:    fmt.Sprintf("%s:%d", rec.SessionID, ts.UnixNano()),
	}, nil
}
