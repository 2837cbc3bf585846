package events

import (
	"context"
	"testing"
	"time"

	"github.com/plinkoplus/backend/internal/game"
	"github.com/streadway/amqp"
)

func TestLandingMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := game.LandingRecord{SessionID: "abc", PlayerID: 4, Nickname: "ace", Slot: 0, Multiplier: 3.8, ScoreBefore: 500, ScoreAfter: 1900, LandedAt: at}

	msg, err := landingMessage(rec)
	if err != nil {
		t.Fatal(err)
	}
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent {
		t.Errorf("unexpected headers: %+v", msg)
	}
	if !msg.Timestamp.Equal(at) {
		t.Errorf("timestamp = %v, want %v", msg.Timestamp, at)
	}

	var got game.LandingRecord
	if err := json.Unmarshal(msg.Body, &got); err != nil {
		t.Fatal(err)
	}
	if got.ScoreAfter != 1900 || got.Nickname != "ace" || got.Multiplier != 3.8 {
		t.Errorf("unexpected body %+v", got)
	}
}

func TestClosedPublisherRejects(t *testing.T) {
	p := &Publisher{exchange: "x"}
	if err := p.PublishLanding(context.Background(), game.LandingRecord{}); err == nil {
		t.Error("expected error from closed publisher")
	}
	if err := p.Close(); err != nil {
		t.Errorf("close of closed publisher: %v", err)
	}
}
