package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"jobsphere/internal/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestAMQPPublisherPublishesJSON(t *testing.T) {
	t.Parallel()

	ch := &stubChannel{}
	p := newAMQPPublisher(ch, "", "notifications")

	ev := Event{UserID: 3, Type: model.NotifyJobApplication, Title: "New application"}
	if err := p.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if ch.key != "notifications" {
		t.Fatalf("unexpected routing key %q", ch.key)
	}
	if ch.msg.ContentType != "application/json" || ch.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected publishing: %+v", ch.msg)
	}
	var decoded Event
	if err := json.Unmarshal(ch.msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.UserID != 3 || decoded.Type != model.NotifyJobApplication {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}

func TestAMQPPublisherWrapsError(t *testing.T) {
	t.Parallel()

	boom := errors.New("channel closed")
	p := newAMQPPublisher(&stubChannel{err: boom}, "", "q")
	if err := p.Notify(context.Background(), Event{UserID: 1}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped publish error, got %v", err)
	}
}

// --- stubs ---

type stubChannel struct {
	key    string
	msg    amqp.Publishing
	err    error
	closed bool
}

func (c *stubChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.key = key
	c.msg = msg
	return nil
}

func (c *stubChannel) Close() error {
	c.closed = true
	return nil
}
