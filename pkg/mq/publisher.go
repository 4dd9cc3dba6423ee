// Package mq forwards domain events to a RabbitMQ topic exchange so other
// systems (fulfilment, notifications) can react to orders and bookings.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shashiranjanraj/studio/pkg/besteffort"
	"github.com/shashiranjanraj/studio/pkg/event"
)

// Exchange is the topic exchange events are published to.
const Exchange = "studio.events"

type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// PublishJSON publishes v under the routing key.
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         b,
	})
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// JSONPublisher is the part of Publisher used by Forward.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Forward publishes every named event from bus, using the event name as the
// routing key. Publish failures are logged and counted, never propagated.
func Forward(bus *event.Bus, pub JSONPublisher, timeout time.Duration, names ...string) {
	bus.Listen(func(ctx context.Context, name string, payload interface{}) {
		besteffort.Run(ctx, "mq.publish", func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return pub.PublishJSON(ctx, name, payload)
		}, "event", name)
	}, names...)
}
