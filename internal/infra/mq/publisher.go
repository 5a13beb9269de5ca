// File: internal/infra/mq/publisher.go
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"brontie-core/internal/domain/ports/adapter"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

var _ adapter.EventPublisher = (*EventProducer)(nil)
var _ adapter.EventPublisher = (*NoopProducer)(nil)

// EventProducer publishes domain events to a topic exchange.
type EventProducer struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	log      *zerolog.Logger
}

// NoopProducer is used when RabbitMQ is unavailable or unconfigured, so the
// service keeps serving checkouts and payouts without an event bus.
type NoopProducer struct {
	log *zerolog.Logger
}

func NewNoopProducer(logger *zerolog.Logger) *NoopProducer {
	return &NoopProducer{log: logger}
}

func (p *NoopProducer) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	p.log.Debug().Str("routing_key", routingKey).Msg("event bus disabled; dropping event")
	return nil
}

func (p *NoopProducer) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

func NewEventProducer(amqpURL, exchange string, logger *zerolog.Logger) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &EventProducer{conn: conn, channel: ch, exchange: exchange, log: logger}, nil
}

func (p *EventProducer) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel not initialized")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
	if err != nil {
		p.log.Warn().Err(err).Str("routing_key", routingKey).Msg("publish failed")
	}
	return err
}

func (p *EventProducer) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
