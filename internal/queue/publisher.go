// Package queue publishes domain events to RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"plus-api/internal/model"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultGrantedQueue receives one message per newly granted cosmetic.
const DefaultGrantedQueue = "cosmetics.granted"

// Publisher publishes grant events to a durable queue. The connection is
// opened lazily and re-dialed after the broker drops it.
type Publisher struct {
	url    string
	queue  string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher creates a publisher. No connection is made until the first publish.
func NewPublisher(url, queue string, logger *zap.Logger) *Publisher {
	if queue == "" {
		queue = DefaultGrantedQueue
	}
	return &Publisher{url: url, queue: queue, logger: logger}
}

// channel returns an open channel, dialing and declaring the queue if needed.
// Caller holds p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
	}

	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		ch.Close()
		return nil, fmt.Errorf("rabbitmq queue declare failed: %w", err)
	}

	p.ch = ch
	return ch, nil
}

// PublishGranted publishes each event as a persistent JSON message.
func (p *Publisher) PublishGranted(ctx context.Context, events []model.GrantEvent) error {
	if len(events) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	for _, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal grant event: %w", err)
		}

		pub := amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         "cosmetic.granted",
			Body:         body,
		}
		if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
			return fmt.Errorf("rabbitmq publish failed: %w", err)
		}
	}

	p.logger.Debug("published grant events", zap.Int("count", len(events)), zap.String("queue", p.queue))
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
