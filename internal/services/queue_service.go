package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Notifier publishes out-of-band delivery messages.
type Notifier interface {
	Publish(ctx context.Context, message interface{}) error
}

// QueueService publishes messages to a durable RabbitMQ queue. Each publish
// dials its own connection; delivery volume here is one message per
// registration or login, not a hot path.
type QueueService struct {
	url       string
	queueName string
}

// NewQueueService creates a RabbitMQ publisher.
func NewQueueService(url, queueName string) *QueueService {
	return &QueueService{url: url, queueName: queueName}
}

// Publish sends one persistent JSON message to the queue.
func (s *QueueService) Publish(ctx context.Context, message interface{}) error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(s.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %q: %w", s.queueName, err)
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", s.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		log.Printf("[Queue] Failed to publish to %q: %v", s.queueName, err)
		return fmt.Errorf("publish to queue %q: %w", s.queueName, err)
	}

	return nil
}
