package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RabbitMQPublisher implements Publisher on a durable RabbitMQ queue.
type RabbitMQPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger
}

// RabbitMQConfig contains options for creating a new RabbitMQPublisher.
type RabbitMQConfig struct {
	URL   string
	Queue string
}

// NewRabbitMQPublisher connects, opens a channel and declares the queue.
func NewRabbitMQPublisher(cfg RabbitMQConfig, logger *zap.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}

	logger.Info("Connected to RabbitMQ", zap.String("queue", cfg.Queue))
	return &RabbitMQPublisher{conn: conn, channel: ch, queue: cfg.Queue, logger: logger}, nil
}

func (p *RabbitMQPublisher) PublishSubscriptionChanged(ctx context.Context, ev SubscriptionChanged) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := publishing(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.Publish(
		"",      // exchange
		p.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", p.queue, err)
	}
	p.logger.Debug("Published subscription change",
		zap.String("queue", p.queue), zap.String("user_id", ev.UserID), zap.String("event_type", ev.EventType))
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}

func publishing(ev SubscriptionChanged) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode subscription change: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Type:         "subscription.changed",
		Timestamp:    ev.OccurredAt,
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}, nil
}

var _ Publisher = (*RabbitMQPublisher)(nil)
