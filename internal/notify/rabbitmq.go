package notify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tasktrack/apiserver/config"
)

// RabbitMQPublisher delivers task events over a RabbitMQ queue.
type RabbitMQPublisher struct {
	conn            *amqp.Connection
	channel         *amqp.Channel
	queueDurable    bool
	queueAutoDelete bool
}

// NewRabbitMQPublisher connects to RabbitMQ and prepares a channel.
func NewRabbitMQPublisher(cfg config.RabbitMQConfig) (*RabbitMQPublisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}

	return &RabbitMQPublisher{
		conn:            conn,
		channel:         ch,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
	}, nil
}

// Publish sends the event to the task-event queue.
func (r *RabbitMQPublisher) Publish(ctx context.Context, event TaskEvent) error {
	if _, err := r.declareQueue(); err != nil {
		return err
	}

	body, err := encodeEvent(event)
	if err != nil {
		return err
	}

	return r.channel.PublishWithContext(ctx, "", Channel, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   newMessageID(),
		Type:        event.Type,
		Body:        body,
	})
}

// Listen consumes task events until the context is cancelled. Events
// that fail to decode are dropped; broker-level failures end the loop.
func (r *RabbitMQPublisher) Listen(ctx context.Context, fn func(TaskEvent)) error {
	if _, err := r.declareQueue(); err != nil {
		return err
	}

	consumerTag := fmt.Sprintf("consumer-%s", newMessageID())
	deliveries, err := r.channel.Consume(Channel, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			event, err := decodeEvent(delivery.Body)
			if err != nil {
				_ = delivery.Nack(false, false)
				continue
			}
			fn(event)
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the underlying channel and connection.
func (r *RabbitMQPublisher) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQPublisher) declareQueue() (amqp.Queue, error) {
	return r.channel.QueueDeclare(
		Channel,
		r.queueDurable,
		r.queueAutoDelete,
		false,
		false,
		nil,
	)
}

func newMessageID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
