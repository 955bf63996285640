package service

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// QueueNotifier hands notifications to a durable RabbitMQ queue for a
// separate mail worker to deliver.
type QueueNotifier struct {
	conn    *amqp.Connection
	channel amqpChannel
	queue   string
}

func NewQueueNotifier(url, queue string) (*QueueNotifier, error) {
	const op = "service.NewQueueNotifier"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &QueueNotifier{conn: conn, channel: ch, queue: q.Name}, nil
}

func (q *QueueNotifier) Notify(ctx context.Context, m Message) error {
	const op = "service.QueueNotifier.Notify"

	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = q.channel.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (q *QueueNotifier) Close() error {
	_ = q.channel.Close()
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
