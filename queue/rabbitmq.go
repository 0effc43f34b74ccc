package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQOptions configures a RabbitMQQueue.
type RabbitMQOptions struct {
	Queue    string
	Prefetch int
	Durable  bool
}

// RabbitMQQueue publishes to a named queue through the default exchange
// and consumes with manual acks.
type RabbitMQQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// DialRabbitMQ connects to url and declares the queue.
func DialRabbitMQ(url string, optFns ...func(o *RabbitMQOptions)) (*RabbitMQQueue, error) {
	opts := RabbitMQOptions{Queue: "agentgraph.jobs", Prefetch: 8, Durable: true}

	for _, fn := range optFns {
		fn(&opts)
	}

	if url == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if opts.Prefetch > 0 {
		if err := ch.Qos(opts.Prefetch, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()

			return nil, fmt.Errorf("set rabbitmq qos: %w", err)
		}
	}

	if _, err := ch.QueueDeclare(opts.Queue, opts.Durable, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, fmt.Errorf("declare rabbitmq queue: %w", err)
	}

	return &RabbitMQQueue{conn: conn, ch: ch, queue: opts.Queue}, nil
}

// Publish implements Queue.
func (q *RabbitMQQueue) Publish(ctx context.Context, id string) error {
	return q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "text/plain",
		DeliveryMode: amqp.Persistent,
		Body:         []byte(id),
	})
}

// Consume implements Queue. Failed deliveries are requeued once; a
// redelivered message that fails again is dropped.
func (q *RabbitMQQueue) Consume(ctx context.Context, workers int, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}

	msgs, err := q.ch.ConsumeWithContext(ctx, q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume rabbitmq queue: %w", err)
	}

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-msgs:
					if !ok {
						return
					}

					if err := handler(ctx, string(msg.Body)); err != nil {
						_ = msg.Nack(false, !msg.Redelivered)
						continue
					}

					_ = msg.Ack(false)
				}
			}
		}()
	}

	wg.Wait()

	return ctx.Err()
}

// Close implements Queue.
func (q *RabbitMQQueue) Close() error {
	_ = q.ch.Close()
	return q.conn.Close()
}

var _ Queue = (*RabbitMQQueue)(nil)
