package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// RedisQueue is a Redis list: LPUSH to publish, BRPOP to consume.
type RedisQueue struct {
	client *redis.Client
	key    string
	wait   time.Duration
}

// NewRedisQueue uses client, which the queue owns from now on.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "agentgraph.jobs"
	}

	return &RedisQueue{client: client, key: key, wait: 5 * time.Second}
}

// Publish implements Queue.
func (q *RedisQueue) Publish(ctx context.Context, id string) error {
	if err := q.client.LPush(ctx, q.key, id).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}

	return nil
}

// Consume implements Queue. A failed handler pushes the id back once the
// error is not caused by cancellation.
func (q *RedisQueue) Consume(ctx context.Context, workers int, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)

	for range workers {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}

				values, err := q.client.BRPop(ctx, q.wait, q.key).Result()
				if err != nil {
					if errors.Is(err, redis.Nil) {
						continue
					}

					if ctx.Err() != nil {
						return ctx.Err()
					}

					return fmt.Errorf("redis consume: %w", err)
				}

				if len(values) != 2 {
					continue
				}

				if err := handler(ctx, values[1]); err != nil && ctx.Err() == nil {
					_ = q.client.RPush(ctx, q.key, values[1]).Err()
				}
			}
		})
	}

	return g.Wait()
}

// Close implements Queue.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

var _ Queue = (*RedisQueue)(nil)
