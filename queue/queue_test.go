package queue

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordo-ai/agentgraph/core"
)

// collect consumes until n ids arrived and returns them sorted.
func collect(t *testing.T, q Queue, n int) []string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		mu  sync.Mutex
		ids []string
	)

	done := make(chan error, 1)

	go func() {
		done <- q.Consume(ctx, 3, func(_ context.Context, id string) error {
			mu.Lock()
			defer mu.Unlock()

			ids = append(ids, id)
			if len(ids) == n {
				cancel()
			}

			return nil
		})
	}()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	mu.Lock()
	defer mu.Unlock()

	sort.Strings(ids)

	return ids
}

func TestMemoryQueue(t *testing.T) {
	q := NewMemoryQueue(8)

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, q.Publish(context.Background(), id))
	}

	assert.Equal(t, []string{"a", "b", "c"}, collect(t, q, 3))

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Publish(context.Background(), "d"), ErrClosed)
}

func TestMemoryQueue_ConsumeEndsWhenClosed(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Publish(context.Background(), "only"))
	require.NoError(t, q.Close())

	var seen []string

	err := q.Consume(context.Background(), 1, func(_ context.Context, id string) error {
		seen = append(seen, id)
		return errors.New("ignored")
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, seen)
}

func TestMemoryQueue_PublishRespectsContext(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Publish(context.Background(), "fills the buffer"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, q.Publish(ctx, "blocked"), context.DeadlineExceeded)
}

func TestRedisQueue(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	q := NewRedisQueue(redis.NewClient(opts), "test-jobs-"+core.NewID())
	t.Cleanup(func() { _ = q.Close() })

	for _, id := range []string{"2", "1"} {
		require.NoError(t, q.Publish(context.Background(), id))
	}

	assert.Equal(t, []string{"1", "2"}, collect(t, q, 2))
}

func TestRabbitMQQueue(t *testing.T) {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		t.Skip("RABBITMQ_URL not set")
	}

	q, err := DialRabbitMQ(url, func(o *RabbitMQOptions) {
		o.Queue = "test-jobs-" + core.NewID()
		o.Durable = false
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	for _, id := range []string{"y", "x"} {
		require.NoError(t, q.Publish(context.Background(), id))
	}

	assert.Equal(t, []string{"x", "y"}, collect(t, q, 2))
}

func TestDialRabbitMQ_RequiresURL(t *testing.T) {
	_, err := DialRabbitMQ("")
	assert.Error(t, err)
}
