package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/logging"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	// TTL is refreshed on every append. Zero keeps conversations forever.
	TTL time.Duration
	// Limit bounds Load; the list itself is trimmed to twice the limit.
	Limit  int
	Prefix string
	Logger logging.Logger
}

// RedisStore keeps each conversation in a Redis list of JSON messages.
type RedisStore struct {
	rdb    redis.Cmdable
	opts   RedisOptions
	logger *logging.GraphLogger
}

// NewRedisStore creates a RedisStore over rdb.
func NewRedisStore(rdb redis.Cmdable, optFns ...func(o *RedisOptions)) *RedisStore {
	opts := RedisOptions{
		TTL:    24 * time.Hour,
		Limit:  DefaultLimit,
		Prefix: "conversation",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}

	return &RedisStore{
		rdb:    rdb,
		opts:   opts,
		logger: logging.NewGraphLogger(opts.Logger).WithComponent("history"),
	}
}

func (s *RedisStore) key(k Key) string {
	return fmt.Sprintf("%s:%s:messages", s.opts.Prefix, k)
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, k Key) ([]core.Message, error) {
	key := s.key(k)

	rows, err := s.rdb.LRange(ctx, key, int64(-s.opts.Limit), -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		s.logger.Error("history.load.failed", "key", key, "error", err)

		return nil, fmt.Errorf("load history: %w", err)
	}

	msgs := make([]core.Message, 0, len(rows))

	for i, row := range rows {
		var m core.Message
		if err := json.Unmarshal([]byte(row), &m); err != nil {
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}

		msgs = append(msgs, m)
	}

	return Trim(msgs, s.opts.Limit), nil
}

// Append implements Store. Push, trim and expiry run in one transaction.
func (s *RedisStore) Append(ctx context.Context, k Key, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))

	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}

		values = append(values, b)
	}

	key := s.key(k)

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-2*s.opts.Limit), -1)

		if s.opts.TTL > 0 {
			pipe.Expire(ctx, key, s.opts.TTL)
		}

		return nil
	})
	if err != nil {
		s.logger.Error("history.append.failed", "key", key, "error", err)
		return fmt.Errorf("append history: %w", err)
	}

	return nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context, k Key) error {
	if err := s.rdb.Del(ctx, s.key(k)).Err(); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	return nil
}

var _ Store = (*RedisStore)(nil)
