package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/internal/testutil"
)

func TestTrim(t *testing.T) {
	conv := testutil.NewConversation().
		User("what is 2+3?").
		ToolCall("calculator", `{"operation":"add","a":2,"b":3}`).
		ToolResult("5").
		Assistant("5").
		User("and times 2?").
		Assistant("10").
		Build()

	tests := []struct {
		name  string
		limit int
		first string
		n     int
	}{
		{name: "no limit", limit: 0, first: "what is 2+3?", n: 6},
		{name: "window starts at user", limit: 2, first: "and times 2?", n: 2},
		{name: "window inside tool round", limit: 4, first: "and times 2?", n: 2},
		{name: "everything fits", limit: 10, first: "what is 2+3?", n: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Trim(conv, tt.limit)
			require.Len(t, got, tt.n)
			assert.Equal(t, tt.first, got[0].Content)
		})
	}

	assert.Empty(t, Trim(testutil.NewConversation().Assistant("hello").Build(), 5))
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	ctx := context.Background()
	alice := Key{UserID: "user_001", Agent: "supervisor"}
	bob := Key{UserID: "user_002", Agent: "supervisor"}

	msgs, err := s.Load(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, s.Append(ctx, alice, core.NewUserMessage("hi"), core.NewAssistantMessage("hello")))
	require.NoError(t, s.Append(ctx, alice, core.NewUserMessage("again")))
	require.NoError(t, s.Append(ctx, bob, core.NewUserMessage("bob here")))
	require.NoError(t, s.Append(ctx, bob))

	msgs, err = s.Load(ctx, alice)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "again", msgs[2].Content)

	msgs, err = s.Load(ctx, bob)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, s.Clear(ctx, alice))

	msgs, err = s.Load(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = s.Load(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "clearing one conversation keeps the others")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0))
}

func TestMemoryStore_Limit(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	key := Key{Agent: "simple"}

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, s.Append(ctx, key, core.NewUserMessage(text), core.NewAssistantMessage("ok")))
	}

	msgs, err := s.Load(ctx, key)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "three", msgs[0].Content)

	msgs[0].Content = "mutated"
	again, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "three", again[0].Content)
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "user_001:supervisor", Key{UserID: "user_001", Agent: "supervisor"}.String())
	assert.Equal(t, "anonymous:simple", Key{Agent: "simple"}.String())
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	prefix := "test-" + core.NewID()

	s := NewRedisStore(rdb, func(o *RedisOptions) {
		o.Prefix = prefix
		o.TTL = time.Minute
	})

	exerciseStore(t, s)

	ttl, err := rdb.TTL(context.Background(), s.key(Key{UserID: "user_002", Agent: "supervisor"})).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
