package runlog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordo-ai/agentgraph/core"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	ctx := context.Background()
	user := "user-" + core.NewID()

	first := &Run{ID: core.NewID(), UserID: user, Agent: "supervisor", Status: StatusQueued, Input: "search for AI news"}
	require.NoError(t, s.Create(ctx, first))
	assert.False(t, first.CreatedAt.IsZero())

	assert.ErrorIs(t, s.Create(ctx, &Run{ID: first.ID, Agent: "supervisor", Status: StatusQueued}), ErrConflict)

	claimed, err := s.Claim(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, claimed.Status)

	_, err = s.Claim(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotClaimable)

	_, err = s.Claim(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	claimed.Status = StatusCompleted
	claimed.Response = "Found 3 articles."
	claimed.Steps = 4
	claimed.ToolCalls = 1
	require.NoError(t, s.Finish(ctx, claimed))

	got, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "Found 3 articles.", got.Response)
	assert.Equal(t, 4, got.Steps)
	assert.Equal(t, 1, got.ToolCalls)
	assert.Equal(t, "search for AI news", got.Input)

	time.Sleep(2 * time.Millisecond)

	second := &Run{ID: core.NewID(), UserID: user, Agent: "simple", Status: StatusRunning, Input: "hi"}
	require.NoError(t, s.Create(ctx, second))

	second.Status = StatusNotConverged
	second.Error = "run did not converge"
	require.NoError(t, s.Finish(ctx, second))

	runs, err := s.List(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "newest first")
	assert.Equal(t, StatusNotConverged, runs[0].Status)

	runs, err = s.List(ctx, user, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Finish(ctx, &Run{ID: "missing", Status: StatusFailed}), ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusNotConverged.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN not set")
	}

	s, err := OpenMySQL(context.Background(), dsn, func(o *MySQLOptions) { o.Table = "agent_runs_test" })
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)
}

func TestOpenMySQL_RequiresDSN(t *testing.T) {
	_, err := OpenMySQL(context.Background(), " ")
	assert.ErrorContains(t, err, "dsn is required")
}
