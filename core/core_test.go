package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordo-ai/agentgraph/logging"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"user", RoleUser, false},
		{"Human", RoleUser, false},
		{"assistant", RoleAssistant, false},
		{"ai", RoleAssistant, false},
		{"tool", RoleTool, false},
		{" system ", RoleSystem, false},
		{"robot", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_UnmarshalJSONAlias(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"ai","content":"hi"}`), &m))
	assert.Equal(t, RoleAssistant, m.Role)
	assert.Equal(t, "hi", m.Content)
}

func TestToolCall_Args(t *testing.T) {
	args, err := ToolCall{Name: "calc", Arguments: `{"a":1,"b":"x"}`}.Args()
	require.NoError(t, err)
	assert.Equal(t, float64(1), args["a"])
	assert.Equal(t, "x", args["b"])

	args, err = ToolCall{Name: "calc"}.Args()
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = ToolCall{Name: "calc", Arguments: `{oops`}.Args()
	assert.Error(t, err)
}

func TestLastUserText(t *testing.T) {
	msgs := []Message{
		NewUserMessage("first"),
		NewAssistantMessage("reply"),
		NewUserMessage("second"),
		NewAssistantMessage("Delegating to github worker..."),
	}

	assert.Equal(t, "second", LastUserText(msgs))
	assert.Equal(t, "", LastUserText(nil))

	last, ok := LastMessage(msgs)
	require.True(t, ok)
	assert.Equal(t, RoleAssistant, last.Role)
}

func TestCloneMessages_DoesNotShareToolCalls(t *testing.T) {
	orig := []Message{NewAssistantMessage("", ToolCall{ID: "1", Name: "a"})}
	cp := CloneMessages(orig)
	cp[0].ToolCalls[0].Name = "changed"

	assert.Equal(t, "a", orig[0].ToolCalls[0].Name)
}

func TestNonConvergenceError(t *testing.T) {
	var err error = &NonConvergenceError{Graph: "tool_loop", MaxSteps: 3, LastNode: "agent"}
	wrapped := fmt.Errorf("run: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotConverged))
	assert.True(t, IsNotConverged(wrapped))
	assert.Contains(t, err.Error(), "step budget of 3")

	var nce *NonConvergenceError
	require.True(t, errors.As(wrapped, &nce))
	assert.Equal(t, "agent", nce.LastNode)
}

func TestProviderError(t *testing.T) {
	assert.Nil(t, NewProviderError("openai", "gpt", nil))

	base := errors.New("connection reset")
	err := NewProviderError("openai", "gpt-4o-mini", base)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "provider openai (gpt-4o-mini): connection reset", err.Error())
}

func TestToolErrors(t *testing.T) {
	assert.Equal(t, "Tool missing not found", (&ToolNotFoundError{Name: "missing"}).Error())

	base := errors.New("boom")
	err := &ToolExecutionError{Name: "calc", Err: base}
	assert.ErrorIs(t, err, base)
}

func TestStepLimiter(t *testing.T) {
	l := NewStepLimiter(2)
	assert.True(t, l.Increment())
	assert.Equal(t, 1, l.Remaining())
	assert.True(t, l.Increment())
	assert.False(t, l.Increment())
	assert.Equal(t, 3, l.Count())
	assert.Equal(t, 0, l.Remaining())

	unlimited := NewStepLimiter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.Increment())
	}

	assert.Equal(t, -1, unlimited.Remaining())
}

func TestToolContext(t *testing.T) {
	ctx := WithUserID(context.Background(), "user_001")
	tc := NewToolContext(ctx, ToolCall{ID: "call-1", Name: "github_star_repo"}, nil)

	assert.Equal(t, "call-1", tc.CallID())
	assert.Equal(t, "github_star_repo", tc.ToolName())
	assert.Equal(t, "user_001", tc.UserID())
	assert.NotNil(t, tc.Logger())
	assert.NotEmpty(t, NewID())
}

func TestToolContext_LoggerIsScoped(t *testing.T) {
	var buf bytes.Buffer

	logger := logging.NewZerologLogger(logging.Config{Level: logging.LogLevelDebug, Format: "json", Output: &buf})
	ctx := WithUserID(context.Background(), "user_002")

	NewToolContext(ctx, ToolCall{ID: "call-7", Name: "tavily_search"}, logger).Logger().Info("tool.quota")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "tool", entry["component"])
	assert.Equal(t, "tavily_search", entry["tool_name"])
	assert.Equal(t, "call-7", entry["call_id"])
	assert.Equal(t, "user_002", entry["user_id"])
}
