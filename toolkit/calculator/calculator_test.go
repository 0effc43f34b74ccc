package calculator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/tool"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		op      string
		a, b    float64
		want    float64
		wantErr bool
	}{
		{"add", 2, 3, 5, false},
		{"subtract", 2, 3, -1, false},
		{"multiply", 2, 3, 6, false},
		{"divide", 6, 3, 2, false},
		{"divide", 1, 0, 0, true},
		{"modulo", 1, 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			got, err := Compute(tt.op, tt.a, tt.b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculatorThroughExecutor(t *testing.T) {
	exec := tool.NewExecutor(tool.MustRegistry(Tools()...))

	res := exec.Execute(context.Background(), core.ToolCall{ID: "1", Name: "calculator", Arguments: `{"operation":"multiply","a":6,"b":7}`})
	assert.Equal(t, "42", res.Content)

	res = exec.Execute(context.Background(), core.ToolCall{ID: "2", Name: "calculator", Arguments: `{"operation":"divide","a":1,"b":0}`})
	assert.Equal(t, "Error: Division by zero", res.Content)

	res = exec.Execute(context.Background(), core.ToolCall{ID: "3", Name: "calculator", Arguments: `{"operation":"pow","a":1,"b":0}`})
	assert.True(t, res.IsError)
}

func TestClock(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	exec := tool.NewExecutor(tool.MustRegistry(NewClock(func() time.Time { return fixed })))

	res := exec.Execute(context.Background(), core.ToolCall{ID: "1", Name: "get_time"})
	assert.Equal(t, "Current time: 2025-01-02T03:04:05Z", res.Content)

	res = exec.Execute(context.Background(), core.ToolCall{ID: "2", Name: "get_time", Arguments: `{"timezone":"Nowhere/Land"}`})
	assert.True(t, res.IsError)
}
