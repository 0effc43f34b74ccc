package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/internal/util"
)

// -------------------- Schema & Validation Tests --------------------

type sampleSchema struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" description:"Omit empty field"`
	D string `json:"d" enum:"x,y"`
}

func TestCreateSchema(t *testing.T) {
	schema := util.CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)

	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	assert.Equal(t, []string{"x", "y"}, props["d"].(map[string]any)["enum"])
	// Required only includes non-pointer, non-omitempty exported fields
	assert.ElementsMatch(t, []string{"a", "d"}, util.RequiredFields(schema))
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x":  map[string]any{"type": "integer"},
			"op": map[string]any{"type": "string", "enum": []string{"add", "subtract"}},
		},
		"required": []any{"x"},
	}

	assert.NoError(t, util.ValidateParameters(map[string]any{"x": 5}, schema))
	assert.NoError(t, util.ValidateParameters(map[string]any{"x": 5.0, "op": "add"}, schema))

	err := util.ValidateParameters(map[string]any{}, schema)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "x", vErr.Field)

	err = util.ValidateParameters(map[string]any{"x": "not-int"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expected type integer")

	err = util.ValidateParameters(map[string]any{"x": 1, "op": "divide"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "op", vErr.Field)
}

func TestValidateParameters_RequiredAsStringSlice(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"q": map[string]any{"type": "string"}},
		"required":   []string{"q"},
	}

	assert.Error(t, util.ValidateParameters(map[string]any{}, schema))
	assert.NoError(t, util.ValidateParameters(map[string]any{"q": "go"}, schema))
}

// -------------------- FunctionTool Tests --------------------

func sumTool() *FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	return NewFunctionTool("sum", "Add numbers", params, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})
}

func testToolContext(id string) *core.ToolContext {
	return core.NewToolContext(context.Background(), core.ToolCall{ID: id, Name: "test"}, nil)
}

func TestFunctionTool_Success(t *testing.T) {
	result, err := sumTool().Call(testToolContext("fc1"), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	_, err := sumTool().Call(testToolContext("fc2"), map[string]any{"a": 1.0})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	execTool := NewFunctionTool("fail", "Fails", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, errors.New("boom")
	})

	_, err := execTool.Call(testToolContext("fc3"), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Equal(t, "boom", toolErr.Message)
}

func TestFunctionTool_CustomCodePreserved(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	upstream := NewFunctionTool("upstream", "Calls out", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, NewToolError("upstream", "429 rate limited", CodeUpstream)
	})

	_, err := upstream.Call(testToolContext("fc4"), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeUpstream, toolErr.Code)
}

// -------------------- Registry Tests --------------------

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(sumTool())
	require.NoError(t, err)

	_, ok := reg.Lookup("sum")
	assert.True(t, ok)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)

	defs := reg.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "sum", defs[0].Function.Name)
	assert.Equal(t, "Add numbers", defs[0].Function.Description)
	assert.Equal(t, []string{"sum"}, reg.Names())
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(sumTool(), sumTool())
	assert.ErrorContains(t, err, "duplicate")

	assert.Panics(t, func() { MustRegistry(sumTool(), sumTool()) })
}

func TestRegistry_NilIsEmpty(t *testing.T) {
	var reg *Registry
	assert.Equal(t, 0, reg.Len())
	assert.Nil(t, reg.Definitions())

	_, ok := reg.Lookup("sum")
	assert.False(t, ok)
}

// -------------------- ToolError Formatting --------------------

func TestToolErrorFormatting(t *testing.T) {
	err := NewToolError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")
}
