// Package calculator provides in-process arithmetic and clock tools.
package calculator

import (
	"errors"
	"fmt"
	"time"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/tool"
)

// ErrDivisionByZero is returned by the divide operation.
var ErrDivisionByZero = errors.New("Division by zero")

type calculatorArgs struct {
	Operation string  `json:"operation" description:"The arithmetic operation to perform" enum:"add,subtract,multiply,divide"`
	A         float64 `json:"a" description:"First number"`
	B         float64 `json:"b" description:"Second number"`
}

// New returns the calculator tool.
func New() tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"calculator",
		"Perform basic arithmetic operations (add, subtract, multiply, divide)",
		calculatorArgs{},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			op, _ := args["operation"].(string)
			a, _ := args["a"].(float64)
			b, _ := args["b"].(float64)

			result, err := Compute(op, a, b)
			if err != nil {
				return nil, err
			}

			return fmt.Sprintf("%g", result), nil
		},
	)
}

// Compute applies op to a and b.
func Compute(op string, a, b float64) (float64, error) {
	switch op {
	case "add":
		return a + b, nil
	case "subtract":
		return a - b, nil
	case "multiply":
		return a * b, nil
	case "divide":
		if b == 0 {
			return 0, ErrDivisionByZero
		}

		return a / b, nil
	default:
		return 0, fmt.Errorf("unknown operation %q", op)
	}
}

// NewClock returns the get_time tool. now is injectable for tests; nil uses time.Now.
func NewClock(now func() time.Time) tool.Tool {
	if now == nil {
		now = time.Now
	}

	return tool.NewFunctionTool(
		"get_time",
		"Get the current date and time",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{"type": "string", "description": "IANA timezone name, defaults to UTC"},
			},
		},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			loc := time.UTC

			if tz, _ := args["timezone"].(string); tz != "" {
				l, err := time.LoadLocation(tz)
				if err != nil {
					return nil, fmt.Errorf("unknown timezone %q", tz)
				}

				loc = l
			}

			return "Current time: " + now().In(loc).Format(time.RFC3339), nil
		},
	)
}

// Tools returns every tool in the toolkit.
func Tools() []tool.Tool {
	return []tool.Tool{New(), NewClock(nil)}
}
