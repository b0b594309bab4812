package tool

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/internal/schema"
	"github.com/hupe1980/agentgrid/store"
)

func newSumTool() *Function {
	return NewFunction(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("%v", args["a"].(float64)+args["b"].(float64)), nil
		},
	)
}

func TestFunction_Exec(t *testing.T) {
	sum := newSumTool()

	result, err := sum.Exec(context.Background(), map[string]any{"a": 1.5, "b": 2.5})
	require.NoError(t, err)
	assert.Equal(t, "4", result)
}

func TestFunction_ValidationFailure(t *testing.T) {
	sum := newSumTool()

	_, err := sum.Exec(context.Background(), map[string]any{"a": 1.5})
	require.Error(t, err)
	var fieldErr *schema.FieldError
	assert.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "b", fieldErr.Field)

	_, err = sum.Exec(context.Background(), map[string]any{"a": 1.5, "b": "two"})
	assert.Error(t, err)
}

func TestFunction_ExecutionFailure(t *testing.T) {
	boom := fmt.Errorf("boom")
	failing := NewFunction("failing", "always fails", nil,
		func(context.Context, map[string]any) (string, error) { return "", boom },
	)

	_, err := failing.Exec(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestNewFunctionFromStruct(t *testing.T) {
	type forecastArgs struct {
		City string `json:"city" description:"City to look up"`
		Days int    `json:"days,omitempty"`
	}
	forecast := NewFunctionFromStruct(
		"weather_forecast",
		"Look up tomorrow's forecast",
		forecastArgs{},
		func(_ context.Context, args map[string]any) (string, error) {
			return "sunny in " + args["city"].(string), nil
		},
	)

	desc := forecast.Descriptor()
	assert.Equal(t, "weather_forecast", desc.Name)
	assert.Equal(t, []string{"city"}, desc.Parameters["required"])

	result, err := forecast.Exec(context.Background(), map[string]any{"city": "Berlin"})
	require.NoError(t, err)
	assert.Equal(t, "sunny in Berlin", result)

	_, err = forecast.Exec(context.Background(), map[string]any{"days": 2})
	assert.Error(t, err)
}

func TestFunction_RoundTripsThroughRegistry(t *testing.T) {
	reg := core.NewRegistry(store.NewLocal())
	ctx := context.Background()

	sum := newSumTool()
	require.NoError(t, reg.RegisterTool(ctx, sum))

	resolved, ok, err := reg.Tool(ctx, "calculate_sum")
	require.NoError(t, err)
	require.True(t, ok)

	result, err := resolved.Exec(ctx, map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, "5", result)
}

func TestFunction_AgentToolFlag(t *testing.T) {
	delegate := NewFunction("ask_expert", "Delegates to the expert agent", nil,
		func(context.Context, map[string]any) (string, error) { return "", nil },
		func(o *FunctionOptions) { o.AgentTool = true },
	)
	assert.True(t, delegate.Descriptor().AgentTool)
}
