// Package tool provides ready-made core.Tool implementations. Function wraps
// a plain Go function with schema-checked arguments; every tool built here is
// registered and shared through the core.Registry like any other.
package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/internal/schema"
	"github.com/hupe1980/agentgrid/logging"
)

// FunctionOptions configure a Function tool.
type FunctionOptions struct {
	// AgentTool marks the tool as delegating to another agent in its
	// shared descriptor.
	AgentTool bool

	// Logger receives invocation entries.
	Logger logging.Logger
}

// Function exposes a plain Go function as a core.Tool. Arguments are checked
// against the declared schema before the function runs, so implementations
// can rely on required fields being present with the right JSON types.
//
// A Function has no mutable state after construction and is safe for
// concurrent use.
type Function struct {
	desc   core.ToolDescriptor
	fn     func(ctx context.Context, args map[string]any) (string, error)
	logger logging.Logger
}

// NewFunction constructs a tool from an explicit schema and function.
//
// Example:
//
//	sum := tool.NewFunction(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(_ context.Context, args map[string]any) (string, error) {
//	    return fmt.Sprintf("%v", args["a"].(float64)+args["b"].(float64)), nil
//	  },
//	)
func NewFunction(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (string, error),
	optFns ...func(o *FunctionOptions),
) *Function {
	opts := FunctionOptions{Logger: logging.NoOpLogger{}}
	for _, optFn := range optFns {
		optFn(&opts)
	}
	return &Function{
		desc: core.ToolDescriptor{
			Name:        name,
			Description: description,
			Parameters:  parameters,
			AgentTool:   opts.AgentTool,
		},
		fn:     fn,
		logger: opts.Logger,
	}
}

// NewFunctionFromStruct derives the parameter schema from a struct's exported
// fields using reflection.
//
// Example:
//
//	type forecastArgs struct {
//	  City string `json:"city" description:"City to look up"`
//	}
//
//	forecast := tool.NewFunctionFromStruct(
//	  "weather_forecast",
//	  "Look up tomorrow's forecast",
//	  forecastArgs{},
//	  func(_ context.Context, args map[string]any) (string, error) {
//	    return lookup(args["city"].(string)), nil
//	  },
//	)
func NewFunctionFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (string, error),
	optFns ...func(o *FunctionOptions),
) *Function {
	return NewFunction(name, description, schema.FromStruct(structType), fn, optFns...)
}

// Descriptor returns the tool's serializable identity.
func (t *Function) Descriptor() core.ToolDescriptor { return t.desc }

// Exec validates args against the declared schema and invokes the wrapped
// function.
func (t *Function) Exec(ctx context.Context, args map[string]any) (string, error) {
	start := time.Now()
	t.logger.Debug("tool.exec_start", "tool", t.desc.Name)

	if err := schema.Validate(args, t.desc.Parameters); err != nil {
		t.logger.Warn("tool.validation_failed", "tool", t.desc.Name, "error", err)
		return "", fmt.Errorf("tool %s: %w", t.desc.Name, err)
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		t.logger.Error("tool.exec_failed", "tool", t.desc.Name, "error", err)
		return "", fmt.Errorf("tool %s: %w", t.desc.Name, err)
	}

	t.logger.Info("tool.exec_success", "tool", t.desc.Name, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}
