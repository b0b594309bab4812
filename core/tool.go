package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolDescriptor is the serializable identity of a tool: everything a model
// or a remote process needs to offer the tool, without the callback. Live
// callbacks never enter the shared store.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"` // JSON Schema
	AgentTool   bool           `json:"agent_tool,omitempty"`
}

// OpenAIFormat returns the descriptor shaped as a Chat Completions function
// tool parameter.
func (d ToolDescriptor) OpenAIFormat() map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"parameters":  d.Parameters,
		},
	}
}

// Tool is a callable capability an agent can invoke with named parameters.
type Tool interface {
	// Descriptor returns the tool's serializable identity.
	Descriptor() ToolDescriptor

	// Exec runs the tool with the given named parameters and returns its
	// string result.
	Exec(ctx context.Context, args map[string]any) (string, error)
}

// echoTool is the behavior of a descriptor-only tool: with no callback
// registered in this process, invocation serializes the parameters back as
// the result string.
type echoTool struct {
	desc ToolDescriptor
}

// NewEchoTool wraps a descriptor in the default echo behavior. The registry
// uses it for tools whose callbacks live in another process.
func NewEchoTool(desc ToolDescriptor) Tool {
	return &echoTool{desc: desc}
}

func (t *echoTool) Descriptor() ToolDescriptor { return t.desc }

func (t *echoTool) Exec(_ context.Context, args map[string]any) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("tool %s: serialize parameters: %w", t.desc.Name, err)
	}
	return string(raw), nil
}
