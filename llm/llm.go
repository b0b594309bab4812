// Package llm defines the language model contract agents program against.
// Provider adapters live in the subpackages (openai, anthropic); agents and
// coordinators depend only on the LLM interface so providers stay swappable.
package llm

import (
	"context"

	"github.com/hupe1980/agentgrid/core"
)

// LLM is a chat-capable language model. Implementations must be safe for
// concurrent use.
type LLM interface {
	// ProcessSinglePrompt sends one stand-alone prompt, with no history or
	// tools, and returns the model's text.
	ProcessSinglePrompt(ctx context.Context, prompt string) (string, error)

	// ProcessChatCompletion sends a full conversation and the tools offered
	// to the model. The returned message carries either assistant text or
	// tool calls the caller must execute and feed back.
	ProcessChatCompletion(ctx context.Context, messages []core.ChatMessage, tools []core.ToolDescriptor) (core.ChatMessage, error)
}
