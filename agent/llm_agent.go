package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/llm"
	"github.com/hupe1980/agentgrid/logging"
)

// LLMAgentOptions configure an LLMAgent.
type LLMAgentOptions struct {
	// SystemMessage is prepended to every chat completion when set.
	SystemMessage string

	// MaxToolRounds bounds how many consecutive tool-call rounds one request
	// may trigger before the agent gives up.
	MaxToolRounds int

	// Logger receives tool invocation entries.
	Logger logging.Logger
}

// LLMAgent is a RequestHandler that answers requests with a language model,
// executing any tool calls the model asks for. The tools offered to the model
// are the chat's available tools from the shared context; their callbacks are
// resolved through the registry at call time.
type LLMAgent struct {
	model         llm.LLM
	registry      *core.Registry
	systemMessage string
	maxToolRounds int
	logger        logging.Logger
}

// NewLLMAgent constructs a model-backed request handler.
func NewLLMAgent(model llm.LLM, registry *core.Registry, optFns ...func(o *LLMAgentOptions)) *LLMAgent {
	opts := LLMAgentOptions{
		MaxToolRounds: 8,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &LLMAgent{
		model:         model,
		registry:      registry,
		systemMessage: opts.SystemMessage,
		maxToolRounds: opts.MaxToolRounds,
		logger:        opts.Logger,
	}
}

// ProcessRequest answers the request with the model, running the tool-call
// loop until the model produces plain text.
func (a *LLMAgent) ProcessRequest(ctx context.Context, req core.Message, history []core.ChatMessage) (string, error) {
	conv, err := a.registry.GetOrCreateContext(ctx, req.ContextName)
	if err != nil {
		return "", fmt.Errorf("llm agent: %w", err)
	}
	tools, err := conv.AvailableTools(ctx, req.ChatID)
	if err != nil {
		return "", fmt.Errorf("llm agent: %w", err)
	}

	// Bare requests with no shared history, no tools and no system framing
	// need no conversation scaffolding.
	if len(history) == 0 && len(tools) == 0 && a.systemMessage == "" {
		return a.model.ProcessSinglePrompt(ctx, req.Content)
	}

	messages := make([]core.ChatMessage, 0, len(history)+2)
	if a.systemMessage != "" {
		messages = append(messages, core.ChatMessage{Role: core.RoleSystem, Content: a.systemMessage})
	}
	messages = append(messages, history...)
	messages = append(messages, core.ChatMessage{Role: core.RoleUser, Content: req.Content})

	for round := 0; round < a.maxToolRounds; round++ {
		reply, err := a.model.ProcessChatCompletion(ctx, messages, tools)
		if err != nil {
			return "", fmt.Errorf("llm agent: %w", err)
		}
		if len(reply.ToolCalls) == 0 {
			return reply.Content, nil
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			result, err := a.execToolCall(ctx, conv, req.ChatID, call)
			if err != nil {
				return "", fmt.Errorf("llm agent: %w", err)
			}
			messages = append(messages, core.ChatMessage{
				Role:       core.RoleTool,
				Content:    result,
				Name:       call.Name,
				ToolCallID: call.ID,
			})
		}
	}
	return "", fmt.Errorf("llm agent: no final answer after %d tool rounds", a.maxToolRounds)
}

// execToolCall runs one model-requested tool call, keeping the chat's
// pending-call bookkeeping accurate around the invocation.
func (a *LLMAgent) execToolCall(ctx context.Context, conv *core.Context, chatID string, call core.ToolCall) (string, error) {
	tool, ok, err := a.registry.Tool(ctx, call.Name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("tool %s: not registered", call.Name)
	}

	var args map[string]any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return "", fmt.Errorf("tool %s: decode arguments: %w", call.Name, err)
		}
	}

	if err := conv.AppendRequiredToolCall(ctx, chatID, call.Name); err != nil {
		return "", err
	}
	a.logger.Debug("llm_agent.tool_call", "tool", call.Name)

	result, execErr := tool.Exec(ctx, args)

	if err := conv.RemoveRequiredToolCall(ctx, chatID, call.Name); err != nil {
		return "", err
	}
	if execErr != nil {
		return "", fmt.Errorf("tool %s: %w", call.Name, execErr)
	}
	return result, nil
}
