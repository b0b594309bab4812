// Package openai adapts the OpenAI Chat Completions API (including
// function/tool calling) to the llm.LLM interface.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/llm"
)

// Compile-time check that Model satisfies the llm.LLM interface.
var _ llm.LLM = (*Model)(nil)

// Options configure the OpenAI model adapter. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind the llm.LLM interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a new OpenAI model from an existing client
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// ProcessSinglePrompt sends one stand-alone user prompt and returns the text.
func (m *Model) ProcessSinglePrompt(ctx context.Context, prompt string) (string, error) {
	reply, err := m.ProcessChatCompletion(ctx, []core.ChatMessage{
		{Role: core.RoleUser, Content: prompt},
	}, nil)
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

// ProcessChatCompletion sends the conversation and tool definitions and
// returns the assistant's reply, including any requested tool calls.
func (m *Model) ProcessChatCompletion(
	ctx context.Context,
	messages []core.ChatMessage,
	tools []core.ToolDescriptor,
) (core.ChatMessage, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(messages),
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	if len(tools) > 0 {
		params.Tools = buildTools(tools)
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return core.ChatMessage{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return core.ChatMessage{}, fmt.Errorf("openai api: no choices returned")
	}

	ch0 := resp.Choices[0].Message
	reply := core.ChatMessage{Role: core.RoleAssistant, Content: ch0.Content}
	for _, tc := range ch0.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, core.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return reply, nil
}

// buildMessages converts conversation records into OpenAI chat messages,
// including assistant tool calls and their tool-role results.
func buildMessages(messages []core.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case core.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				},
			})
		case core.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

// buildTools converts tool descriptors to OpenAI function tool parameters.
func buildTools(tools []core.ToolDescriptor) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, desc := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        desc.Name,
				Description: openai.String(desc.Description),
				Parameters:  desc.Parameters,
			},
		}
	}
	return out
}
