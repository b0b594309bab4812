package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/logging"
)

// Sender is the outbound half of a runtime, as seen by the routing layer.
// Both send methods carry the runtime's side effects: stamping the sender,
// recording participation and tracing the message.
type Sender interface {
	// Name returns the sending agent's unique name.
	Name() string

	// SendRequest dispatches a REQUEST to the named agent.
	SendRequest(ctx context.Context, msg core.Message, destAgentName string) error

	// SendResponse dispatches a RESPONSE or ACK to the named agent.
	SendResponse(ctx context.Context, msg core.Message, destAgentName string) error
}

// ControllerOptions configure a Controller.
type ControllerOptions struct {
	// Logger receives routing diagnostics.
	Logger logging.Logger
}

// Controller implements the collaboration-mode state machine every agent
// routes through. It decides what history a handler may see and where the
// handler's response goes:
//
//   - PHASED and CHAT: the response is appended to the shared chat history
//     and acknowledged back to the requester; nothing is forwarded.
//   - SEQUENTIAL: the response becomes the request for the next agent in the
//     sequence, or the terminal RESPONSE to the chat's final destination when
//     this agent is last.
//   - INDEPENDENT (the default): the response goes straight back to the
//     requester.
type Controller struct {
	logger logging.Logger
}

// NewController constructs a Controller.
func NewController(optFns ...func(o *ControllerOptions)) *Controller {
	opts := ControllerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Controller{logger: opts.Logger}
}

// History returns the conversation records a handler may see for the given
// mode. Only phased and chat collaboration share history; in every other
// mode agents work from the request content alone.
func (c *Controller) History(ctx context.Context, conv *core.Context, chatID string, mode core.CollaborationType) ([]core.ChatMessage, error) {
	switch mode {
	case core.CollaborationPhased, core.CollaborationChat:
		return conv.ChatHistory(ctx, chatID)
	default:
		return nil, nil
	}
}

// Route dispatches an agent's response according to the chat's collaboration
// mode. req is the request being answered; response is the handler's output.
func (c *Controller) Route(
	ctx context.Context,
	s Sender,
	conv *core.Context,
	req core.Message,
	mode core.CollaborationType,
	response string,
) error {
	out := core.Message{
		ContextName: conv.Name(),
		ChatID:      req.ChatID,
		Content:     response,
	}

	switch mode {
	case core.CollaborationPhased, core.CollaborationChat:
		record := core.ChatMessage{Role: core.RoleAssistant, Content: response}
		if err := conv.AppendChatMessage(ctx, req.ChatID, record); err != nil {
			return fmt.Errorf("route %s response: %w", mode, err)
		}
		out.Type = core.MessageTypeAck
		c.logger.Debug("controller.ack", "agent", s.Name(), "to", req.Sender, "mode", string(mode))
		return s.SendResponse(ctx, out, req.Sender)

	case core.CollaborationSequential:
		next, ok, err := conv.NextAgentInSequence(ctx, req.ChatID, s.Name())
		if err != nil {
			return fmt.Errorf("route sequential response: %w", err)
		}
		if ok {
			out.Type = core.MessageTypeRequest
			c.logger.Debug("controller.forward", "agent", s.Name(), "to", next)
			return s.SendRequest(ctx, out, next)
		}
		dest, ok, err := conv.RouteResponseTo(ctx, req.ChatID)
		if err != nil {
			return fmt.Errorf("route sequential response: %w", err)
		}
		if !ok {
			return fmt.Errorf("route sequential response: context %s chat %s has no final destination", conv.Name(), req.ChatID)
		}
		out.Type = core.MessageTypeResponse
		c.logger.Debug("controller.finish", "agent", s.Name(), "to", dest)
		return s.SendResponse(ctx, out, dest)

	default:
		out.Type = core.MessageTypeResponse
		c.logger.Debug("controller.reply", "agent", s.Name(), "to", req.Sender)
		return s.SendResponse(ctx, out, req.Sender)
	}
}
