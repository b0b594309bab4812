package coordinator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hupe1980/agentgrid/agent"
	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/logging"
)

// SequentialOptions configure a Sequential coordinator.
type SequentialOptions struct {
	// Logger receives workflow entries.
	Logger logging.Logger
}

// Sequential starts one chain execution per inbound request: it opens a fresh
// chat, stamps it sequential, records the chain and the final destination,
// and hands the request to the first agent. From there the chain routes
// itself; the terminal response goes directly to the original requester
// without passing back through the coordinator.
type Sequential struct {
	registry *core.Registry
	agents   []string
	logger   logging.Logger
	sender   agent.Sender
}

// NewSequential constructs a coordinator driving the given agents in order.
func NewSequential(registry *core.Registry, agents []string, optFns ...func(o *SequentialOptions)) *Sequential {
	opts := SequentialOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Sequential{
		registry: registry,
		agents:   agents,
		logger:   opts.Logger,
	}
}

// BindSender attaches the hosting runtime's outbound side.
func (c *Sequential) BindSender(s agent.Sender) { c.sender = s }

// ProcessRequest opens a new chat and kicks the chain off. It always returns
// an empty contribution: the chain's last agent answers the caller directly.
func (c *Sequential) ProcessRequest(ctx context.Context, req core.Message, _ []core.ChatMessage) (string, error) {
	if len(c.agents) == 0 {
		return "", fmt.Errorf("sequential coordinator: no agents configured")
	}

	conv, err := c.registry.GetOrCreateContext(ctx, req.ContextName)
	if err != nil {
		return "", fmt.Errorf("sequential coordinator: %w", err)
	}

	chatID := uuid.NewString()
	if err := conv.SetCollaborationType(ctx, chatID, core.CollaborationSequential); err != nil {
		return "", fmt.Errorf("sequential coordinator: %w", err)
	}
	if err := conv.SetAgentSequence(ctx, chatID, c.agents); err != nil {
		return "", fmt.Errorf("sequential coordinator: %w", err)
	}
	if err := conv.SetRouteResponseTo(ctx, chatID, req.Sender); err != nil {
		return "", fmt.Errorf("sequential coordinator: %w", err)
	}
	if err := conv.AddQuery(ctx, chatID, req.Content); err != nil {
		return "", fmt.Errorf("sequential coordinator: %w", err)
	}

	kickoff := core.Message{
		ContextName: req.ContextName,
		ChatID:      chatID,
		Type:        core.MessageTypeRequest,
		Content:     req.Content,
	}
	if err := c.sender.SendRequest(ctx, kickoff, c.agents[0]); err != nil {
		return "", fmt.Errorf("sequential coordinator: %w", err)
	}

	c.logger.Info("coordinator.sequential_started",
		"context", req.ContextName, "chat", chatID, "first", c.agents[0], "caller", req.Sender)
	return "", nil
}
