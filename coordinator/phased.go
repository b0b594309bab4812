package coordinator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hupe1980/agentgrid/agent"
	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/logging"
)

// PhasedOptions configure a Phased coordinator.
type PhasedOptions struct {
	// Logger receives workflow entries.
	Logger logging.Logger
}

// Phased runs agents in ordered phases over one shared chat. Every agent in
// the current phase gets the query and acknowledges its contribution; only
// when all of them have acknowledged does the next phase begin. When the last
// phase completes, the newest contribution in the shared history is sent to
// the original caller as the final response.
//
// The coordinator relies on its runtime delivering acknowledgements one at a
// time, which every transport guarantees per receiving agent. Phase
// advancement therefore never races with itself.
type Phased struct {
	registry *core.Registry
	phases   [][]string
	logger   logging.Logger
	sender   agent.Sender
}

// NewPhased constructs a coordinator driving the given phases in order; each
// phase is the list of agents that must contribute before the next starts.
func NewPhased(registry *core.Registry, phases [][]string, optFns ...func(o *PhasedOptions)) *Phased {
	opts := PhasedOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Phased{
		registry: registry,
		phases:   phases,
		logger:   opts.Logger,
	}
}

// BindSender attaches the hosting runtime's outbound side.
func (c *Phased) BindSender(s agent.Sender) { c.sender = s }

// ProcessRequest opens a new phased chat, seeds the shared history with the
// query, and fans the request out to the first phase. The coordinator itself
// contributes nothing; the final answer is sent from ProcessResponse when the
// last phase drains.
func (c *Phased) ProcessRequest(ctx context.Context, req core.Message, _ []core.ChatMessage) (string, error) {
	if len(c.phases) == 0 || len(c.phases[0]) == 0 {
		return "", fmt.Errorf("phased coordinator: no phases configured")
	}

	conv, err := c.registry.GetOrCreateContext(ctx, req.ContextName)
	if err != nil {
		return "", fmt.Errorf("phased coordinator: %w", err)
	}

	chatID := uuid.NewString()
	if err := conv.SetCollaborationType(ctx, chatID, core.CollaborationPhased); err != nil {
		return "", fmt.Errorf("phased coordinator: %w", err)
	}
	if err := conv.SetRouteResponseTo(ctx, chatID, req.Sender); err != nil {
		return "", fmt.Errorf("phased coordinator: %w", err)
	}
	if err := conv.AddQuery(ctx, chatID, req.Content); err != nil {
		return "", fmt.Errorf("phased coordinator: %w", err)
	}
	if err := conv.AppendChatMessage(ctx, chatID, core.ChatMessage{Role: core.RoleUser, Content: req.Content}); err != nil {
		return "", fmt.Errorf("phased coordinator: %w", err)
	}
	if err := conv.SetAgentPhaseAssignments(ctx, chatID, c.phases); err != nil {
		return "", fmt.Errorf("phased coordinator: %w", err)
	}
	if err := conv.SetCurrentPhase(ctx, chatID, 0); err != nil {
		return "", fmt.Errorf("phased coordinator: %w", err)
	}

	if err := c.dispatchPhase(ctx, req.ContextName, chatID, c.phases[0], req.Content); err != nil {
		return "", err
	}
	c.logger.Info("coordinator.phased_started",
		"context", req.ContextName, "chat", chatID, "phases", len(c.phases), "caller", req.Sender)
	return "", nil
}

// ProcessResponse consumes one acknowledgement: the sender is checked off the
// current phase, and when the phase drains the workflow either advances or
// finishes.
func (c *Phased) ProcessResponse(ctx context.Context, resp core.Message) error {
	if resp.Type != core.MessageTypeAck {
		c.logger.Debug("coordinator.response_ignored", "from", resp.Sender, "type", string(resp.Type))
		return nil
	}

	conv, err := c.registry.GetOrCreateContext(ctx, resp.ContextName)
	if err != nil {
		return fmt.Errorf("phased coordinator: %w", err)
	}
	if err := conv.RemoveRequiredAgentForCurrentPhase(ctx, resp.ChatID, resp.Sender); err != nil {
		return fmt.Errorf("phased coordinator: %w", err)
	}

	remaining, err := conv.RequiredAgentsForCurrentPhase(ctx, resp.ChatID)
	if err != nil {
		return fmt.Errorf("phased coordinator: %w", err)
	}
	if len(remaining) > 0 {
		return nil
	}

	next, ok, err := conv.AgentsForNextPhase(ctx, resp.ChatID)
	if err != nil {
		return fmt.Errorf("phased coordinator: %w", err)
	}
	if ok {
		query, _, err := conv.CurrentQuery(ctx, resp.ChatID)
		if err != nil {
			return fmt.Errorf("phased coordinator: %w", err)
		}
		return c.dispatchPhase(ctx, resp.ContextName, resp.ChatID, next, query)
	}
	return c.finish(ctx, conv, resp.ChatID)
}

// dispatchPhase sends the query to every agent in the phase.
func (c *Phased) dispatchPhase(ctx context.Context, contextName, chatID string, agents []string, query string) error {
	for _, name := range agents {
		msg := core.Message{
			ContextName: contextName,
			ChatID:      chatID,
			Type:        core.MessageTypeRequest,
			Content:     query,
		}
		if err := c.sender.SendRequest(ctx, msg, name); err != nil {
			return fmt.Errorf("phased coordinator: dispatch to %s: %w", name, err)
		}
	}
	c.logger.Debug("coordinator.phase_dispatched", "chat", chatID, "agents", len(agents))
	return nil
}

// finish sends the newest assistant contribution to the chat's final
// destination.
func (c *Phased) finish(ctx context.Context, conv *core.Context, chatID string) error {
	dest, ok, err := conv.RouteResponseTo(ctx, chatID)
	if err != nil {
		return fmt.Errorf("phased coordinator: %w", err)
	}
	if !ok {
		return fmt.Errorf("phased coordinator: context %s chat %s has no final destination", conv.Name(), chatID)
	}

	history, err := conv.ChatHistory(ctx, chatID)
	if err != nil {
		return fmt.Errorf("phased coordinator: %w", err)
	}
	final := ""
	for _, msg := range history {
		if msg.Role == core.RoleAssistant {
			final = msg.Content
		}
	}

	out := core.Message{
		ContextName: conv.Name(),
		ChatID:      chatID,
		Type:        core.MessageTypeResponse,
		Content:     final,
	}
	if err := c.sender.SendResponse(ctx, out, dest); err != nil {
		return fmt.Errorf("phased coordinator: %w", err)
	}
	c.logger.Info("coordinator.phased_finished", "chat", chatID, "to", dest)
	return nil
}
