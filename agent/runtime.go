package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/logging"
)

// Options configure a Runtime.
type Options struct {
	// Controller overrides the default collaboration routing.
	Controller *Controller

	// Logger receives lifecycle and processing entries.
	Logger logging.Logger
}

// Runtime turns a RequestHandler into a live agent: it registers the agent's
// name in the shared directory, attaches it to a transport, and runs every
// inbound request through the collaboration state machine. One Runtime hosts
// exactly one agent.
type Runtime struct {
	name        string
	description string
	handler     RequestHandler
	transport   core.Transport
	registry    *core.Registry
	controller  *Controller
	logger      logging.Logger

	mu      sync.Mutex
	running bool
}

// New constructs a runtime for the named agent. The name must be unique
// across every process sharing the registry's store; Start enforces this.
func New(
	name, description string,
	handler RequestHandler,
	transport core.Transport,
	registry *core.Registry,
	optFns ...func(o *Options),
) *Runtime {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Controller == nil {
		opts.Controller = NewController(func(o *ControllerOptions) { o.Logger = opts.Logger })
	}
	r := &Runtime{
		name:        name,
		description: description,
		handler:     handler,
		transport:   transport,
		registry:    registry,
		controller:  opts.Controller,
		logger:      opts.Logger,
	}
	if binder, ok := handler.(SenderBinder); ok {
		binder.BindSender(r)
	}
	return r
}

// Name returns the agent's unique name.
func (r *Runtime) Name() string { return r.name }

// Description returns the agent's registered description.
func (r *Runtime) Description() string { return r.description }

// Start registers the agent and begins receiving messages. Registration
// happens first: when the name is already taken the agent does not start and
// the directory is left untouched.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("agent %s: already started", r.name)
	}

	if err := r.registry.RegisterAgent(ctx, r.name, r.description); err != nil {
		return fmt.Errorf("agent %s: %w", r.name, err)
	}

	r.transport.SetCallbacks(core.TransportCallbacks{
		OnRequest:  r.handleRequest,
		OnResponse: r.handleResponse,
		OnEvent:    r.handleEvent,
		OnError:    r.handleError,
	})
	if err := r.transport.Start(ctx); err != nil {
		_ = r.registry.UnregisterAgent(ctx, r.name)
		return fmt.Errorf("agent %s: %w", r.name, err)
	}

	r.running = true
	r.logger.Info("agent.started", "agent", r.name)
	return nil
}

// Stop detaches the agent from its transport and then frees its name in the
// directory. Stopping an agent that never started is a no-op.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}

	if err := r.transport.Stop(ctx); err != nil {
		return fmt.Errorf("agent %s: %w", r.name, err)
	}
	if err := r.registry.UnregisterAgent(ctx, r.name); err != nil {
		return fmt.Errorf("agent %s: %w", r.name, err)
	}

	r.running = false
	r.logger.Info("agent.stopped", "agent", r.name)
	return nil
}

// SendRequest stamps, records and dispatches a REQUEST to the named agent.
// The message's type defaults to REQUEST when unset.
func (r *Runtime) SendRequest(ctx context.Context, msg core.Message, destAgentName string) error {
	if msg.Type == "" {
		msg.Type = core.MessageTypeRequest
	}
	return r.send(ctx, msg, destAgentName, r.transport.SendRequest)
}

// SendResponse stamps, records and dispatches a RESPONSE (or ACK) to the
// named agent. The message's type defaults to RESPONSE when unset.
func (r *Runtime) SendResponse(ctx context.Context, msg core.Message, destAgentName string) error {
	if msg.Type == "" {
		msg.Type = core.MessageTypeResponse
	}
	return r.send(ctx, msg, destAgentName, r.transport.SendResponse)
}

// send applies the unconditional outbound side effects: the sender is
// stamped, the destination context is resolved (created if new), this agent
// joins its participants, and the message is traced after dispatch succeeds.
func (r *Runtime) send(
	ctx context.Context,
	msg core.Message,
	destAgentName string,
	dispatch func(ctx context.Context, msg core.Message, destAgentName string) error,
) error {
	msg.Sender = r.name

	conv, err := r.registry.GetOrCreateContext(ctx, msg.ContextName)
	if err != nil {
		return fmt.Errorf("agent %s: send to %s: %w", r.name, destAgentName, err)
	}
	if err := conv.AddParticipant(ctx, r.name); err != nil {
		return fmt.Errorf("agent %s: send to %s: %w", r.name, destAgentName, err)
	}

	if err := dispatch(ctx, msg, destAgentName); err != nil {
		return fmt.Errorf("agent %s: send to %s: %w", r.name, destAgentName, err)
	}

	if err := conv.Trace(ctx, msg); err != nil {
		return fmt.Errorf("agent %s: send to %s: %w", r.name, destAgentName, err)
	}
	r.logger.Debug("agent.sent", "agent", r.name, "to", destAgentName, "type", string(msg.Type))
	return nil
}

// handleRequest runs one inbound request through the processing pipeline:
// resolve the context, join it, look up the chat's collaboration mode, gather
// the history that mode allows, invoke the handler, and route its response.
func (r *Runtime) handleRequest(ctx context.Context, req core.Message) {
	conv, err := r.registry.GetOrCreateContext(ctx, req.ContextName)
	if err != nil {
		r.fail(ctx, fmt.Errorf("agent %s: handle request: %w", r.name, err))
		return
	}
	if err := conv.AddParticipant(ctx, r.name); err != nil {
		r.fail(ctx, fmt.Errorf("agent %s: handle request: %w", r.name, err))
		return
	}

	mode, err := conv.CollaborationType(ctx, req.ChatID)
	if err != nil {
		r.fail(ctx, fmt.Errorf("agent %s: handle request: %w", r.name, err))
		return
	}
	history, err := r.controller.History(ctx, conv, req.ChatID, mode)
	if err != nil {
		r.fail(ctx, fmt.Errorf("agent %s: handle request: %w", r.name, err))
		return
	}

	response, err := r.handler.ProcessRequest(ctx, req, history)
	if err != nil {
		r.fail(ctx, fmt.Errorf("agent %s: process request from %s: %w", r.name, req.Sender, err))
		return
	}
	if response == "" {
		r.logger.Debug("agent.no_response", "agent", r.name, "from", req.Sender)
		return
	}

	if err := r.controller.Route(ctx, r, conv, req, mode, response); err != nil {
		r.fail(ctx, fmt.Errorf("agent %s: %w", r.name, err))
	}
}

// handleResponse delegates RESPONSE and ACK messages to the handler when it
// implements ResponseHandler; otherwise they are logged and dropped.
func (r *Runtime) handleResponse(ctx context.Context, resp core.Message) {
	h, ok := r.handler.(ResponseHandler)
	if !ok {
		r.logger.Debug("agent.response_dropped", "agent", r.name, "from", resp.Sender)
		return
	}
	if err := h.ProcessResponse(ctx, resp); err != nil {
		r.fail(ctx, fmt.Errorf("agent %s: process response from %s: %w", r.name, resp.Sender, err))
	}
}

// handleEvent delegates EVENT messages to the handler when it implements
// EventHandler.
func (r *Runtime) handleEvent(ctx context.Context, ev core.Message) {
	h, ok := r.handler.(EventHandler)
	if !ok {
		r.logger.Debug("agent.event_dropped", "agent", r.name, "from", ev.Sender)
		return
	}
	if err := h.ProcessEvent(ctx, ev); err != nil {
		r.fail(ctx, fmt.Errorf("agent %s: process event from %s: %w", r.name, ev.Sender, err))
	}
}

// handleError reports transport-level failures.
func (r *Runtime) handleError(ctx context.Context, err error) {
	r.fail(ctx, fmt.Errorf("agent %s: transport: %w", r.name, err))
}

// fail logs a failure and offers it to the handler's ErrorHandler capability.
func (r *Runtime) fail(ctx context.Context, err error) {
	r.logger.Error("agent.error", "agent", r.name, "error", err)
	if h, ok := r.handler.(ErrorHandler); ok {
		if herr := h.ProcessError(ctx, err); herr != nil {
			r.logger.Error("agent.error_handler_failed", "agent", r.name, "error", herr)
		}
	}
}
