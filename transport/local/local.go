// Package local provides an in-process message bus implementing the
// core.Transport contract. Every agent in the process attaches an endpoint to
// one shared Bus; messages are serialized through the wire codec so the bus
// exercises the same encode/decode path a networked transport would.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/logging"
)

// BusOptions configure a Bus.
type BusOptions struct {
	// InboxSize is the per-agent delivery buffer. Sends to a full inbox fail
	// instead of blocking.
	InboxSize int

	// Logger receives delivery diagnostics.
	Logger logging.Logger
}

// Bus routes messages between in-process agents by name.
type Bus struct {
	inboxSize int
	logger    logging.Logger

	mu      sync.RWMutex
	inboxes map[string]chan []byte
}

// NewBus creates an empty bus.
func NewBus(optFns ...func(o *BusOptions)) *Bus {
	opts := BusOptions{
		InboxSize: 64,
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bus{
		inboxSize: opts.InboxSize,
		logger:    opts.Logger,
		inboxes:   make(map[string]chan []byte),
	}
}

// Endpoint returns the named agent's transport on this bus. The endpoint
// joins the bus on Start and leaves it on Stop.
func (b *Bus) Endpoint(agentName string) core.Transport {
	return &endpoint{bus: b, agentName: agentName}
}

// attach registers an inbox for the named agent.
func (b *Bus) attach(agentName string) (chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inboxes[agentName]; ok {
		return nil, fmt.Errorf("local bus: agent %s already attached", agentName)
	}
	inbox := make(chan []byte, b.inboxSize)
	b.inboxes[agentName] = inbox
	return inbox, nil
}

// detach removes and closes the named agent's inbox.
func (b *Bus) detach(agentName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if inbox, ok := b.inboxes[agentName]; ok {
		delete(b.inboxes, agentName)
		close(inbox)
	}
}

// deliver enqueues an encoded message for the destination agent. The inbox
// channel is only closed under the write lock, so enqueueing under the read
// lock can never hit a closed channel.
func (b *Bus) deliver(destAgentName string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	inbox, ok := b.inboxes[destAgentName]
	if !ok {
		return fmt.Errorf("local bus: unknown agent %s", destAgentName)
	}
	select {
	case inbox <- payload:
		return nil
	default:
		return fmt.Errorf("local bus: inbox full for agent %s", destAgentName)
	}
}

// endpoint is one agent's view of the bus.
type endpoint struct {
	bus       *Bus
	agentName string

	mu      sync.Mutex
	cb      core.TransportCallbacks
	started bool
	done    chan struct{}
}

// SetCallbacks registers the receiving agent's handlers.
func (e *endpoint) SetCallbacks(cb core.TransportCallbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cb = cb
}

// Start attaches the endpoint to the bus and begins dispatching its inbox.
func (e *endpoint) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return fmt.Errorf("local bus: endpoint %s already started", e.agentName)
	}
	inbox, err := e.bus.attach(e.agentName)
	if err != nil {
		return err
	}
	e.started = true
	e.done = make(chan struct{})
	go e.dispatch(inbox, e.cb, e.done)
	return nil
}

// Stop detaches the endpoint and waits for in-flight dispatches to finish.
func (e *endpoint) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	e.bus.detach(e.agentName)
	select {
	case <-e.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	e.started = false
	return nil
}

// SendRequest delivers msg to the destination agent.
func (e *endpoint) SendRequest(ctx context.Context, msg core.Message, destAgentName string) error {
	return e.send(msg, destAgentName)
}

// SendResponse delivers msg to the destination agent.
func (e *endpoint) SendResponse(ctx context.Context, msg core.Message, destAgentName string) error {
	return e.send(msg, destAgentName)
}

func (e *endpoint) send(msg core.Message, destAgentName string) error {
	payload, err := core.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("local bus: encode message: %w", err)
	}
	return e.bus.deliver(destAgentName, payload)
}

// dispatch decodes inbox payloads and hands them to the callbacks. Delivery
// is keyed on the message type: requests, responses/acks and events each have
// their own handler.
func (e *endpoint) dispatch(inbox <-chan []byte, cb core.TransportCallbacks, done chan<- struct{}) {
	defer close(done)
	ctx := context.Background()
	for payload := range inbox {
		msg, err := core.DecodeMessage(payload)
		if err != nil {
			e.bus.logger.Error("local.decode_failed", "agent", e.agentName, "error", err)
			if cb.OnError != nil {
				cb.OnError(ctx, err)
			}
			continue
		}
		switch msg.Type {
		case core.MessageTypeRequest:
			if cb.OnRequest != nil {
				cb.OnRequest(ctx, msg)
			}
		case core.MessageTypeResponse, core.MessageTypeAck:
			if cb.OnResponse != nil {
				cb.OnResponse(ctx, msg)
			}
		case core.MessageTypeEvent:
			if cb.OnEvent != nil {
				cb.OnEvent(ctx, msg)
			}
		default:
			e.bus.logger.Warn("local.unroutable_message", "agent", e.agentName, "type", string(msg.Type))
		}
	}
}
