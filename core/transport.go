package core

import "context"

// TransportCallbacks are invoked by a transport as traffic arrives for the
// agent that registered them. All four must be set before Start.
type TransportCallbacks struct {
	// OnRequest handles an inbound REQUEST message.
	OnRequest func(ctx context.Context, msg Message)
	// OnResponse handles an inbound RESPONSE or ACK message.
	OnResponse func(ctx context.Context, msg Message)
	// OnEvent handles an inbound EVENT message.
	OnEvent func(ctx context.Context, msg Message)
	// OnError is told about delivery or decoding failures.
	OnError func(ctx context.Context, err error)
}

// Transport delivers messages between agents. Implementations own the wire
// encoding; it must round-trip every Message field losslessly, including the
// type enum. Sending is fire-and-forget: a nil error means the message was
// accepted for delivery, not that it arrived.
type Transport interface {
	// SetCallbacks registers the receiving agent's handlers. Must be called
	// before Start.
	SetCallbacks(cb TransportCallbacks)

	// Start begins delivering inbound messages to the callbacks.
	Start(ctx context.Context) error

	// Stop ends delivery and releases transport resources.
	Stop(ctx context.Context) error

	// SendRequest delivers msg to the destination agent's request handling.
	SendRequest(ctx context.Context, msg Message, destAgentName string) error

	// SendResponse delivers msg to the destination agent's response handling.
	SendResponse(ctx context.Context, msg Message, destAgentName string) error
}
