package agent

import (
	"context"

	"github.com/hupe1980/agentgrid/core"
)

// RequestHandler produces an agent's contribution for an inbound request.
// This is the one capability every agent must provide.
//
// history carries the shared conversation so far when the collaboration mode
// grants visibility (phased and chat); otherwise it is empty and the request
// content is all the handler sees. An empty response string means the agent
// has nothing to contribute and no message is routed onward.
type RequestHandler interface {
	ProcessRequest(ctx context.Context, req core.Message, history []core.ChatMessage) (string, error)
}

// ResponseHandler is implemented by handlers that want to see RESPONSE and
// ACK messages addressed to their agent, such as coordinators collecting
// results. Runtimes whose handler lacks this capability log and drop them.
type ResponseHandler interface {
	ProcessResponse(ctx context.Context, resp core.Message) error
}

// EventHandler is implemented by handlers that consume out-of-band EVENT
// messages.
type EventHandler interface {
	ProcessEvent(ctx context.Context, ev core.Message) error
}

// ErrorHandler is implemented by handlers that want transport and processing
// failures reported to them in addition to the runtime's log.
type ErrorHandler interface {
	ProcessError(ctx context.Context, err error) error
}

// SenderBinder is implemented by handlers that dispatch messages themselves,
// such as coordinators kicking off workflows. The runtime binds itself to the
// handler during construction, before any message can arrive.
type SenderBinder interface {
	BindSender(s Sender)
}
