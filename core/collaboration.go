package core

// CollaborationType governs how an agent's response is routed after it
// finishes processing a request, and whether the agent sees the shared
// conversation history.
type CollaborationType string

const (
	// CollaborationSequential chains agents: each output becomes the next
	// agent's request, the last output goes to the route-response-to agent.
	CollaborationSequential CollaborationType = "SEQUENTIAL"
	// CollaborationPhased runs barrier-synchronized rounds of agents that
	// share the conversation history and acknowledge completion.
	CollaborationPhased CollaborationType = "PHASED"
	// CollaborationIndependent replies directly to the request's sender.
	// It is the default for chats that never set a type.
	CollaborationIndependent CollaborationType = "INDEPENDENT"
	// CollaborationChat shares history and acknowledges like PHASED but
	// without phase bookkeeping.
	CollaborationChat CollaborationType = "CHAT"
)
