// Package core contains the shared data model and coordination state for
// agentgrid: the Message envelope exchanged between agents, the
// chat-id-scoped conversation Context, the process-group Registry of agents,
// contexts and tools, and the contracts for transports and tools.
//
// Everything stateful is written against the store.Store abstraction so the
// same code serves a single process (in-memory backend) and a fleet of
// independent agent processes sharing one Redis database.
package core
