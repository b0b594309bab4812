package core

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/hupe1980/agentgrid/store"
)

// Context is the shared, chat-id-scoped state of one logical multi-agent
// conversation. A Context holds no data itself; every accessor reads through
// and every mutator writes through the shared store, so independent agent
// processes resolving the same context name always observe one authoritative
// copy. Handles are cheap and safe to use concurrently.
//
// Queries against a chat id that was never written return empty defaults
// (empty slice, absent flag, CollaborationIndependent) rather than an error.
type Context struct {
	name  string
	store store.Store
}

// NewContext creates a handle for the named context backed by st. Callers
// participating in a shared registry should resolve contexts through
// Registry.GetOrCreateContext instead, which also records the name in the
// shared context directory.
func NewContext(name string, st store.Store) *Context {
	return &Context{name: name, store: st}
}

// Name returns the unique context name.
func (c *Context) Name() string { return c.name }

// State keys are namespaced per context so two contexts sharing one database
// never collide.
func (c *Context) key(suffix string) string {
	return "context:" + c.name + ":" + suffix
}

const (
	suffixParticipants   = "participants"
	suffixMessageTrace   = "message_trace"
	suffixChatHistory    = "chat_history"
	suffixRequiredTools  = "required_tool_calls"
	suffixAvailableTools = "available_tools"
	suffixAgentSequence  = "agent_sequence"
	suffixRouteTo        = "route_response_to"
	suffixPhases         = "agent_phase_assignments"
	suffixCurrentPhase   = "current_phase"
	suffixRequiredAgents = "required_agents_for_phase"
	suffixQueries        = "queries"
	suffixCollabType     = "collaboration_type"
)

// stateSuffixes enumerates every key a context writes, for cleanup on removal.
var stateSuffixes = []string{
	suffixParticipants, suffixMessageTrace, suffixChatHistory,
	suffixRequiredTools, suffixAvailableTools, suffixAgentSequence,
	suffixRouteTo, suffixPhases, suffixCurrentPhase,
	suffixRequiredAgents, suffixQueries, suffixCollabType,
}

// Participants returns the agents that have touched this conversation, in
// insertion order.
func (c *Context) Participants(ctx context.Context) ([]string, error) {
	return c.store.ListRange(ctx, c.key(suffixParticipants))
}

// AddParticipant records an agent as a participant. Idempotent: adding an
// agent twice leaves a single occurrence, on both backends.
func (c *Context) AddParticipant(ctx context.Context, agentName string) error {
	return c.store.ListAppendUnique(ctx, c.key(suffixParticipants), agentName)
}

// Trace appends a sent message to the context's audit log. The trace is for
// debugging only; no routing logic reads it.
func (c *Context) Trace(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("trace message: %w", err)
	}
	return c.store.ListAppend(ctx, c.key(suffixMessageTrace), string(raw))
}

// MessageTrace returns every traced message in send order.
func (c *Context) MessageTrace(ctx context.Context) ([]Message, error) {
	raws, err := c.store.ListRange(ctx, c.key(suffixMessageTrace))
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("message trace entry: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// AppendChatMessage appends one record to the chat's history, creating the
// history if this is its first record.
func (c *Context) AppendChatMessage(ctx context.Context, chatID string, msg ChatMessage) error {
	return appendToListField(ctx, c.store, c.key(suffixChatHistory), chatID, msg)
}

// ChatHistory returns the chat's history records in append order.
func (c *Context) ChatHistory(ctx context.Context, chatID string) ([]ChatMessage, error) {
	return getListField[ChatMessage](ctx, c.store, c.key(suffixChatHistory), chatID)
}

// AppendRequiredToolCall records that the chat is waiting on the named tool.
func (c *Context) AppendRequiredToolCall(ctx context.Context, chatID, toolName string) error {
	return appendToListField(ctx, c.store, c.key(suffixRequiredTools), chatID, toolName)
}

// RemoveRequiredToolCall removes one pending tool call. Removing the last
// entry deletes the chat's key entirely, so "no pending calls" and "never had
// pending calls" are indistinguishable to readers. Removing an absent entry
// is a no-op.
func (c *Context) RemoveRequiredToolCall(ctx context.Context, chatID, toolName string) error {
	return removeFromListField(ctx, c.store, c.key(suffixRequiredTools), chatID, toolName)
}

// RequiredToolCalls returns the chat's pending tool-call names.
func (c *Context) RequiredToolCalls(ctx context.Context, chatID string) ([]string, error) {
	return getListField[string](ctx, c.store, c.key(suffixRequiredTools), chatID)
}

// AppendAvailableTool adds a tool descriptor to those offered to the LLM for
// this chat.
func (c *Context) AppendAvailableTool(ctx context.Context, chatID string, tool ToolDescriptor) error {
	return appendToListField(ctx, c.store, c.key(suffixAvailableTools), chatID, tool)
}

// AvailableTools returns the tool descriptors offered for this chat.
func (c *Context) AvailableTools(ctx context.Context, chatID string) ([]ToolDescriptor, error) {
	return getListField[ToolDescriptor](ctx, c.store, c.key(suffixAvailableTools), chatID)
}

// SetAgentSequence defines the execution order for sequential collaboration.
func (c *Context) SetAgentSequence(ctx context.Context, chatID string, agents []string) error {
	return setField(ctx, c.store, c.key(suffixAgentSequence), chatID, agents)
}

// AgentSequence returns the chat's execution order, empty if unset.
func (c *Context) AgentSequence(ctx context.Context, chatID string) ([]string, error) {
	return getListField[string](ctx, c.store, c.key(suffixAgentSequence), chatID)
}

// NextAgentInSequence returns the agent immediately following currentAgent in
// the chat's sequence. ok is false when currentAgent is last or not in the
// sequence at all.
func (c *Context) NextAgentInSequence(ctx context.Context, chatID, currentAgent string) (next string, ok bool, err error) {
	seq, err := c.AgentSequence(ctx, chatID)
	if err != nil {
		return "", false, err
	}
	if i := slices.Index(seq, currentAgent); i >= 0 && i+1 < len(seq) {
		return seq[i+1], true, nil
	}
	return "", false, nil
}

// SetRouteResponseTo names the agent that receives the terminal response for
// this chat (sequential and phased collaboration).
func (c *Context) SetRouteResponseTo(ctx context.Context, chatID, agentName string) error {
	return setField(ctx, c.store, c.key(suffixRouteTo), chatID, agentName)
}

// RouteResponseTo returns the terminal-response destination, if set.
func (c *Context) RouteResponseTo(ctx context.Context, chatID string) (string, bool, error) {
	return getScalarField[string](ctx, c.store, c.key(suffixRouteTo), chatID)
}

// SetAgentPhaseAssignments defines the ordered phases for phased
// collaboration; each phase is an ordered list of agent names.
func (c *Context) SetAgentPhaseAssignments(ctx context.Context, chatID string, phases [][]string) error {
	return setField(ctx, c.store, c.key(suffixPhases), chatID, phases)
}

// AgentPhaseAssignments returns the chat's phases, empty if unset.
func (c *Context) AgentPhaseAssignments(ctx context.Context, chatID string) ([][]string, error) {
	return getListField[[]string](ctx, c.store, c.key(suffixPhases), chatID)
}

// SetCurrentPhase sets the zero-based phase index and snapshots that phase's
// agent list into the required-agents set as an independent copy. Callers
// must never move the phase backwards; AgentsForNextPhase is the normal way
// to advance.
func (c *Context) SetCurrentPhase(ctx context.Context, chatID string, phase int) error {
	phases, err := c.AgentPhaseAssignments(ctx, chatID)
	if err != nil {
		return err
	}
	if phase < 0 || phase >= len(phases) {
		return fmt.Errorf("context %s: phase %d out of range (have %d phases)", c.name, phase, len(phases))
	}
	if err := setField(ctx, c.store, c.key(suffixCurrentPhase), chatID, phase); err != nil {
		return err
	}
	return setField(ctx, c.store, c.key(suffixRequiredAgents), chatID, slices.Clone(phases[phase]))
}

// CurrentPhase returns the zero-based phase index; ok is false when no phase
// has been set for the chat.
func (c *Context) CurrentPhase(ctx context.Context, chatID string) (phase int, ok bool, err error) {
	return getScalarField[int](ctx, c.store, c.key(suffixCurrentPhase), chatID)
}

// AgentsForNextPhase advances the current phase by one and returns the new
// phase's agent list. ok is false, with no state change, when the chat is
// already at its last phase. This is the only mutator that advances the
// phase; there is no way to move backwards.
func (c *Context) AgentsForNextPhase(ctx context.Context, chatID string) (agents []string, ok bool, err error) {
	current, _, err := c.CurrentPhase(ctx, chatID)
	if err != nil {
		return nil, false, err
	}
	phases, err := c.AgentPhaseAssignments(ctx, chatID)
	if err != nil {
		return nil, false, err
	}
	next := current + 1
	if next >= len(phases) {
		return nil, false, nil
	}
	if err := c.SetCurrentPhase(ctx, chatID, next); err != nil {
		return nil, false, err
	}
	return phases[next], true, nil
}

// RequiredAgentsForCurrentPhase returns the agents that still have to finish
// the current phase.
func (c *Context) RequiredAgentsForCurrentPhase(ctx context.Context, chatID string) ([]string, error) {
	return getListField[string](ctx, c.store, c.key(suffixRequiredAgents), chatID)
}

// RemoveRequiredAgentForCurrentPhase removes one agent from the current
// phase's required set; removing the last one deletes the chat's key.
// Removing from an absent set is a no-op.
func (c *Context) RemoveRequiredAgentForCurrentPhase(ctx context.Context, chatID, agentName string) error {
	return removeFromListField(ctx, c.store, c.key(suffixRequiredAgents), chatID, agentName)
}

// AddQuery records a query attempt for the chat, most recent last.
func (c *Context) AddQuery(ctx context.Context, chatID, query string) error {
	return appendToListField(ctx, c.store, c.key(suffixQueries), chatID, query)
}

// Queries returns every query attempted for the chat in order.
func (c *Context) Queries(ctx context.Context, chatID string) ([]string, error) {
	return getListField[string](ctx, c.store, c.key(suffixQueries), chatID)
}

// CurrentQuery returns the most recent query; ok is false when none exist.
func (c *Context) CurrentQuery(ctx context.Context, chatID string) (query string, ok bool, err error) {
	queries, err := c.Queries(ctx, chatID)
	if err != nil || len(queries) == 0 {
		return "", false, err
	}
	return queries[len(queries)-1], true, nil
}

// SetCollaborationType stamps the chat's collaboration mode.
func (c *Context) SetCollaborationType(ctx context.Context, chatID string, t CollaborationType) error {
	return setField(ctx, c.store, c.key(suffixCollabType), chatID, t)
}

// CollaborationType returns the chat's mode, defaulting to
// CollaborationIndependent when the chat id is empty or was never stamped
// (context-free one-shot events).
func (c *Context) CollaborationType(ctx context.Context, chatID string) (CollaborationType, error) {
	if chatID == "" {
		return CollaborationIndependent, nil
	}
	t, ok, err := getScalarField[CollaborationType](ctx, c.store, c.key(suffixCollabType), chatID)
	if err != nil || !ok {
		return CollaborationIndependent, err
	}
	return t, nil
}

// clearState removes every key this context wrote. Used by the registry when
// the context is removed.
func (c *Context) clearState(ctx context.Context) error {
	for _, suffix := range stateSuffixes {
		if err := c.store.Delete(ctx, c.key(suffix)); err != nil {
			return err
		}
	}
	return nil
}

// setField JSON-encodes v into one field of a map key.
func setField[T any](ctx context.Context, st store.Store, key, field string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s[%s]: %w", key, field, err)
	}
	return st.MapSet(ctx, key, field, string(raw))
}

// getScalarField decodes one field of a map key into T, reporting presence.
func getScalarField[T any](ctx context.Context, st store.Store, key, field string) (v T, ok bool, err error) {
	raw, exists, err := st.MapGet(ctx, key, field)
	if err != nil || !exists {
		return v, false, err
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, false, fmt.Errorf("decode %s[%s]: %w", key, field, err)
	}
	return v, true, nil
}

// getListField decodes a JSON-array field into a slice, empty when absent.
func getListField[T any](ctx context.Context, st store.Store, key, field string) ([]T, error) {
	raw, exists, err := st.MapGet(ctx, key, field)
	if err != nil || !exists {
		return []T{}, err
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode %s[%s]: %w", key, field, err)
	}
	return out, nil
}

// appendToListField atomically appends v to the JSON-array field, creating
// the array if absent.
func appendToListField[T any](ctx context.Context, st store.Store, key, field string, v T) error {
	return st.UpdateMapField(ctx, key, field, func(current string, exists bool) (string, store.FieldOp, error) {
		var items []T
		if exists {
			if err := json.Unmarshal([]byte(current), &items); err != nil {
				return "", store.FieldKeep, fmt.Errorf("decode %s[%s]: %w", key, field, err)
			}
		}
		items = append(items, v)
		raw, err := json.Marshal(items)
		if err != nil {
			return "", store.FieldKeep, fmt.Errorf("encode %s[%s]: %w", key, field, err)
		}
		return string(raw), store.FieldSet, nil
	})
}

// removeFromListField atomically removes the first occurrence of v from the
// JSON-array field, deleting the field when it empties. Absent fields and
// absent values are no-ops.
func removeFromListField[T comparable](ctx context.Context, st store.Store, key, field string, v T) error {
	return st.UpdateMapField(ctx, key, field, func(current string, exists bool) (string, store.FieldOp, error) {
		if !exists {
			return "", store.FieldKeep, nil
		}
		var items []T
		if err := json.Unmarshal([]byte(current), &items); err != nil {
			return "", store.FieldKeep, fmt.Errorf("decode %s[%s]: %w", key, field, err)
		}
		i := slices.Index(items, v)
		if i < 0 {
			return "", store.FieldKeep, nil
		}
		items = slices.Delete(items, i, i+1)
		if len(items) == 0 {
			return "", store.FieldDelete, nil
		}
		raw, err := json.Marshal(items)
		if err != nil {
			return "", store.FieldKeep, fmt.Errorf("encode %s[%s]: %w", key, field, err)
		}
		return string(raw), store.FieldSet, nil
	})
}
