package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/agentgrid/logging"
	"github.com/hupe1980/agentgrid/store"
)

// ErrAgentExists is returned when an agent registers under a name that is
// already taken. The earlier registration is left unchanged.
var ErrAgentExists = fmt.Errorf("registry: agent name already exists")

const (
	keyAgents   = "registry:agents"
	keyContexts = "registry:contexts"
	keyTools    = "registry:tools"
)

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	// Logger receives registry lifecycle entries.
	Logger logging.Logger
}

// Registry is the process-group directory of agents, contexts and tools,
// backed by the shared store so every process sharing a database sees one
// directory. It owns context creation: GetOrCreateContext is the sole path by
// which contexts participating in the shared registry come into existence.
//
// Tool callbacks are process-local and never serialized; the registry shares
// descriptors and substitutes echo behavior for tools registered elsewhere.
type Registry struct {
	store  store.Store
	logger logging.Logger

	mu       sync.RWMutex
	contexts map[string]*Context // live handles around the shared store
	tools    map[string]Tool     // tools with callbacks in this process
}

// NewRegistry constructs a registry over the given store.
func NewRegistry(st store.Store, optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		store:    st,
		logger:   opts.Logger,
		contexts: make(map[string]*Context),
		tools:    make(map[string]Tool),
	}
}

// Store returns the shared store this registry (and its contexts) write to.
func (r *Registry) Store() store.Store { return r.store }

// RegisterAgent adds an agent to the directory. Registration fails with
// ErrAgentExists when the name is taken; the check and the insert are one
// atomic step on both backends.
func (r *Registry) RegisterAgent(ctx context.Context, name, description string) error {
	inserted, err := r.store.MapSetIfAbsent(ctx, keyAgents, name, description)
	if err != nil {
		return fmt.Errorf("register agent %s: %w", name, err)
	}
	if !inserted {
		return fmt.Errorf("%w: %s", ErrAgentExists, name)
	}
	r.logger.Debug("registry.agent_registered", "agent", name)
	return nil
}

// UnregisterAgent removes an agent from the directory. Absent names are a
// no-op. Call only after the agent's transport is down.
func (r *Registry) UnregisterAgent(ctx context.Context, name string) error {
	if err := r.store.MapDelete(ctx, keyAgents, name); err != nil {
		return fmt.Errorf("unregister agent %s: %w", name, err)
	}
	r.logger.Debug("registry.agent_unregistered", "agent", name)
	return nil
}

// AgentDescription returns the registered description for name.
func (r *Registry) AgentDescription(ctx context.Context, name string) (string, bool, error) {
	return r.store.MapGet(ctx, keyAgents, name)
}

// AgentNamesAndDescriptions returns one "name: description" entry per
// registered agent, sorted by name, for directory/discovery use by
// coordinators choosing which agent to invoke next.
func (r *Registry) AgentNamesAndDescriptions(ctx context.Context) ([]string, error) {
	agents, err := r.store.MapGetAll(ctx, keyAgents)
	if err != nil {
		return nil, err
	}
	entries := make([]string, 0, len(agents))
	for name, description := range agents {
		entries = append(entries, fmt.Sprintf("%s: %s", name, description))
	}
	sort.Strings(entries)
	return entries, nil
}

// GetOrCreateContext returns the context with the given name, creating and
// recording it in the shared context directory if it does not exist yet.
func (r *Registry) GetOrCreateContext(ctx context.Context, name string) (*Context, error) {
	r.mu.RLock()
	c, ok := r.contexts[name]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	created, err := r.store.MapSetIfAbsent(ctx, keyContexts, name, name)
	if err != nil {
		return nil, fmt.Errorf("get or create context %s: %w", name, err)
	}
	if created {
		r.logger.Debug("registry.context_created", "context", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.contexts[name]; ok {
		return c, nil
	}
	c = NewContext(name, r.store)
	r.contexts[name] = c
	return c, nil
}

// ContextExists reports whether a context with the given name is recorded.
func (r *Registry) ContextExists(ctx context.Context, name string) (bool, error) {
	_, ok, err := r.store.MapGet(ctx, keyContexts, name)
	return ok, err
}

// ContextNames returns the names of all live contexts, sorted.
func (r *Registry) ContextNames(ctx context.Context) ([]string, error) {
	all, err := r.store.MapGetAll(ctx, keyContexts)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// RemoveContext deletes a context from the directory along with all of its
// conversation state.
func (r *Registry) RemoveContext(ctx context.Context, name string) error {
	r.mu.Lock()
	c, ok := r.contexts[name]
	delete(r.contexts, name)
	r.mu.Unlock()

	if !ok {
		c = NewContext(name, r.store)
	}
	if err := c.clearState(ctx); err != nil {
		return fmt.Errorf("remove context %s: %w", name, err)
	}
	if err := r.store.MapDelete(ctx, keyContexts, name); err != nil {
		return fmt.Errorf("remove context %s: %w", name, err)
	}
	r.logger.Debug("registry.context_removed", "context", name)
	return nil
}

// RegisterTool records a tool in the directory. Unlike agents, name
// collisions are last-write-wins. The descriptor is shared; the callback
// stays in this process.
func (r *Registry) RegisterTool(ctx context.Context, t Tool) error {
	desc := t.Descriptor()
	raw, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("register tool %s: %w", desc.Name, err)
	}
	if err := r.store.MapSet(ctx, keyTools, desc.Name, string(raw)); err != nil {
		return fmt.Errorf("register tool %s: %w", desc.Name, err)
	}
	r.mu.Lock()
	r.tools[desc.Name] = t
	r.mu.Unlock()
	return nil
}

// Tool resolves a tool by name. Tools registered in this process are returned
// with their callbacks; tools known only by shared descriptor get the default
// echo behavior.
func (r *Registry) Tool(ctx context.Context, name string) (Tool, bool, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if ok {
		return t, true, nil
	}

	raw, ok, err := r.store.MapGet(ctx, keyTools, name)
	if err != nil || !ok {
		return nil, false, err
	}
	var desc ToolDescriptor
	if err := json.Unmarshal([]byte(raw), &desc); err != nil {
		return nil, false, fmt.Errorf("tool %s: %w", name, err)
	}
	return NewEchoTool(desc), true, nil
}

// ToolDescriptors returns every registered tool's descriptor, sorted by name.
func (r *Registry) ToolDescriptors(ctx context.Context) ([]ToolDescriptor, error) {
	all, err := r.store.MapGetAll(ctx, keyTools)
	if err != nil {
		return nil, err
	}
	descs := make([]ToolDescriptor, 0, len(all))
	for name, raw := range all {
		var desc ToolDescriptor
		if err := json.Unmarshal([]byte(raw), &desc); err != nil {
			return nil, fmt.Errorf("tool %s: %w", name, err)
		}
		descs = append(descs, desc)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs, nil
}
