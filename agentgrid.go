// Package agentgrid provides a high-level façade over the registry, shared
// store and transport abstractions enabling rapid construction of multi-agent
// systems. Most applications interact with this package by:
//  1. Creating an AgentGrid via New() (optionally overriding the store,
//     transport or logger)
//  2. Spawning agents (language-model handlers, coordinators, custom
//     handlers) and registering shared tools
//  3. Driving workflows by sending requests between agents
//
// The façade delegates coordination to core.Registry and agent.Runtime while
// keeping setup ergonomics concise. All defaults are safe for local
// development and testing; multi-process deployments supply a Redis-backed
// store (see the config package) and a structured logger.
package agentgrid

import (
	"context"
	"sync"

	"github.com/hupe1980/agentgrid/agent"
	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/logging"
	"github.com/hupe1980/agentgrid/store"
	"github.com/hupe1980/agentgrid/transport/local"
)

// Options configures the AgentGrid instance.
type Options struct {
	// Store backs the registry and every conversation context. Defaults to
	// a process-local in-memory store; supply a Redis-backed store to share
	// state across processes.
	Store store.Store

	// NewTransport supplies each spawned agent's transport. Defaults to
	// endpoints on one in-process bus.
	NewTransport func(agentName string) core.Transport

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentGrid is the high-level façade aggregating the registry, the shared
// store and the transport used by spawned agents.
type AgentGrid struct {
	opts     Options
	registry *core.Registry

	mu       sync.Mutex
	runtimes []*agent.Runtime
}

// New creates a new AgentGrid instance with optional overrides. Any unset
// dependency is initialized with an in-process implementation.
func New(optFns ...func(o *Options)) *AgentGrid {
	opts := Options{
		Store:  store.NewLocal(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.NewTransport == nil {
		bus := local.NewBus(func(o *local.BusOptions) { o.Logger = opts.Logger })
		opts.NewTransport = bus.Endpoint
	}

	registry := core.NewRegistry(opts.Store, func(o *core.RegistryOptions) {
		o.Logger = opts.Logger
	})

	return &AgentGrid{opts: opts, registry: registry}
}

// Registry returns the shared agent/context/tool directory.
func (g *AgentGrid) Registry() *core.Registry { return g.registry }

// Store returns the shared store backing the grid.
func (g *AgentGrid) Store() store.Store { return g.opts.Store }

// SpawnAgent hosts handler as a named agent and starts it. The returned
// runtime is already receiving; it is stopped again by Shutdown.
func (g *AgentGrid) SpawnAgent(ctx context.Context, name, description string, handler agent.RequestHandler) (*agent.Runtime, error) {
	rt := agent.New(name, description, handler, g.opts.NewTransport(name), g.registry, func(o *agent.Options) {
		o.Logger = g.opts.Logger
	})
	if err := rt.Start(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.runtimes = append(g.runtimes, rt)
	g.mu.Unlock()
	return rt, nil
}

// RegisterTool records a tool in the shared directory.
func (g *AgentGrid) RegisterTool(ctx context.Context, t core.Tool) error {
	return g.registry.RegisterTool(ctx, t)
}

// Shutdown stops every spawned agent in reverse spawn order and closes the
// shared store. The first error is returned; shutdown continues regardless.
func (g *AgentGrid) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	runtimes := g.runtimes
	g.runtimes = nil
	g.mu.Unlock()

	var firstErr error
	for i := len(runtimes) - 1; i >= 0; i-- {
		if err := runtimes[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := g.opts.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
