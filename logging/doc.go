// Package logging provides a minimal logging interface and adapters for agentgrid.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the runtime, stores and coordinators use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text", false)
//	reg := core.NewRegistry(st, func(o *core.RegistryOptions) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
