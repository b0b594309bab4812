// Package agent contains the runtime that turns a request handler into a
// live, addressable agent, plus the collaboration routing shared by all
// agents. The package focuses on three concerns:
//
//  1. Lifecycle and messaging plumbing (Runtime)
//  2. Collaboration-mode history visibility and response routing (Controller)
//  3. A ready-made language-model handler with tool calling (LLMAgent)
//
// Design principles:
//   - Handlers stay transport-free: they receive a request plus the history
//     their collaboration mode entitles them to, and return text
//   - Routing is uniform: every agent runs the same Controller state machine,
//     so collaboration semantics live in one place
//   - Shared state flows through core.Context only; the runtime never caches
//     conversation state in memory
package agent
