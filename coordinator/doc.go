// Package coordinator provides ready-made workflow agents that drive groups
// of other agents through a shared conversation:
//
//   - Sequential pipes one request through an ordered chain of agents and
//     routes the last agent's answer straight back to the original caller.
//   - Phased fans a request out to agents phase by phase, waiting for every
//     agent in a phase to acknowledge before starting the next, and returns
//     the final contribution when the last phase completes.
//
// Coordinators are plain request handlers; host them in an agent.Runtime like
// any other agent.
package coordinator
