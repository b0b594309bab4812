// Package store defines the shared key/value contract that all conversation
// and registry state is written against, together with two implementations:
//
//   - Local: process memory, for single-process deployments and tests
//   - RedisStore: a networked Redis database shared by independent agent
//     processes, with every mutation performed as an optimistic
//     watch-then-commit transaction
//
// Higher layers (core.Context, core.Registry) never branch on the backend;
// they receive a Store value chosen at construction time.
package store
