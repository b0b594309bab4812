package store

import (
	"context"
	"errors"
)

// ErrTooManyConflicts is returned by the networked backend when an optimistic
// update exceeded its configured retry bound. With the default unbounded
// configuration it is never returned.
var ErrTooManyConflicts = errors.New("store: optimistic update exceeded retry bound")

// FieldOp tells the store what to do with a map field after an update
// function has inspected the current value.
type FieldOp int

const (
	// FieldKeep leaves the field untouched (no write is attempted).
	FieldKeep FieldOp = iota
	// FieldSet writes the returned value.
	FieldSet
	// FieldDelete removes the field entirely.
	FieldDelete
)

// MapFieldUpdateFunc computes the next value of a map field from its current
// value. exists reports whether the field was present. The function must be
// pure: under the networked backend it may be invoked multiple times when a
// commit conflicts and the transaction restarts.
type MapFieldUpdateFunc func(current string, exists bool) (next string, op FieldOp, err error)

// Store is the shared key/value contract. Values are opaque strings; callers
// are responsible for their own serialization. Keys name either a scalar, a
// list or a map — mixing kinds on one key is a programming error.
//
// All mutating operations on the networked backend are atomic
// read-modify-write cycles; read-only operations never contend.
type Store interface {
	// Get returns the scalar value stored at key, reporting presence.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a scalar value at key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Exists reports whether key holds any value.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key and everything stored under it. Absent keys are a no-op.
	Delete(ctx context.Context, key string) error

	// ListRange returns all elements of the list at key in insertion order.
	// An absent key yields an empty slice.
	ListRange(ctx context.Context, key string) ([]string, error)

	// ListAppend appends values to the tail of the list at key, creating the
	// list if absent.
	ListAppend(ctx context.Context, key string, values ...string) error

	// ListAppendUnique appends value only if it is not already an element of
	// the list. The check-then-append is a single atomic step.
	ListAppendUnique(ctx context.Context, key, value string) error

	// ListRemove removes the first occurrence of value from the list at key.
	// Removing an absent value is a no-op.
	ListRemove(ctx context.Context, key, value string) error

	// MapGet returns the value of one field of the map at key, reporting presence.
	MapGet(ctx context.Context, key, field string) (string, bool, error)

	// MapSet writes one field of the map at key, creating the map if absent.
	MapSet(ctx context.Context, key, field, value string) error

	// MapSetIfAbsent writes the field only when it does not exist yet and
	// reports whether the write happened. The existence check and the write
	// are a single atomic step.
	MapSetIfAbsent(ctx context.Context, key, field, value string) (bool, error)

	// MapDelete removes fields from the map at key. Absent fields are a no-op.
	MapDelete(ctx context.Context, key string, fields ...string) error

	// MapGetAll returns a copy of every field of the map at key. An absent
	// key yields an empty map.
	MapGetAll(ctx context.Context, key string) (map[string]string, error)

	// UpdateMapField atomically read-modify-writes one field of the map at
	// key using fn. This is the single optimistic-transaction helper every
	// higher-level mutator is built on.
	UpdateMapField(ctx context.Context, key, field string, fn MapFieldUpdateFunc) error

	// Close releases any resources held by the store.
	Close() error
}
