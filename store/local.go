package store

import (
	"context"
	"slices"
	"sync"
)

// Local is a volatile Store implementation backed by process memory. It is
// safe for concurrent access and best suited for single-process deployments,
// tests and demos. Returned slices and maps are defensive copies.
type Local struct {
	mu      sync.RWMutex
	scalars map[string]string
	lists   map[string][]string
	maps    map[string]map[string]string
}

var _ Store = (*Local)(nil)

// NewLocal constructs an empty in-memory store.
func NewLocal() *Local {
	return &Local{
		scalars: make(map[string]string),
		lists:   make(map[string][]string),
		maps:    make(map[string]map[string]string),
	}
}

// Get returns the scalar value stored at key.
func (s *Local) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.scalars[key]
	return v, ok, nil
}

// Set stores a scalar value at key.
func (s *Local) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scalars[key] = value
	return nil
}

// Exists reports whether key holds a scalar, list or map value.
func (s *Local) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.scalars[key]; ok {
		return true, nil
	}
	if l, ok := s.lists[key]; ok && len(l) > 0 {
		return true, nil
	}
	if m, ok := s.maps[key]; ok && len(m) > 0 {
		return true, nil
	}
	return false, nil
}

// Delete removes key regardless of its kind.
func (s *Local) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scalars, key)
	delete(s.lists, key)
	delete(s.maps, key)
	return nil
}

// ListRange returns a copy of the list at key in insertion order.
func (s *Local) ListRange(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lists[key]), nil
}

// ListAppend appends values to the list at key.
func (s *Local) ListAppend(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], values...)
	return nil
}

// ListAppendUnique appends value unless it is already present.
func (s *Local) ListAppendUnique(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.lists[key], value) {
		return nil
	}
	s.lists[key] = append(s.lists[key], value)
	return nil
}

// ListRemove removes the first occurrence of value from the list at key.
func (s *Local) ListRemove(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	if i := slices.Index(l, value); i >= 0 {
		s.lists[key] = slices.Delete(l, i, i+1)
	}
	return nil
}

// MapGet returns one field of the map at key.
func (s *Local) MapGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.maps[key][field]
	return v, ok, nil
}

// MapSet writes one field of the map at key.
func (s *Local) MapSet(_ context.Context, key, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapLocked(key)[field] = value
	return nil
}

// MapSetIfAbsent writes the field only when it does not exist yet.
func (s *Local) MapSetIfAbsent(_ context.Context, key, field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mapLocked(key)
	if _, ok := m[field]; ok {
		return false, nil
	}
	m[field] = value
	return true, nil
}

// MapDelete removes fields from the map at key.
func (s *Local) MapDelete(_ context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maps[key]
	if !ok {
		return nil
	}
	for _, f := range fields {
		delete(m, f)
	}
	if len(m) == 0 {
		delete(s.maps, key)
	}
	return nil
}

// MapGetAll returns a copy of the map at key.
func (s *Local) MapGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.maps[key]))
	for k, v := range s.maps[key] {
		out[k] = v
	}
	return out, nil
}

// UpdateMapField applies fn to one field under the write lock. The in-memory
// backend cannot conflict, so fn runs exactly once.
func (s *Local) UpdateMapField(_ context.Context, key, field string, fn MapFieldUpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mapLocked(key)
	cur, exists := m[field]
	next, op, err := fn(cur, exists)
	if err != nil {
		return err
	}
	switch op {
	case FieldSet:
		m[field] = next
	case FieldDelete:
		delete(m, field)
		if len(m) == 0 {
			delete(s.maps, key)
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Local) Close() error { return nil }

// mapLocked returns the map at key, allocating it if absent. Caller must hold
// the write lock.
func (s *Local) mapLocked(key string) map[string]string {
	m, ok := s.maps[key]
	if !ok {
		m = make(map[string]string)
		s.maps[key] = m
	}
	return m
}
