package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Store = (*Local)(nil)

func TestLocal_Scalars(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", v)

	exists, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "k"))
	exists, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocal_Lists(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()

	empty, err := s.ListRange(ctx, "l")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.ListAppend(ctx, "l", "a", "b"))
	require.NoError(t, s.ListAppendUnique(ctx, "l", "a"))
	require.NoError(t, s.ListAppendUnique(ctx, "l", "c"))

	items, err := s.ListRange(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, items)

	require.NoError(t, s.ListRemove(ctx, "l", "b"))
	require.NoError(t, s.ListRemove(ctx, "l", "nope"))

	items, err = s.ListRange(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, items)

	// Returned slices are copies.
	items[0] = "mutated"
	fresh, err := s.ListRange(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, fresh)
}

func TestLocal_Maps(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()

	_, ok, err := s.MapGet(ctx, "m", "f")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.MapSet(ctx, "m", "f", "v"))

	inserted, err := s.MapSetIfAbsent(ctx, "m", "f", "other")
	require.NoError(t, err)
	assert.False(t, inserted)

	inserted, err = s.MapSetIfAbsent(ctx, "m", "g", "w")
	require.NoError(t, err)
	assert.True(t, inserted)

	all, err := s.MapGetAll(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"f": "v", "g": "w"}, all)

	require.NoError(t, s.MapDelete(ctx, "m", "f", "g"))
	exists, err := s.Exists(ctx, "m")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocal_UpdateMapField(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()

	// Create on first update.
	err := s.UpdateMapField(ctx, "m", "f", func(current string, exists bool) (string, FieldOp, error) {
		assert.False(t, exists)
		return "1", FieldSet, nil
	})
	require.NoError(t, err)

	// Modify based on the current value.
	err = s.UpdateMapField(ctx, "m", "f", func(current string, exists bool) (string, FieldOp, error) {
		assert.True(t, exists)
		assert.Equal(t, "1", current)
		return current + "2", FieldSet, nil
	})
	require.NoError(t, err)

	v, ok, err := s.MapGet(ctx, "m", "f")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "12", v)

	// FieldKeep writes nothing.
	err = s.UpdateMapField(ctx, "m", "f", func(string, bool) (string, FieldOp, error) {
		return "ignored", FieldKeep, nil
	})
	require.NoError(t, err)
	v, _, _ = s.MapGet(ctx, "m", "f")
	assert.Equal(t, "12", v)

	// FieldDelete removes the field.
	err = s.UpdateMapField(ctx, "m", "f", func(string, bool) (string, FieldOp, error) {
		return "", FieldDelete, nil
	})
	require.NoError(t, err)
	_, ok, _ = s.MapGet(ctx, "m", "f")
	assert.False(t, ok)

	// Errors from the update function propagate unchanged.
	wantErr := fmt.Errorf("boom")
	err = s.UpdateMapField(ctx, "m", "f", func(string, bool) (string, FieldOp, error) {
		return "", FieldKeep, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestLocal_ConcurrentAppends(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.ListAppend(ctx, "l", fmt.Sprintf("item-%d", i)))
		}(i)
	}
	wg.Wait()

	items, err := s.ListRange(ctx, "l")
	require.NoError(t, err)
	assert.Len(t, items, n)
}
