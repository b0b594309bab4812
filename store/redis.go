package store

import (
	"context"
	"errors"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/agentgrid/logging"
)

// RedisOptions configure the networked store.
type RedisOptions struct {
	// MaxRetries bounds the number of optimistic-commit attempts per
	// mutation. Zero means retry until the commit succeeds; under a live
	// conflict that can starve a participant indefinitely.
	MaxRetries int

	// Logger receives debug entries for commit conflicts.
	Logger logging.Logger
}

// RedisStore is a Store backed by a Redis database reachable from multiple
// independent agent processes. Every mutating operation that spans a read and
// a write runs as an optimistic transaction: watch the key, read, compute,
// commit conditionally on the key being unchanged, retry on conflict.
// Single-command mutations (RPUSH, LREM, HSET, HSETNX, HDEL) are atomic on
// the server and need no transaction.
type RedisStore struct {
	client     *redis.Client
	maxRetries int
	logger     logging.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. The caller owns client construction
// (address, credentials, TLS); see the config package for the standard path.
func NewRedisStore(client *redis.Client, optFns ...func(o *RedisOptions)) *RedisStore {
	opts := RedisOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisStore{client: client, maxRetries: opts.MaxRetries, logger: opts.Logger}
}

// Get returns the scalar value stored at key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores a scalar value at key.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// Exists reports whether key holds any value.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, err
}

// Delete removes key. Absent keys are a no-op.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// ListRange returns all elements of the list at key in insertion order.
func (s *RedisStore) ListRange(ctx context.Context, key string) ([]string, error) {
	return s.client.LRange(ctx, key, 0, -1).Result()
}

// ListAppend appends values to the tail of the list at key.
func (s *RedisStore) ListAppend(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return s.client.RPush(ctx, key, args...).Err()
}

// ListAppendUnique appends value unless it is already an element. The
// membership check and the append are committed as one optimistic transaction
// so two processes adding the same value cannot both append it.
func (s *RedisStore) ListAppendUnique(ctx context.Context, key, value string) error {
	return s.optimistic(ctx, "list_append_unique", key, func(tx *redis.Tx) error {
		members, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		if slices.Contains(members, value) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, value)
			return nil
		})
		return err
	})
}

// ListRemove removes the first occurrence of value from the list at key.
func (s *RedisStore) ListRemove(ctx context.Context, key, value string) error {
	return s.client.LRem(ctx, key, 1, value).Err()
}

// MapGet returns one field of the hash at key.
func (s *RedisStore) MapGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// MapSet writes one field of the hash at key.
func (s *RedisStore) MapSet(ctx context.Context, key, field, value string) error {
	return s.client.HSet(ctx, key, field, value).Err()
}

// MapSetIfAbsent writes the field only when it does not exist yet. HSETNX is
// atomic on the server, so no transaction is needed.
func (s *RedisStore) MapSetIfAbsent(ctx context.Context, key, field, value string) (bool, error) {
	return s.client.HSetNX(ctx, key, field, value).Result()
}

// MapDelete removes fields from the hash at key.
func (s *RedisStore) MapDelete(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.client.HDel(ctx, key, fields...).Err()
}

// MapGetAll returns every field of the hash at key.
func (s *RedisStore) MapGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

// UpdateMapField atomically read-modify-writes one hash field: the field is
// read under WATCH, fn computes the replacement, and the write commits only
// if the key was untouched since the read.
func (s *RedisStore) UpdateMapField(ctx context.Context, key, field string, fn MapFieldUpdateFunc) error {
	return s.optimistic(ctx, "update_map_field", key, func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, field).Result()
		exists := true
		if errors.Is(err, redis.Nil) {
			cur, exists = "", false
		} else if err != nil {
			return err
		}
		next, op, err := fn(cur, exists)
		if err != nil {
			return err
		}
		if op == FieldKeep {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			switch op {
			case FieldSet:
				pipe.HSet(ctx, key, field, next)
			case FieldDelete:
				pipe.HDel(ctx, key, field)
			}
			return nil
		})
		return err
	})
}

// Close closes the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

// optimistic runs fn under WATCH on key and retries on commit conflicts up to
// the configured bound (unbounded when zero).
func (s *RedisStore) optimistic(ctx context.Context, op, key string, fn func(tx *redis.Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := s.client.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		s.logger.Debug("store.commit_conflict", "op", op, "key", key, "attempt", attempt)
		if s.maxRetries > 0 && attempt >= s.maxRetries {
			return ErrTooManyConflicts
		}
	}
}
