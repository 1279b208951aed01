package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"media-ingest/internal/database"
	"media-ingest/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// DefaultStatusTTL is how long a status entry can be polled.
const DefaultStatusTTL = 24 * time.Hour

// StatusStore records processing status by correlation id so clients can
// poll an upload they started.
type StatusStore interface {
	Set(ctx context.Context, correlationID string, status database.Status) error
	// Get returns false when the id is unknown or has expired.
	Get(ctx context.Context, correlationID string) (database.Status, bool, error)
}

func recordStatusOp(backend, op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StatusStoreOperationsTotal.WithLabelValues(backend, op, status).Inc()
}

type statusEntry struct {
	status  database.Status
	expires time.Time
}

// MemoryStatusStore keeps statuses in process memory. Entries expire after
// the TTL; expired entries are swept by a write at most once per TTL.
type MemoryStatusStore struct {
	mu        sync.Mutex
	entries   map[string]statusEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStatusStore returns an empty store. A ttl of zero uses
// DefaultStatusTTL.
func NewMemoryStatusStore(ttl time.Duration) *MemoryStatusStore {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &MemoryStatusStore{
		entries: make(map[string]statusEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Set implements StatusStore.
func (s *MemoryStatusStore) Set(_ context.Context, id string, status database.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	switch {
	case s.lastSweep.IsZero():
		s.lastSweep = now
	case now.Sub(s.lastSweep) >= s.ttl:
		s.sweep(now)
	}
	s.entries[id] = statusEntry{status: status, expires: now.Add(s.ttl)}
	recordStatusOp("memory", "set", nil)
	return nil
}

// sweep drops expired entries. The caller holds s.mu.
func (s *MemoryStatusStore) sweep(now time.Time) {
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
		}
	}
	s.lastSweep = now
}

// Get implements StatusStore.
func (s *MemoryStatusStore) Get(_ context.Context, id string) (database.Status, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordStatusOp("memory", "get", nil)
	e, ok := s.entries[id]
	if !ok || s.now().After(e.expires) {
		return "", false, nil
	}
	return e.status, true, nil
}

// Len returns the number of live entries.
func (s *MemoryStatusStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for _, e := range s.entries {
		if !now.After(e.expires) {
			n++
		}
	}
	return n
}

// RedisStatusStore keeps statuses in Redis so every replica can answer a
// poll.
type RedisStatusStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStatusStore wraps client. Keys are written as prefix+id.
func NewRedisStatusStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStatusStore {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	if prefix == "" {
		prefix = "media-ingest:status:"
	}
	return &RedisStatusStore{client: client, prefix: prefix, ttl: ttl}
}

// Set implements StatusStore.
func (s *RedisStatusStore) Set(ctx context.Context, id string, status database.Status) error {
	err := s.client.Set(ctx, s.prefix+id, string(status), s.ttl).Err()
	recordStatusOp("redis", "set", err)
	if err != nil {
		return fmt.Errorf("redis set status %s: %w", id, err)
	}
	return nil
}

// Get implements StatusStore.
func (s *RedisStatusStore) Get(ctx context.Context, id string) (database.Status, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+id).Result()
	if errors.Is(err, redis.Nil) {
		recordStatusOp("redis", "get", nil)
		return "", false, nil
	}
	recordStatusOp("redis", "get", err)
	if err != nil {
		return "", false, fmt.Errorf("redis get status %s: %w", id, err)
	}
	return database.Status(val), true, nil
}

// Ping checks the Redis connection.
func (s *RedisStatusStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
