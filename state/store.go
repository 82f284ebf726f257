// Package state keeps render run status snapshots and persists them.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"slidestudio/types"
)

// ErrNotFound is returned for unknown run IDs.
var ErrNotFound = errors.New("state: run not found")

// Store persists run status snapshots.
type Store interface {
	Save(ctx context.Context, status *types.RunStatus) error
	Load(ctx context.Context, runID string) (*types.RunStatus, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, runID string) error
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]byte)}
}

// Save stores a copy of status.
func (m *MemoryStore) Save(ctx context.Context, status *types.RunStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[status.RunID] = data
	return nil
}

// Load returns a copy of the stored snapshot.
func (m *MemoryStore) Load(ctx context.Context, runID string) (*types.RunStatus, error) {
	m.mu.RLock()
	data, ok := m.runs[runID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var status types.RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// List returns the stored run IDs, sorted.
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a snapshot.
func (m *MemoryStore) Delete(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runID)
	return nil
}

const (
	runKeyPrefix = "slidestudio:run:"
	runIndexKey  = "slidestudio:runs"
)

func runKey(runID string) string { return runKeyPrefix + runID }

// RedisStore keeps snapshots in redis as JSON strings that expire after TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Save writes the snapshot and indexes its run ID.
func (r *RedisStore) Save(ctx context.Context, status *types.RunStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, runKey(status.RunID), data, r.ttl)
		pipe.SAdd(ctx, runIndexKey, status.RunID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", status.RunID, err)
	}
	return nil
}

// Load reads a snapshot.
func (r *RedisStore) Load(ctx context.Context, runID string) (*types.RunStatus, error) {
	data, err := r.client.Get(ctx, runKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis load %s: %w", runID, err)
	}
	var status types.RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &status, nil
}

// List returns indexed run IDs whose snapshot has not expired. Expired
// entries are pruned from the index.
func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, runIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list runs: %w", err)
	}
	live := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := r.client.Exists(ctx, runKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			r.client.SRem(ctx, runIndexKey, id)
			continue
		}
		live = append(live, id)
	}
	sort.Strings(live)
	return live, nil
}

// Delete removes a snapshot and its index entry.
func (r *RedisStore) Delete(ctx context.Context, runID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, runKey(runID))
		pipe.SRem(ctx, runIndexKey, runID)
		return nil
	})
	return err
}

// Close closes the redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
