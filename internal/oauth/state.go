package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewState returns a URL-safe random state value.
func NewState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// StateStore persists issued OAuth states until the callback consumes
// them. A state is single use.
type StateStore interface {
	Save(ctx context.Context, state string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (bool, error)
}

const stateKeyPrefix = "oauth:state:"

// RedisStateStore keeps states in Redis so callbacks can land on any
// replica.
type RedisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore wraps the client.
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// Save stores the state with a TTL.
func (s *RedisStateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	return s.client.Set(ctx, stateKeyPrefix+state, "1", ttl).Err()
}

// Consume deletes the state and reports whether it existed.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (bool, error) {
	deleted, err := s.client.Del(ctx, stateKeyPrefix+state).Result()
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

// MemoryStateStore is the in-process fallback, also used by tests.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

// NewMemoryStateStore builds an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]time.Time)}
}

// Save stores the state with a TTL.
func (s *MemoryStateStore) Save(_ context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = time.Now().Add(ttl)
	return nil
}

// Consume removes the state and reports whether it was present and unexpired.
func (s *MemoryStateStore) Consume(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.states[state]
	if !ok {
		return false, nil
	}
	delete(s.states, state)
	return time.Now().Before(expiry), nil
}
