package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-storefront/internal/state"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// MarkOnce sets key with ttl only when it is absent. It reports whether this
// call was the first to claim the key.
func MarkOnce(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, "1", ttl).Result()
}

// StateStore keeps client state in Redis, refreshing the TTL on every write.
type StateStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStateStore(rdb *redis.Client) *StateStore {
	return &StateStore{rdb: rdb, ttl: TTLState}
}

var _ state.Backend = (*StateStore)(nil)

func (s *StateStore) Get(ctx context.Context, session, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, stateKey(session, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, state.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return b, nil
}

func (s *StateStore) Set(ctx context.Context, session, key string, value []byte) error {
	if err := s.rdb.Set(ctx, stateKey(session, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *StateStore) Delete(ctx context.Context, session, key string) error {
	if err := s.rdb.Del(ctx, stateKey(session, key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func stateKey(session, key string) string {
	return fmt.Sprintf(KeyState, session, key)
}
