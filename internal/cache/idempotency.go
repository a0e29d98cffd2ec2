package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GTDGit/storefront_api/internal/utils"
)

const idempotencyPending = "pending"

// IdempotencyStore maps a client supplied checkout key to the order it created.
type IdempotencyStore interface {
	// Reserve claims key. When the key already completed, the stored order id
	// is returned with reserved=false. A key still in flight yields
	// utils.ErrCheckoutInProgress.
	Reserve(ctx context.Context, key string) (orderID string, reserved bool, err error)
	Complete(ctx context.Context, key, orderID string) error
	Release(ctx context.Context, key string) error
}

// RedisIdempotencyStore implements IdempotencyStore with SETNX.
type RedisIdempotencyStore struct {
	redis *RedisClient
	ttl   time.Duration
}

func NewRedisIdempotencyStore(redis *RedisClient, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{redis: redis, ttl: ttl}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idem:checkout:%s", key)
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (string, bool, error) {
	ok, err := s.redis.SetNX(ctx, idempotencyKey(key), idempotencyPending, s.ttl)
	if err != nil {
		return "", false, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return "", true, nil
	}

	v, err := s.redis.Get(ctx, idempotencyKey(key))
	if errors.Is(err, ErrCacheMiss) {
		// Expired between SETNX and GET; try once more.
		ok, err = s.redis.SetNX(ctx, idempotencyKey(key), idempotencyPending, s.ttl)
		if err != nil {
			return "", false, fmt.Errorf("redis setnx failed: %w", err)
		}
		if ok {
			return "", true, nil
		}
		return "", false, utils.ErrCheckoutInProgress
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	if v == idempotencyPending {
		return "", false, utils.ErrCheckoutInProgress
	}
	return v, false, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, orderID string) error {
	return s.redis.Set(ctx, idempotencyKey(key), orderID, s.ttl)
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.redis.Delete(ctx, idempotencyKey(key))
}

type memoryIdemEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryIdempotencyStore is the offline IdempotencyStore.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryIdemEntry
	now     func() time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{ttl: ttl, entries: make(map[string]memoryIdemEntry), now: time.Now}
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		if e.value == idempotencyPending {
			return "", false, utils.ErrCheckoutInProgress
		}
		return e.value, false, nil
	}
	s.entries[key] = memoryIdemEntry{value: idempotencyPending, expiresAt: now.Add(s.ttl)}
	return "", true, nil
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, key, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryIdemEntry{value: orderID, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
