package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Locker serializes read-modify-write cycles on a single key
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// KeyedMutex is the in-process Locker. Entries are dropped once unused.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock implements Locker
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}, nil
}

// RedisLocker is a Locker shared by every instance using the same Redis
type RedisLocker struct {
	redis *RedisService
	ttl   time.Duration
	retry time.Duration
}

// NewRedisLocker creates a Redis-backed locker
func NewRedisLocker(redisService *RedisService) *RedisLocker {
	return &RedisLocker{
		redis: redisService,
		ttl:   10 * time.Second,
		retry: 25 * time.Millisecond,
	}
}

// Lock implements Locker. It polls until the lock is free or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := "portal:lock:" + key
	token := uuid.NewString()

	for {
		acquired, err := l.redis.AcquireLock(ctx, lockKey, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, ctx.Err())
		case <-time.After(l.retry):
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if _, err := l.redis.ReleaseLock(releaseCtx, lockKey, token); err != nil {
			log.Printf("⚠️  [LOCK] Failed to release %s: %v", key, err)
		}
	}, nil
}

// NewLocker returns a Redis locker when Redis is available and an in-process one otherwise
func NewLocker(redisService *RedisService) Locker {
	if redisService != nil {
		return NewRedisLocker(redisService)
	}
	return NewKeyedMutex()
}
