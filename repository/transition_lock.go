package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLocked is returned when another operation holds the product lock.
var ErrLocked = errors.New("product is locked by another curation operation")

// TransitionLock serialises status-changing operations on one product id.
type TransitionLock interface {
	// Acquire returns a release func, or ErrLocked when the lock is held.
	Acquire(ctx context.Context, productID string) (func(), error)
}

func lockKey(productID string) string {
	return fmt.Sprintf("curation:lock:%s", productID)
}

var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisTransitionLock struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisTransitionLock(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisTransitionLock {
	return &RedisTransitionLock{client: client, ttl: ttl, logger: logger}
}

func (l *RedisTransitionLock) Acquire(ctx context.Context, productID string) (func(), error) {
	key := lockKey(productID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", productID, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() {
		// the caller's context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseLock.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("failed to release curation lock", zap.String("product_id", productID), zap.Error(err))
		}
	}, nil
}

// MemoryTransitionLock guards transitions within one process.
type MemoryTransitionLock struct {
	mu    sync.Mutex
	ttl   time.Duration
	held  map[string]memoryLock
	now   func() time.Time
	token uint64
}

type memoryLock struct {
	token     uint64
	expiresAt time.Time
}

func NewMemoryTransitionLock(ttl time.Duration) *MemoryTransitionLock {
	return &MemoryTransitionLock{ttl: ttl, held: make(map[string]memoryLock), now: time.Now}
}

func (l *MemoryTransitionLock) Acquire(_ context.Context, productID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.held[productID]; ok && l.now().Before(cur.expiresAt) {
		return nil, ErrLocked
	}
	l.token++
	token := l.token
	l.held[productID] = memoryLock{token: token, expiresAt: l.now().Add(l.ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.held[productID]; ok && cur.token == token {
			delete(l.held, productID)
		}
	}, nil
}
