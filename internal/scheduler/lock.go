package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Fi44er/roi_ledger/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out a named, expiring lock. ok is false when someone else
// holds it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Deletes the key only while it still holds our token, so an expired lock
// that someone else re-acquired is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker coordinates instances through SET NX with a TTL.
type RedisLocker struct {
	client *redis.Client
	logger *utils.Logger
}

func NewRedisLocker(client *redis.Client, logger *utils.Logger) *RedisLocker {
	return &RedisLocker{client: client, logger: logger}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		switch {
		case err != nil:
			l.logger.Warnf("Failed to release lock %s, it stays until its ttl expires: %v", key, err)
		case deleted == 0:
			l.logger.Warnf("Lock %s expired before release", key)
		}
	}
	return release, true, nil
}

// LocalLocker is the single-instance fallback when Redis is not configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time)}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return nil, false, nil
	}
	l.held[key] = now.Add(ttl)

	release := func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}
	return release, true, nil
}
