package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// DefaultLockKey is the Redis key guarding ingestion.
const DefaultLockKey = "officesearch:ingest:lock"

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLock is a Lock shared by every process using the same Redis. The
// key expires after ttl so a crashed holder cannot block ingestion forever;
// ttl must exceed the longest expected run.
type RedisLock struct {
	client  *redis.Client
	key     string
	ttl     time.Duration
	maxWait time.Duration
	poll    time.Duration

	mu    sync.Mutex
	token string
}

// NewRedisLock creates a lock on key.
func NewRedisLock(client *redis.Client, key string, ttl, maxWait time.Duration) *RedisLock {
	if key == "" {
		key = DefaultLockKey
	}
	if maxWait <= 0 {
		maxWait = DefaultLockWait
	}
	return &RedisLock{
		client:  client,
		key:     key,
		ttl:     ttl,
		maxWait: maxWait,
		poll:    100 * time.Millisecond,
	}
}

func (l *RedisLock) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	token := uuid.NewString()
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			l.mu.Lock()
			l.token = token
			l.mu.Unlock()
			return nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrIngestionInProgress
		case <-ticker.C:
		}
	}
}

// Release deletes the key only if this lock still owns it.
func (l *RedisLock) Release() {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()
	if token == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		slog.Warn("release ingestion lock", "key", l.key, "error", err)
	}
}

func (l *RedisLock) Busy(ctx context.Context) bool {
	n, err := l.client.Exists(ctx, l.key).Result()
	if err != nil {
		slog.Warn("check ingestion lock", "key", l.key, "error", err)
		return false
	}
	return n > 0
}
