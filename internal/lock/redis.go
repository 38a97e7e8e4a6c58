package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rental-backend/internal/logger"
	"rental-backend/internal/metrics"
)

const keyPrefix = "rental:lock:"

// releaseScript deletes the key only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every instance pointing at the same Redis.
//
// The key expires after ttl and is not renewed, so exclusion only holds for sections shorter
// than ttl (redis.lock_ttl_ms). Past that another instance may enter; Postgres row locks taken
// with FOR UPDATE still serialise the writes themselves. An expired release is logged and counted
// in rental_lock_expired_total.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl, retry time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	return &RedisLocker{client: client, ttl: ttl, retry: retry}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	return func() {
		// release must run even when the request context is already cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Int64()
		l.reportRelease(key, deleted, err)
	}, nil
}

// reportRelease flags releases that found the key gone or owned by someone else
func (l *RedisLocker) reportRelease(key string, deleted int64, err error) {
	switch {
	case err != nil:
		logger.Warn("Failed to release redis lock", "key", key, "error", err)
	case deleted == 0:
		metrics.LockExpired.Inc()
		logger.Warn("Redis lock expired before release", "key", key, "ttl", l.ttl)
	}
}

// NewRedisClient connects and pings, returning an error the caller can degrade on
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
