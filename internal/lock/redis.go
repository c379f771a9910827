package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
)

type redisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	metrics       *metrics.Metrics
}

// NewRedisLocker creates a locker that uses a per appointment Redis key.
// Acquisition polls until the key is free or ctx is done, so concurrent
// writers queue up instead of failing.
func NewRedisLocker(client *redis.Client, ttl, retryInterval time.Duration, m *metrics.Metrics) Locker {
	if retryInterval <= 0 {
		retryInterval = 25 * time.Millisecond
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &redisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: retryInterval,
		metrics:       m,
	}
}

func lockKey(id uuid.UUID) string {
	return fmt.Sprintf("lock:appointment:%s", id.String())
}

func (l *redisLocker) WithLock(ctx context.Context, id uuid.UUID, fn func(ctx context.Context) error) error {
	key := lockKey(id)
	token := uuid.NewString()

	start := time.Now()
	if err := l.acquire(ctx, key, token); err != nil {
		l.metrics.LockFailures.Inc()
		return err
	}
	l.metrics.LockWait.Observe(time.Since(start).Seconds())

	defer func() {
		// ctx may already be canceled; the release must still run.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = l.release(releaseCtx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *redisLocker) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire appointment lock: %w", err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Join(ErrLockNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release appointment lock: %w", err)
	}
	return nil
}
