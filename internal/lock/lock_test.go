package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func lockers(t *testing.T) map[string]Locker {
	_, client := setupTestRedis(t)
	return map[string]Locker{
		"local": NewLocalLocker(nil),
		"redis": NewRedisLocker(client, 5*time.Second, 5*time.Millisecond, nil),
	}
}

func TestWithLockSerializesSameID(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			id := uuid.New()
			var inside, maxInside int32
			var wg sync.WaitGroup

			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := l.WithLock(context.Background(), id, func(ctx context.Context) error {
						n := atomic.AddInt32(&inside, 1)
						for {
							m := atomic.LoadInt32(&maxInside)
							if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
								break
							}
						}
						time.Sleep(2 * time.Millisecond)
						atomic.AddInt32(&inside, -1)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()
			assert.EqualValues(t, 1, maxInside)
		})
	}
}

func TestWithLockDifferentIDsRunInParallel(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			a, b := uuid.New(), uuid.New()
			entered := make(chan struct{})
			release := make(chan struct{})

			go func() {
				_ = l.WithLock(context.Background(), a, func(ctx context.Context) error {
					close(entered)
					<-release
					return nil
				})
			}()
			<-entered

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			ran := false
			err := l.WithLock(ctx, b, func(ctx context.Context) error {
				ran = true
				return nil
			})
			close(release)

			require.NoError(t, err)
			assert.True(t, ran)
		})
	}
}

func TestWithLockGivesUpWhenContextEnds(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			id := uuid.New()
			entered := make(chan struct{})
			release := make(chan struct{})
			done := make(chan struct{})

			go func() {
				defer close(done)
				_ = l.WithLock(context.Background(), id, func(ctx context.Context) error {
					close(entered)
					<-release
					return nil
				})
			}()
			<-entered

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()
			err := l.WithLock(ctx, id, func(ctx context.Context) error {
				t.Fatal("must not run")
				return nil
			})
			close(release)
			<-done

			assert.ErrorIs(t, err, ErrLockNotAcquired)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		})
	}
}

func TestRedisLockReleasedAfterUse(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLocker(client, time.Second, time.Millisecond, nil)
	id := uuid.New()

	require.NoError(t, l.WithLock(context.Background(), id, func(ctx context.Context) error {
		assert.True(t, mr.Exists(lockKey(id)))
		return nil
	}))
	assert.False(t, mr.Exists(lockKey(id)))
}

func TestRedisReleaseKeepsForeignToken(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLocker(client, time.Second, time.Millisecond, nil).(*redisLocker)
	key := lockKey(uuid.New())

	require.NoError(t, mr.Set(key, "someone-else"))
	require.NoError(t, l.release(context.Background(), key, "mine"))

	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
