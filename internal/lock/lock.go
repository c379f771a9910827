// Package lock serializes writes to a single appointment.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
)

var (
	ErrLockNotAcquired = errors.New("appointment lock not acquired")
)

// Locker guards the load, clamp, validate and persist sequence for one
// appointment id. Different ids never contend.
type Locker interface {
	WithLock(ctx context.Context, id uuid.UUID, fn func(ctx context.Context) error) error
}

// localLocker is an in-process keyed mutex for single-instance deployments.
type localLocker struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	metrics *metrics.Metrics
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker(m *metrics.Metrics) Locker {
	if m == nil {
		m = metrics.NewNop()
	}
	return &localLocker{entries: make(map[uuid.UUID]*entry), metrics: m}
}

func (l *localLocker) WithLock(ctx context.Context, id uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}()

	start := time.Now()
	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.metrics.LockFailures.Inc()
		return errors.Join(ErrLockNotAcquired, ctx.Err())
	}
	l.metrics.LockWait.Observe(time.Since(start).Seconds())
	defer func() { <-e.ch }()

	return fn(ctx)
}
