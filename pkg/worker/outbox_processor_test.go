package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/messaging"
	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
)

type statusUpdate struct {
	id      uuid.UUID
	status  model.OutboxStatus
	errMsg  *string
	retryAt *time.Time
}

type fakeOutboxRepo struct {
	mu       sync.Mutex
	pending  []*model.OutboxEvent
	updates  []statusUpdate
	deleted  time.Time
	claimErr error
}

func (r *fakeOutboxRepo) Create(context.Context, *model.OutboxEvent) error { return nil }

func (r *fakeOutboxRepo) ClaimPendingEvents(_ context.Context, limit int, _ time.Duration) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	n := limit
	if n > len(r.pending) {
		n = len(r.pending)
	}
	out := r.pending[:n]
	r.pending = r.pending[n:]
	return out, nil
}

func (r *fakeOutboxRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, statusUpdate{id, status, errMsg, retryAt})
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.deleted = before
	return 2, nil
}

type fakeBroker struct {
	mu        sync.Mutex
	failTimes int
	published []messaging.Message
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failTimes > 0 {
		b.failTimes--
		return errors.New("broker unavailable")
	}
	b.published = append(b.published, message.(messaging.Message))
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }
func (b *fakeBroker) Close() error                                             { return nil }

type fakeHandler struct {
	err     error
	handled []uuid.UUID
}

func (h *fakeHandler) HandleOutboxEvent(_ context.Context, e *model.OutboxEvent) error {
	h.handled = append(h.handled, e.ID)
	return h.err
}

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Millisecond,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		MaxDeliveries: 3,
		Retention:     24 * time.Hour,
		CleanupEvery:  time.Hour,
	}
}

func newEvent(retries int) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:         uuid.New(),
		EventType:  model.EventAppointmentCreated,
		Payload:    json.RawMessage(`{"type":"appointment.created"}`),
		RetryCount: retries,
	}
}

func TestProcessEventsPublishesAndMarksProcessed(t *testing.T) {
	evt := newEvent(0)
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{evt}}
	broker := &fakeBroker{failTimes: 1}
	handler := &fakeHandler{}
	p := NewOutboxProcessor(repo, broker, handler, testConfig(), logger.Nop(), metrics.NewNop())

	require.NoError(t, p.ProcessEvents(context.Background()))

	require.Len(t, broker.published, 1)
	assert.Equal(t, model.EventAppointmentCreated, broker.published[0].Type)
	assert.Equal(t, []uuid.UUID{evt.ID}, handler.handled)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, model.OutboxStatusProcessed, repo.updates[0].status)
}

func TestHandlerFailureSchedulesRetry(t *testing.T) {
	evt := newEvent(0)
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{evt}}
	p := NewOutboxProcessor(repo, &fakeBroker{}, &fakeHandler{err: errors.New("smtp down")}, testConfig(), logger.Nop(), metrics.NewNop())
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	require.NoError(t, p.ProcessEvents(context.Background()))

	require.Len(t, repo.updates, 1)
	u := repo.updates[0]
	assert.Equal(t, model.OutboxStatusRetry, u.status)
	require.NotNil(t, u.errMsg)
	assert.Equal(t, "smtp down", *u.errMsg)
	require.NotNil(t, u.retryAt)
	assert.Equal(t, now.Add(time.Millisecond), *u.retryAt)
}

func TestLastDeliveryMarksFailed(t *testing.T) {
	evt := newEvent(2)
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{evt}}
	broker := &fakeBroker{failTimes: 10}
	p := NewOutboxProcessor(repo, broker, nil, testConfig(), logger.Nop(), metrics.NewNop())

	require.NoError(t, p.ProcessEvents(context.Background()))

	require.Len(t, repo.updates, 1)
	assert.Equal(t, model.OutboxStatusFailed, repo.updates[0].status)
	assert.Nil(t, repo.updates[0].retryAt)
}

func TestClaimErrorIsReturned(t *testing.T) {
	repo := &fakeOutboxRepo{claimErr: errors.New("db down")}
	p := NewOutboxProcessor(repo, &fakeBroker{}, nil, testConfig(), logger.Nop(), metrics.NewNop())

	assert.ErrorContains(t, p.ProcessEvents(context.Background()), "db down")
}

func TestCleanupUsesRetention(t *testing.T) {
	repo := &fakeOutboxRepo{}
	p := NewOutboxProcessor(repo, &fakeBroker{}, nil, testConfig(), logger.Nop(), metrics.NewNop())
	now := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	n, err := p.Cleanup(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, now.Add(-24*time.Hour), repo.deleted)
}

func TestStartStopsOnCancel(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{newEvent(0)}}
	p := NewOutboxProcessor(repo, &fakeBroker{}, nil, testConfig(), logger.Nop(), metrics.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.updates) == 1
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
}

func TestNewOutboxProcessorRejectsBadConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewOutboxProcessor(&fakeOutboxRepo{}, &fakeBroker{}, nil, OutboxProcessorConfig{}, logger.Nop(), metrics.NewNop())
	})
}
