package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/messaging"
	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	Lease         time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// MaxDeliveries is how many claims an event gets before it is marked failed.
	MaxDeliveries int
	Retention     time.Duration
	CleanupEvery  time.Duration
}

// EventHandler performs the side effects of one event after it is published.
type EventHandler interface {
	HandleOutboxEvent(ctx context.Context, event *model.OutboxEvent) error
}

type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	handler EventHandler
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	handler EventHandler,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	// Config validation instead of defaults
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}
	if config.MaxDeliveries <= 0 {
		panic("MaxDeliveries must be greater than 0")
	}
	if config.Lease <= 0 {
		config.Lease = time.Minute
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		handler: handler,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	var cleanup <-chan time.Time
	if p.config.Retention > 0 && p.config.CleanupEvery > 0 {
		t := time.NewTicker(p.config.CleanupEvery)
		defer t.Stop()
		cleanup = t.C
	}

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.ProcessEvents(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		case <-cleanup:
			if _, err := p.Cleanup(ctx); err != nil {
				p.logger.Error(err, "Failed to clean up outbox")
			}
		}
	}
}

// ProcessEvents claims one batch of due events and delivers them.
func (p *OutboxProcessor) ProcessEvents(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.ClaimPendingEvents(ctx, p.config.BatchSize, p.config.Lease)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "error").Inc()
		return fmt.Errorf("failed to claim pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "success").Inc()

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
			continue
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := retry(ctx, p.config.RetryAttempts, p.config.RetryDelay, func() error {
		return p.broker.Publish(ctx, messaging.ChannelAppointmentEvents, messaging.Message{
			Type:    event.EventType,
			Payload: json.RawMessage(event.Payload),
		})
	})
	if err == nil && p.handler != nil {
		err = p.handler.HandleOutboxEvent(ctx, event)
	}

	if err != nil {
		return p.fail(ctx, event, err)
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil, nil); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
		return err
	}

	return nil
}

// fail schedules another delivery with linear backoff, or gives up once the
// event has been claimed MaxDeliveries times.
func (p *OutboxProcessor) fail(ctx context.Context, event *model.OutboxEvent, cause error) error {
	errStr := cause.Error()
	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()

	if event.RetryCount+1 >= p.config.MaxDeliveries {
		p.metrics.OutboxEventsFailed.Inc()
		if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr, nil); err != nil {
			p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
		}
		return cause
	}

	retryAt := p.now().Add(p.config.RetryDelay * time.Duration(event.RetryCount+1))
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusRetry, &errStr, &retryAt); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
	}
	return cause
}

// Cleanup deletes processed events older than the retention window.
func (p *OutboxProcessor) Cleanup(ctx context.Context) (int64, error) {
	n, err := p.repo.DeleteProcessedBefore(ctx, p.now().Add(-p.config.Retention))
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("delete_processed_events", "error").Inc()
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("delete_processed_events", "success").Inc()
	if n > 0 {
		p.logger.Info("Deleted processed outbox events", "count", n)
	}
	return n, nil
}

// Helper retry function
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
