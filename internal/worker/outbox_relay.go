package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/internal/metrics"
	"github.com/prohmpiriya/eventic-admission/internal/repository"
	"github.com/prohmpiriya/eventic-admission/pkg/kafka"
	"github.com/prohmpiriya/eventic-admission/pkg/logger"
	"github.com/prohmpiriya/eventic-admission/pkg/retry"
)

// Publisher sends one message to the broker. *kafka.Producer implements it.
type Publisher interface {
	Produce(ctx context.Context, msg *kafka.Message) error
}

// OutboxRelayConfig contains configuration for the outbox relay
type OutboxRelayConfig struct {
	// PollInterval is the interval between polling for pending messages
	PollInterval time.Duration
	// BatchSize is the number of messages to fetch in each poll
	BatchSize int
	// RetryInterval is the interval between retrying failed messages
	RetryInterval time.Duration
	// CleanupInterval is the interval between cleanup of old published messages
	CleanupInterval time.Duration
	// CleanupRetentionDays is the number of days to retain published messages
	CleanupRetentionDays int
	// Publish is the in-process backoff for a single publish
	Publish *retry.Config
}

// DefaultOutboxRelayConfig returns default configuration
func DefaultOutboxRelayConfig() *OutboxRelayConfig {
	return &OutboxRelayConfig{
		PollInterval:         500 * time.Millisecond,
		BatchSize:            100,
		RetryInterval:        10 * time.Second,
		CleanupInterval:      time.Hour,
		CleanupRetentionDays: 7,
		Publish:              retry.DefaultConfig(),
	}
}

// OutboxRelay polls the admission outbox and publishes ticket.validated
// events. Run a single instance: pending rows are not claimed.
type OutboxRelay struct {
	outboxRepo repository.OutboxRepository
	publisher  Publisher
	retrier    *retry.Retrier
	config     *OutboxRelayConfig
	log        *logger.Logger
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewOutboxRelay creates a new outbox relay
func NewOutboxRelay(outboxRepo repository.OutboxRepository, publisher Publisher, config *OutboxRelayConfig) *OutboxRelay {
	def := DefaultOutboxRelayConfig()
	if config == nil {
		config = def
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = def.RetryInterval
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.CleanupRetentionDays <= 0 {
		config.CleanupRetentionDays = def.CleanupRetentionDays
	}

	return &OutboxRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		retrier:    retry.New(config.Publish),
		config:     config,
		log:        logger.Get().With(zap.String("component", "outbox-relay")),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the poll, retry and cleanup loops
func (w *OutboxRelay) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox relay already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("starting outbox relay",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	w.wg.Add(3)
	go w.loop(ctx, w.config.PollInterval, func(ctx context.Context) { _, _ = w.ProcessPending(ctx) })
	go w.loop(ctx, w.config.RetryInterval, func(ctx context.Context) { _, _ = w.ProcessFailed(ctx) })
	go w.loop(ctx, w.config.CleanupInterval, func(ctx context.Context) { _, _ = w.Cleanup(ctx) })

	return nil
}

// Stop stops the loops and waits for in-flight batches
func (w *OutboxRelay) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("stopping outbox relay")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("outbox relay stopped")
}

// IsRunning reports whether Start was called without Stop
func (w *OutboxRelay) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *OutboxRelay) loop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// ProcessPending publishes one batch of pending messages and returns how many
// were published
func (w *OutboxRelay) ProcessPending(ctx context.Context) (int, error) {
	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error("failed to get pending messages", zap.Error(err))
		return 0, err
	}
	return w.relay(ctx, messages), nil
}

// ProcessFailed retries one batch of failed messages that have retries left
func (w *OutboxRelay) ProcessFailed(ctx context.Context) (int, error) {
	messages, err := w.outboxRepo.GetFailedMessages(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error("failed to get failed messages", zap.Error(err))
		return 0, err
	}
	return w.relay(ctx, messages), nil
}

// Cleanup deletes published messages past retention
func (w *OutboxRelay) Cleanup(ctx context.Context) (int64, error) {
	deleted, err := w.outboxRepo.DeletePublished(ctx, w.config.CleanupRetentionDays)
	if err != nil {
		w.log.Error("failed to clean up outbox", zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		w.log.Info("cleaned up published outbox messages", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

func (w *OutboxRelay) relay(ctx context.Context, messages []*domain.OutboxMessage) int {
	published := 0
	for _, msg := range messages {
		if err := w.publish(ctx, msg); err != nil {
			metrics.OutboxMessage(string(domain.OutboxStatusFailed))
			w.log.Warn("failed to publish outbox message",
				zap.String("message_id", msg.ID),
				zap.Int("retry_count", msg.RetryCount),
				zap.Error(err),
			)
			if markErr := w.outboxRepo.MarkAsFailed(ctx, msg.ID, err.Error()); markErr != nil {
				w.log.Error("failed to mark message as failed", zap.String("message_id", msg.ID), zap.Error(markErr))
			}
			continue
		}

		metrics.OutboxMessage(string(domain.OutboxStatusPublished))
		published++
		if markErr := w.outboxRepo.MarkAsPublished(ctx, msg.ID); markErr != nil {
			w.log.Error("failed to mark message as published", zap.String("message_id", msg.ID), zap.Error(markErr))
		}
	}
	return published
}

func (w *OutboxRelay) publish(ctx context.Context, msg *domain.OutboxMessage) error {
	kafkaMsg := &kafka.Message{
		Topic: msg.Topic,
		Key:   []byte(msg.PartitionKey),
		Value: msg.Payload,
		Headers: map[string]string{
			"event_type":     msg.EventType,
			"aggregate_type": msg.AggregateType,
			"aggregate_id":   msg.AggregateID,
			"content_type":   "application/json",
			"source":         "outbox-relay",
		},
		Timestamp: msg.CreatedAt,
	}

	result := w.retrier.Do(ctx, func(ctx context.Context) error {
		return w.publisher.Produce(ctx, kafkaMsg)
	}, func(attempt int, err error, next time.Duration) {
		w.log.Debug("retrying publish",
			zap.String("message_id", msg.ID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	})
	if result.Err != nil {
		if result.LastError != nil {
			return result.LastError
		}
		return result.Err
	}
	return nil
}
