package producer

import (
	"context"
	"time"

	"go-leave/internal/messaging/kafka"
	"go-leave/internal/shared/metrics"

	"go.uber.org/zap"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultBatchSize    = 50
)

// Relay moves committed outbox rows to Kafka. Delivery is at least once: a row is
// marked sent only after the broker acknowledged it.
type Relay struct {
	repo         kafka.OutboxRepository
	writer       MessageWriter
	pollInterval time.Duration
	batchSize    int
	logger       *zap.Logger
}

func NewRelay(repo kafka.OutboxRepository, writer MessageWriter, pollInterval time.Duration, logger ...*zap.Logger) *Relay {
	l := zap.L().Named("kafka.producer.relay")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("kafka.producer.relay")
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Relay{
		repo:         repo,
		writer:       writer,
		pollInterval: pollInterval,
		batchSize:    defaultBatchSize,
		logger:       l,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", zap.Duration("poll_interval", r.pollInterval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil {
				r.logger.Error("process outbox events failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch publishes one batch of due rows and returns how many were sent.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	events, err := r.repo.ListPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	r.logger.Debug("processing pending outbox events", zap.Int("count", len(events)))

	sent := 0
	for _, event := range events {
		log := r.logger.With(
			zap.String("outbox_id", event.ID),
			zap.String("event_type", event.EventType),
			zap.String("topic", event.Topic),
			zap.String("request_id", event.RequestID),
		)

		if err := publishEvent(ctx, r.writer, event); err != nil {
			log.Error("publish outbox event failed", zap.Int("retry_count", event.RetryCount), zap.Error(err))
			metrics.OutboxEventsTotal.WithLabelValues("failed").Inc()
			if markErr := r.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
				log.Error("mark outbox failed failed", zap.Error(markErr))
			}
			continue
		}

		if err := r.repo.MarkSent(ctx, event.ID); err != nil {
			log.Error("mark outbox sent failed", zap.Error(err))
			continue
		}

		metrics.OutboxEventsTotal.WithLabelValues("sent").Inc()
		log.Info("outbox event sent")
		sent++
	}
	return sent, nil
}
