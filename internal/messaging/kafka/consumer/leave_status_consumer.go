package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-leave/internal/audit"
	"go-leave/internal/events"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	LeaveStatusGroupID = "go-leave-status-notifier"
	dedupeTTL          = 7 * 24 * time.Hour

	defaultHandleAttempts = 5
	defaultRetryBackoff   = 500 * time.Millisecond
)

// MessageReader is the part of *kafkago.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// LeaveStatusConsumer turns leave_status_changed events into employee notifications.
// Delivery from the relay is at least once, so each outbox id is notified only once
// when a Redis client is configured.
type LeaveStatusConsumer struct {
	reader   MessageReader
	notifier audit.Logger
	rdb      redis.Cmdable
	logger   *zap.Logger

	attempts int
	backoff  time.Duration
}

func NewLeaveStatusConsumer(reader MessageReader, notifier audit.Logger, rdb redis.Cmdable, logger ...*zap.Logger) *LeaveStatusConsumer {
	l := zap.L().Named("kafka.consumer.leave_status")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("kafka.consumer.leave_status")
	}
	return &LeaveStatusConsumer{
		reader:   reader,
		notifier: notifier,
		rdb:      rdb,
		logger:   l,
		attempts: defaultHandleAttempts,
		backoff:  defaultRetryBackoff,
	}
}

// WithRetry sets how often a failing message is handled again before it is dropped,
// and the initial delay between attempts. The delay doubles after each attempt.
func (c *LeaveStatusConsumer) WithRetry(attempts int, backoff time.Duration) *LeaveStatusConsumer {
	if attempts < 1 {
		attempts = 1
	}
	c.attempts = attempts
	c.backoff = backoff
	return c
}

func (c *LeaveStatusConsumer) Run(ctx context.Context) {
	c.logger.Info("leave status consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("leave status consumer stopped")
				return
			}
			c.logger.Error("fetch leave status message failed", zap.Error(err))
			continue
		}

		if !c.handleWithRetry(ctx, msg) {
			c.logger.Info("leave status consumer stopped")
			return
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit leave status message failed", zap.Error(err))
		}
	}
}

// handleWithRetry retries the same message so a later commit never skips it. A message
// that still fails after every attempt is dropped and logged. It returns false when ctx
// ends first; the message stays uncommitted and is redelivered on restart.
func (c *LeaveStatusConsumer) handleWithRetry(ctx context.Context, msg kafkago.Message) bool {
	delay := c.backoff
	for attempt := 1; ; attempt++ {
		err := c.Handle(ctx, msg)
		if err == nil {
			return true
		}
		if attempt >= c.attempts {
			c.logger.Error("dropping leave status message after retries",
				zap.Int64("offset", msg.Offset),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return true
		}

		c.logger.Warn("handle leave status message failed, retrying",
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// Handle processes one message. A nil error means the message may be committed;
// undecodable payloads are dropped rather than retried forever.
func (c *LeaveStatusConsumer) Handle(ctx context.Context, msg kafkago.Message) error {
	var event events.LeaveStatusChangedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Warn("decode leave_status_changed event failed, dropping", zap.Error(err))
		return nil
	}

	if c.rdb != nil {
		key := "leave-notify:" + dedupeKey(msg, event)
		first, err := c.rdb.SetNX(ctx, key, 1, dedupeTTL).Result()
		if err != nil {
			return fmt.Errorf("dedupe leave notification: %w", err)
		}
		if !first {
			c.logger.Debug("duplicate leave notification skipped", zap.String("key", key))
			return nil
		}
	}

	c.notifier.Log(ctx, audit.Entry{
		Action: "leave.notify_employee",
		Message: fmt.Sprintf("Leave request #%s for employee %s changed from %s to %s",
			event.LeaveID, event.EmployeeID, event.PreviousStatus, event.Status),
		Meta: map[string]any{
			"leave_id":    event.LeaveID,
			"employee_id": event.EmployeeID,
			"admin_id":    event.AdminID,
			"request_id":  event.RequestID,
		},
	})
	return nil
}

func dedupeKey(msg kafkago.Message, event events.LeaveStatusChangedEvent) string {
	for _, h := range msg.Headers {
		if h.Key == "outbox_id" && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return event.LeaveID + ":" + event.OccurredAt.UTC().Format(time.RFC3339Nano)
}
