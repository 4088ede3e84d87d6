package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-leave/internal/config"
	"go-leave/internal/events"
	"go-leave/internal/messaging/kafka/consumer"
	"go-leave/internal/shared/connection"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RunConsumer turns leave status events into audit notifications until SIGINT or
// SIGTERM.
func RunConsumer(cfg *config.Configuration) error {
	logger := zap.L().Named("app.consumer")

	if cfg.KafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	auditLogger, err := NewAuditLogger(cfg)
	if err != nil {
		return err
	}
	defer auditLogger.Sync()

	var dedupe redis.Cmdable
	if cfg.RedisAddr != "" {
		rdb, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, cfg.Database.MaxRetries)
		if err != nil {
			return err
		}
		defer rdb.Close()
		dedupe = rdb
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.KafkaBroker},
		Topic:          events.LeaveStatusTopic,
		GroupID:        consumer.LeaveStatusGroupID,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer.NewLeaveStatusConsumer(reader, auditLogger, dedupe, logger).Run(ctx)
	logger.Info("consumer shutting down")
	return nil
}
