package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Uptimer/internal/config/uptimer"
	"github.com/NordCoder/Uptimer/internal/domain/alert"
	"github.com/NordCoder/Uptimer/internal/domain/notification"
	"github.com/NordCoder/Uptimer/internal/obs/retry"
	"github.com/NordCoder/Uptimer/internal/outbox"
	"github.com/NordCoder/Uptimer/internal/repository/kafka"
	"github.com/NordCoder/Uptimer/internal/repository/postgres"
	"github.com/NordCoder/Uptimer/internal/repository/records"
	"github.com/NordCoder/Uptimer/internal/services/notifier"
)

// buildDispatcher returns where the engine hands alerts off to:
//
//	outbox  enqueue in postgres, relay to kafka, alert-notifier delivers
//	kafka   publish straight to kafka
//	direct  deliver in-process via Twilio/SMTP
//	log     deliver in-process, senders only log
func buildDispatcher(ctx context.Context, cfg *config.Config, a *app, logger *zap.Logger) (alert.Dispatcher, error) {
	switch cfg.Alerts.Mode {
	case config.AlertsOutbox, config.AlertsKafka:
		ensureAlertTopic(ctx, cfg, logger)
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
		a.closers = append(a.closers, func() { _ = producer.Close() })
		events := kafka.NewAlertEventsKafka(producer)

		if cfg.Alerts.Mode == config.AlertsKafka {
			return events, nil
		}
		repo := postgres.NewOutboxRepo(a.store.PG)
		relay := outbox.NewOutboxRunner(logger, repo,
			outbox.MakeGlobalOutboxHandler(events, retry.DefaultKafkaPolicy(logger)), cfg.Outbox)
		a.background = append(a.background, relay.Run)
		return outbox.NewSink(repo), nil

	case config.AlertsDirect, config.AlertsLog:
		var (
			sms   notification.SMSSender
			email notification.EmailSender
		)
		if cfg.Alerts.Mode == config.AlertsDirect {
			sms, email = notifier.NewSenders(cfg.SMTP, cfg.Twilio, logger)
		} else {
			ls := notifier.LogSender{Log: logger.With(zap.String("component", "notifier.log_sender"))}
			sms, email = ls, ls
		}
		return &notifier.Handler{
			Log:    logger.With(zap.String("component", "notifier")),
			Store:  records.NewNotificationRepo(a.store.Gateway),
			SMS:    sms,
			Email:  email,
			Clock:  notifier.SystemClock{},
			Policy: retry.DeliveryPolicy("alert_delivery", logger),
		}, nil

	default:
		return nil, fmt.Errorf("unknown alerts mode %q", cfg.Alerts.Mode)
	}
}

func ensureAlertTopic(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, kafka.TopicSpec{
		Name:          cfg.Kafka.Topic,
		NumPartitions: cfg.Kafka.Partitions,
		MaxWait:       10 * time.Second,
	}, logger)
	if err != nil {
		logger.Warn("ensure alert topic", zap.Error(err))
	}
}
