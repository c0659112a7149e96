package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Uptimer/internal/config/notifier"
	"github.com/NordCoder/Uptimer/internal/obs"
	"github.com/NordCoder/Uptimer/internal/obs/retry"
	"github.com/NordCoder/Uptimer/internal/repository/kafka"
	"github.com/NordCoder/Uptimer/internal/repository/records"
	"github.com/NordCoder/Uptimer/internal/repository/storage"
	"github.com/NordCoder/Uptimer/internal/services/notifier"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "optional YAML config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting alert-notifier",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("topic", cfg.In.Topic),
		zap.String("group_id", cfg.In.GroupID),
		zap.String("storage", cfg.Storage.Driver),
	)

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	store, err := storage.Open(rootCtx, cfg.Storage, l)
	if err != nil {
		l.Fatal("storage", zap.Error(err))
	}
	defer store.Close()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, store.Ping, l)

	cons := kafka.BootstrapConsumer(rootCtx, &kafka.ConsumerConfig{
		Brokers:       cfg.In.Brokers,
		GroupID:       cfg.In.GroupID,
		Topic:         cfg.In.Topic,
		FromBeginning: cfg.In.FromBeginning,
		Logger:        l,
		HandlerPolicy: retry.DeliveryPolicy("alert_consume", l),
	}, kafka.TopicSpec{NumPartitions: cfg.In.Partitions, MaxWait: 10 * time.Second}, l)
	defer func() { _ = cons.Close() }()

	sms, email := notifier.NewSenders(cfg.SMTP, cfg.Twilio, l)
	h := &notifier.Handler{
		Log:   l.With(zap.String("component", "notifier")),
		Store: records.NewNotificationRepo(store.Gateway),
		SMS:   sms,
		Email: email,
		Clock: notifier.SystemClock{},
	}
	runner := notifier.NewRunner(l, cons, h)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(rootCtx) }()

	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("consumer stopped", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
