package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	config "github.com/NordCoder/Uptimer/internal/config/uptimer"
	"github.com/NordCoder/Uptimer/internal/obs"
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

	logger, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting uptimer",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("alerts", cfg.Alerts.Mode),
		zap.String("sessions", cfg.Session.Driver),
		zap.Duration("interval", cfg.Monitor.Interval),
	)

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.AsOTELConfig())
	if err != nil {
		logger.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	a, err := buildApp(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("build", zap.Error(err))
	}
	defer a.close()

	// Probes and the outbox relay run on their own context so that HTTP shutdown
	// happens first and in-flight probes still finish and persist.
	workCtx, stopWork := context.WithCancel(context.Background())
	defer stopWork()

	monitorErrCh := make(chan error, 1)
	go func() { monitorErrCh <- a.runner.Run(workCtx) }()
	for _, bg := range a.background {
		go func() {
			if err := bg(workCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker", zap.Error(err))
			}
		}()
	}

	grpcErrCh := make(chan error, 1)
	go func() { grpcErrCh <- serveGRPC(a.grpc, a.grpcLn, logger) }()

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(a.http, logger) }()

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		metricsSrv = obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, a.ping, logger)
	}

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	case err := <-grpcErrCh:
		if err != nil {
			logger.Error("grpc serve", zap.Error(err))
		}
	case err := <-monitorErrCh:
		logger.Error("monitor stopped", zap.Error(err))
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	a.health.Shutdown()
	if err := a.http.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	gracefulStopGRPC(shCtx, a.grpc)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shCtx)
	}

	stopWork()
	waitDone := make(chan struct{})
	go func() { a.runner.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-shCtx.Done():
		logger.Warn("probes still running at shutdown deadline")
	}
	logger.Info("bye")
}
