package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	config "github.com/NordCoder/Uptimer/internal/config/uptimer"
	"github.com/NordCoder/Uptimer/internal/domain/session"
	"github.com/NordCoder/Uptimer/internal/repository/records"
	redisx "github.com/NordCoder/Uptimer/internal/repository/redis"
	"github.com/NordCoder/Uptimer/internal/repository/storage"
	"github.com/NordCoder/Uptimer/internal/services/api"
	"github.com/NordCoder/Uptimer/internal/services/api/auth"
	"github.com/NordCoder/Uptimer/internal/services/api/check"
	"github.com/NordCoder/Uptimer/internal/services/api/middleware"
	"github.com/NordCoder/Uptimer/internal/services/api/userlock"
	"github.com/NordCoder/Uptimer/internal/services/monitor"
)

type app struct {
	store      *storage.Storage
	redis      *red.Client
	limiter    *middleware.RateLimiter
	runner     *monitor.Runner
	background []func(context.Context) error
	closers    []func()

	http   *http.Server
	grpc   *grpc.Server
	grpcLn net.Listener
	health *health.Server
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	a.store = store

	if cfg.Redis.Addr != "" {
		rdb, err := redisx.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = rdb
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	users := records.NewUserRepo(store.Gateway)
	checks := records.NewCheckRepo(store.Gateway)

	reg := monitor.NewRegistry()
	if err := reg.Load(ctx, checks); err != nil {
		return nil, fmt.Errorf("load checks: %w", err)
	}
	logger.Info("checks loaded", zap.Int("count", reg.Len()))

	dispatcher, err := buildDispatcher(ctx, cfg, a, logger)
	if err != nil {
		return nil, fmt.Errorf("alerts: %w", err)
	}

	engine := monitor.NewEngine(logger, reg, checks, users, dispatcher)
	prober := monitor.NewProber(monitor.NewHTTPClient(cfg.Probe), cfg.Probe)
	a.runner = monitor.NewRunner(logger, reg, prober, engine, cfg.Monitor)
	if cfg.Monitor.Lease.Enable {
		a.runner = a.runner.WithLease(redisx.NewLease(a.redis, "uptimer:lease"))
	}

	var sessions session.Store = records.NewSessionRepo(store.Gateway, func() time.Time { return time.Now().UTC() })
	if cfg.Session.Driver == config.SessionRedis {
		sessions = redisx.NewSessionStore(a.redis, cfg.Session.KeyPrefix)
	}

	locks := userlock.New()
	checkUC := check.New(checks, users, reg, locks, nil)
	authUC := auth.NewUseCase(users, sessions, checkUC, locks, auth.Config{TokenTTL: cfg.Session.TTL})
	a.limiter = middleware.NewRateLimiter(logger, cfg.RateLimit)

	a.http = buildHTTPServer(cfg, logger, api.Deps{
		Auth:    auth.NewHandler(logger, authUC),
		Checks:  check.NewHandler(logger, checkUC),
		Limiter: a.limiter,
		Health:  a.ping,
	})

	a.grpc, a.grpcLn, a.health, err = buildGRPCServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("grpc: %w", err)
	}
	a.background = append(a.background, func(ctx context.Context) error {
		watchHealth(ctx, a.health, a.ping, logger)
		return nil
	})

	ok = true
	return a, nil
}

// ping reports the storage and, when configured, redis as reachable.
func (a *app) ping(ctx context.Context) error {
	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}
