package main

import (
	"context"
	"net"
	"time"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	config "github.com/NordCoder/Uptimer/internal/config/uptimer"
	"github.com/NordCoder/Uptimer/internal/obs"
)

const healthService = "uptimer"

// buildGRPCServer exposes the standard gRPC health service for orchestrators. The
// public API is HTTP only.
func buildGRPCServer(cfg *config.Config, logger *zap.Logger) (*grpc.Server, net.Listener, *health.Server, error) {
	srv := grpc.NewServer(obs.GRPCServerOpts()...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	grpcprometheus.Register(srv)

	ln, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Debug("grpc health registered", zap.String("service", healthService))
	return srv, ln, hs, nil
}

// watchHealth mirrors the dependency check into the gRPC health status until ctx ends.
func watchHealth(ctx context.Context, hs *health.Server, check obs.HealthFunc, logger *zap.Logger) {
	t := time.NewTicker(5 * time.Second)
	defer t.Stop()
	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := healthpb.HealthCheckResponse_SERVING
		cctx, cancel := context.WithTimeout(ctx, time.Second)
		if err := check(cctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if last != status {
				logger.Warn("health check failing", zap.Error(err))
			}
		}
		cancel()
		if status != last {
			hs.SetServingStatus("", status)
			hs.SetServingStatus(healthService, status)
			last = status
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func serveGRPC(s *grpc.Server, ln net.Listener, logger *zap.Logger) error {
	logger.Info("grpc listening", zap.String("addr", ln.Addr().String()))
	return s.Serve(ln)
}

// gracefulStopGRPC falls back to a hard stop when draining outlives ctx.
func gracefulStopGRPC(ctx context.Context, s *grpc.Server) {
	done := make(chan struct{})
	go func() { s.GracefulStop(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		s.Stop()
	}
}
