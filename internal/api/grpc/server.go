// Package grpc serves the operational gRPC endpoint: the standard health
// service, whose status follows the store, plus reflection for grpcurl.
package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"smartpark-backend/internal/api/grpc/interceptor"
	"smartpark-backend/internal/logger"
)

// ServiceName is the health entry reported alongside the overall status.
const ServiceName = "smartpark.Parking"

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer keeps the gRPC health status in step with a store ping.
type HealthServer struct {
	health   *health.Server
	pinger   Pinger
	interval time.Duration
}

func NewHealthServer(pinger Pinger, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthServer{
		health:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
	}
}

// Check pings the store once and publishes the result.
func (h *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.Ping(ctx); err != nil {
		logger.Warn("Health check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	return status
}

// Run re-checks health on every interval until ctx is cancelled, then marks
// the server as shutting down.
func (h *HealthServer) Run(ctx context.Context) {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// NewServer builds a gRPC server exposing health and reflection.
func NewServer(hs *HealthServer) *grpc.Server {
	logging := interceptor.NewLoggingInterceptor()
	s := grpc.NewServer(
		grpc.UnaryInterceptor(logging.Unary()),
		grpc.StreamInterceptor(logging.Stream()),
	)
	healthpb.RegisterHealthServer(s, hs.health)
	reflection.Register(s)
	return s
}
