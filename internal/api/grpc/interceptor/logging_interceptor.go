package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"smartpark-backend/internal/logger"
)

// LoggingInterceptor logs every unary RPC with its status code and latency.
type LoggingInterceptor struct{}

func NewLoggingInterceptor() *LoggingInterceptor {
	return &LoggingInterceptor{}
}

// Unary returns a server interceptor that logs unary RPCs
func (i *LoggingInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		args := []any{"method", info.FullMethod, "code", code.String(), "latency", time.Since(start).String()}
		if err != nil {
			logger.Warn("gRPC call failed", append(args, "error", err)...)
		} else {
			logger.Debug("gRPC call completed", args...)
		}
		return resp, err
	}
}

// Stream returns a server interceptor that logs streaming RPCs, which the
// health Watch method uses.
func (i *LoggingInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logger.Debug("gRPC stream closed", "method", info.FullMethod, "code", status.Code(err).String(), "latency", time.Since(start).String())
		return err
	}
}
