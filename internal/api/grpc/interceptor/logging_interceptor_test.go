package interceptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoggingInterceptor_Unary(t *testing.T) {
	unary := NewLoggingInterceptor().Unary()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	t.Run("Passes Through Response", func(t *testing.T) {
		resp, err := unary(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return "resp", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "resp", resp)
	})

	t.Run("Passes Through Error", func(t *testing.T) {
		want := status.Error(codes.Unavailable, "down")
		_, err := unary(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, want
		})
		assert.Equal(t, codes.Unavailable, status.Code(err))
	})
}
