package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const requestIDHeader = "x-request-id"

var grpcRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: common.ServiceName,
		Name:      "grpc_requests_total",
		Help:      "Total gRPC requests to the verification API.",
	},
	[]string{"method", "code"},
)

// loggingInterceptor tags every call with a request id, returned to the
// caller in the x-request-id header, and logs method, code and duration.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	requestID := uuid.NewString()
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(requestIDHeader); len(v) > 0 && v[0] != "" {
			requestID = v[0]
		}
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, requestID))

	resp, err := handler(ctx, req)

	code := status.Code(err)
	grpcRequestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
	s.logger.Info(ctx, "grpc request",
		"method", info.FullMethod,
		"request_id", requestID,
		"code", code.String(),
		"duration", time.Since(start))

	return resp, err
}
