package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"rental-backend/internal/logger"
)

// ServiceName is the health service entry that tracks the rental store
const ServiceName = "rental.v1.RentalService"

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	*grpc.Server
	health *health.Server
	store  Pinger
}

// NewServer returns a gRPC server exposing grpc.health.v1 and reflection
func NewServer(store Pinger) *Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return &Server{Server: s, health: hs, store: store}
}

// CheckStore pings the store once and publishes the result
func (s *Server) CheckStore(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if err := s.store.Ping(ctx); err != nil {
		logger.WarnContext(ctx, "Store health check failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
}

// MonitorStore runs CheckStore every interval until ctx is done
func (s *Server) MonitorStore(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.CheckStore(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown marks every service not serving and stops gracefully
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.GracefulStop()
}

func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	requestID := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get("x-request-id"); len(ids) > 0 {
			requestID = ids[0]
		}
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = logger.WithRequestID(ctx, requestID)

	start := time.Now()
	resp, err := handler(ctx, req)
	logger.DebugContext(ctx, "gRPC call", "method", info.FullMethod,
		"code", status.Code(err).String(), "duration_ms", time.Since(start).Milliseconds())
	return resp, err
}
