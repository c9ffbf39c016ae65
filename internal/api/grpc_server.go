package api

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// StockServiceName is the health check service name reported next to "".
const StockServiceName = "stock.v1.StockService"

// GrpcServer exposes the standard gRPC health protocol for orchestrators.
type GrpcServer struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	logger     *zap.Logger
}

func NewGrpcServer(addr string, logger *zap.Logger) (*GrpcServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(StockServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &GrpcServer{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		logger:     logger.Named("grpc"),
	}, nil
}

func (s *GrpcServer) Addr() string {
	return s.listener.Addr().String()
}

// SetServing flips the reported status, e.g. while consumers are down.
func (s *GrpcServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(StockServiceName, status)
}

// Serve blocks until ctx is cancelled, then stops gracefully.
func (s *GrpcServer) Serve(ctx context.Context) error {
	s.logger.Info("gRPC listening", zap.String("addr", s.Addr()))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case err := <-serveErr:
		return fmt.Errorf("serve gRPC: %w", err)
	}
}
