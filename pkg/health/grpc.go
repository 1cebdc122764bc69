package health

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// GRPCServer exposes the checker through the standard grpc.health.v1 service
type GRPCServer struct {
	server *grpc.Server
	health *grpchealth.Server
}

// NewGRPCServer mirrors checker results into the gRPC health service.
// The overall status is published under the empty service name and each
// component under its own name.
func NewGRPCServer(checker *Checker) *GRPCServer {
	s := &GRPCServer{
		server: grpc.NewServer(),
		health: grpchealth.NewServer(),
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)

	s.sync(checker)
	checker.OnChange(func(bool) { s.sync(checker) })
	return s
}

func (s *GRPCServer) sync(checker *Checker) {
	s.health.SetServingStatus("", servingStatus(checker.IsSystemHealthy()))
	for name, comp := range checker.GetStatus() {
		s.health.SetServingStatus(name, servingStatus(comp.Status != StatusDown))
	}
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// Serve blocks serving on lis until Stop
func (s *GRPCServer) Serve(lis net.Listener) error {
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}

// Stop drains in-flight calls, or forces them closed when ctx ends first
func (s *GRPCServer) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}
}
