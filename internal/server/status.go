// Package server exposes a running shell to other processes: a gRPC health
// service reporting daemon readiness, and a websocket gateway onto the
// event bridge.
package server

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the health service name that tracks daemon readiness.
const HealthService = "harbor.daemon"

// Status is the shell's gRPC status server.
type Status struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	port       int
}

// NewStatus creates a status server listening on localhost at the given
// port. Pass port 0 for dynamic allocation. The daemon starts out as not
// serving.
func NewStatus(port int) (*Status, error) {
	listener, err := (&net.ListenConfig{}).Listen(context.TODO(), "tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)

	return &Status{
		grpcServer: grpcServer,
		health:     hs,
		listener:   listener,
		port:       listener.Addr().(*net.TCPAddr).Port,
	}, nil
}

// Port returns the port the server is listening on.
func (s *Status) Port() int {
	return s.port
}

// SetServing records whether the daemon is ready.
func (s *Status) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(HealthService, st)
}

// Serve starts serving requests. This blocks until Stop is called.
func (s *Status) Serve() error {
	return s.grpcServer.Serve(s.listener)
}

// Stop gracefully stops the server.
func (s *Status) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
