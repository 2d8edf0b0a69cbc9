// Package grpc runs the gRPC health service that reports whether the
// server's dependencies are reachable.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/filedash/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health entry for the file API; "" covers the whole server.
const ServiceName = "filedash.Files"

const defaultProbeInterval = 10 * time.Second

// Probe reports an error while a dependency is unavailable.
type Probe func(ctx context.Context) error

type HealthServer struct {
	address  string
	probe    Probe
	interval time.Duration
	health   *health.Server
	logger   logging.Logger
}

// NewHealthServer builds the server. A nil probe always reports SERVING.
func NewHealthServer(a string, l logging.Logger, probe Probe) *HealthServer {
	return &HealthServer{
		address:  a,
		probe:    probe,
		interval: defaultProbeInterval,
		health:   health.NewServer(),
		logger:   l.With("module", "grpc_server"),
	}
}

func (s *HealthServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, s.health)

	s.check(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

func (s *HealthServer) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// check runs the probe once and publishes the result for both entries.
func (s *HealthServer) check(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if s.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, s.interval)
		err := s.probe(pctx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn(ctx, "health probe failed", "error", err)
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
