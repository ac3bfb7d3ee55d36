// Package health serves the standard gRPC health service for the detector.
// The detector reports SERVING while its OCR engine is usable and NOT_SERVING
// while captures would only produce "no match".
package health

import (
	"context"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/GriffinCanCode/autovod/internal/trace"
)

// ServiceName is the health service name of the detection pipeline.
const ServiceName = "autovod.Detector"

// DefaultInterval is how often the probe is re-evaluated.
const DefaultInterval = 5 * time.Second

// Probe reports whether the pipeline is fully functional.
type Probe func() bool

type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	probe    Probe
	interval time.Duration

	mu   sync.Mutex
	last healthpb.HealthCheckResponse_ServingStatus
}

func New(probe Probe, interval time.Duration) *Server {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Server{
		grpc:     grpc.NewServer(grpc.UnaryInterceptor(trace.UnaryServerInterceptor())),
		health:   health.NewServer(),
		probe:    probe,
		interval: interval,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.Update()
	return s
}

// Update evaluates the probe and publishes the status for both the
// overall server and ServiceName.
func (s *Server) Update() healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.probe() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if status != s.last {
		trace.Logger(context.Background()).Info("health status changed", "status", status.String())
		s.last = status
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Serve blocks serving lis until ctx is done, refreshing the status on each interval.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(lis) }()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpc.GracefulStop()
			return nil
		case err := <-errCh:
			return err
		case <-ticker.C:
			s.Update()
		}
	}
}
