package grpcclient

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startHealth(t *testing.T) (*health.Server, *Client) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := New("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return hs, c
}

func TestCheck(t *testing.T) {
	hs, c := startHealth(t)
	hs.SetServingStatus("detector", healthpb.HealthCheckResponse_NOT_SERVING)

	got, err := c.Check(context.Background(), "detector")
	if err != nil {
		t.Fatal(err)
	}
	if got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Check() = %v, want NOT_SERVING", got)
	}
}

func TestCheckUnknownService(t *testing.T) {
	_, c := startHealth(t)

	got, err := c.Check(context.Background(), "missing")
	if status.Code(err) != codes.NotFound {
		t.Errorf("Check() error = %v, want NotFound", err)
	}
	if got != healthpb.HealthCheckResponse_UNKNOWN {
		t.Errorf("Check() = %v, want UNKNOWN", got)
	}
}

func TestWaitServing(t *testing.T) {
	hs, c := startHealth(t)
	hs.SetServingStatus("detector", healthpb.HealthCheckResponse_NOT_SERVING)

	go func() {
		time.Sleep(30 * time.Millisecond)
		hs.SetServingStatus("detector", healthpb.HealthCheckResponse_SERVING)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitServing(ctx, "detector", 10*time.Millisecond); err != nil {
		t.Errorf("WaitServing() = %v", err)
	}
}

func TestWaitServingTimeout(t *testing.T) {
	hs, c := startHealth(t)
	hs.SetServingStatus("detector", healthpb.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := c.WaitServing(ctx, "detector", 10*time.Millisecond); err != context.DeadlineExceeded {
		t.Errorf("WaitServing() = %v, want DeadlineExceeded", err)
	}
}
