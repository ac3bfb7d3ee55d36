// Package grpcclient provides a client for a running detector's gRPC health service
package grpcclient

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"

	"github.com/GriffinCanCode/autovod/internal/trace"
)

// Client wraps the health service client
type Client struct {
	conn   *grpc.ClientConn
	Health healthpb.HealthClient
}

// New creates a client for addr. Extra options are appended to the defaults.
func New(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    DefaultKeepaliveTime,
			Timeout: DefaultKeepaliveTimeout,
		}),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, Health: healthpb.NewHealthClient(conn)}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Check returns the serving status of service ("" for the whole server).
func (c *Client) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()
	if tc, ok := trace.FromContext(ctx); ok {
		ctx = metadata.AppendToOutgoingContext(ctx, trace.TraceIDKey, tc.TraceID, trace.SpanIDKey, tc.SpanID)
	}
	resp, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// WaitServing polls until service reports SERVING or ctx is done.
func (c *Client) WaitServing(ctx context.Context, service string, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultHealthCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		status, err := c.Check(ctx, service)
		if err == nil && status == healthpb.HealthCheckResponse_SERVING {
			return nil
		}
		trace.Logger(ctx).Debug("waiting for detector", "status", status.String(), "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
