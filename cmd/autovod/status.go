package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/GriffinCanCode/autovod/internal/grpcclient"
	"github.com/GriffinCanCode/autovod/internal/health"
	"github.com/GriffinCanCode/autovod/internal/trace"
)

var (
	statusAddr string
	statusWait time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running detector's health",
	Long: `Ask a running "autovod serve" for its gRPC health status. SERVING means
the OCR engine is usable; NOT_SERVING means captures only report "no match".

With --wait, poll until the detector is SERVING or the wait expires.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, _ := trace.EnsureContext(cmd.Context())
		c, err := grpcclient.New(statusAddr)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		if statusWait > 0 {
			wctx, cancel := context.WithTimeout(ctx, statusWait)
			defer cancel()
			if err := c.WaitServing(wctx, health.ServiceName, time.Second); err != nil {
				return fmt.Errorf("detector not serving after %s: %w", statusWait, err)
			}
		}

		status, err := c.Check(ctx, health.ServiceName)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), status.String())
		if status != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("detector is %s", status)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "localhost:50052", "detector gRPC address")
	statusCmd.Flags().DurationVar(&statusWait, "wait", 0, "wait up to this long for SERVING")
}
