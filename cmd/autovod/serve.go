package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/autovod/internal/calibration"
	"github.com/GriffinCanCode/autovod/internal/config"
	"github.com/GriffinCanCode/autovod/internal/diag"
	"github.com/GriffinCanCode/autovod/internal/health"
	"github.com/GriffinCanCode/autovod/internal/orchestrator"
	"github.com/GriffinCanCode/autovod/internal/scheduler"
	"github.com/GriffinCanCode/autovod/internal/screen"
	"github.com/GriffinCanCode/autovod/internal/server"
	"github.com/GriffinCanCode/autovod/internal/source"
	"github.com/GriffinCanCode/autovod/internal/source/stream"
	"github.com/GriffinCanCode/autovod/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch the configured source and report load-in screens",
	Long: `Run the detection pipeline until interrupted.

Every captured load-in screen is logged, kept in memory, broadcast on /ws and
stored in RESULTS_DB. With OUT_PATH set, both name boxes and the full frame are
written there as PNG files.

Examples:
  autovod serve                                   # desktop capture
  SOURCE=gst SOURCE_URI=rtmp://host/live autovod serve
  autovod serve --source files --uri 'shots/*.png' --out ./dump`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&cfg.OutPath, "out", cfg.OutPath, "diagnostic PNG directory (empty disables)")
	serveCmd.Flags().StringVar(&cfg.Source, "source", cfg.Source, "frame source: screen, gst or files")
	serveCmd.Flags().StringVar(&cfg.SourceURI, "uri", cfg.SourceURI, "GStreamer URI or image glob")
	serveCmd.Flags().StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP/WebSocket address (empty disables)")
	serveCmd.Flags().StringVar(&cfg.GRPCAddr, "grpc", cfg.GRPCAddr, "gRPC health address (empty disables)")
	serveCmd.Flags().StringVar(&cfg.ResultsDB, "db", cfg.ResultsDB, "SQLite match history (empty disables)")
}

func serve(ctx context.Context) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	table, err := calibration.Load(cfg.Calibration)
	if err != nil {
		return err
	}

	adapter := openOCR()
	defer func() { _ = adapter.Close() }()

	var hist orchestrator.HistoryStore
	if cfg.ResultsDB != "" {
		db, err := store.NewStore(cfg.ResultsDB)
		if err != nil {
			slog.Error("match history unavailable", "db", cfg.ResultsDB, "error", err)
		} else {
			defer func() { _ = db.Close() }()
			hist = db
		}
	}

	mgr := orchestrator.New(orchestrator.Options{
		Table:   table,
		Source:  newSource(cfg, table),
		OCR:     adapter,
		Dumper:  diag.New(cfg.OutPath, cfg.DiagDedupe),
		History: hist,
		Scheduler: scheduler.Config{
			DetectInterval:  cfg.DetectEvery(),
			CaptureInterval: cfg.CaptureEvery(),
			Warmup:          true,
		},
		MatchThreshold: cfg.MatchThreshold,
	})
	if err := mgr.Start(ctx); err != nil {
		return err
	}

	var httpServer *http.Server
	var srv *server.Server
	if cfg.HTTPAddr != "" {
		srv = server.New(mgr, cfg)
		httpServer = &http.Server{
			Addr:        cfg.HTTPAddr,
			Handler:     srv.Handler(),
			ReadTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("http server starting", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server error", "error", err)
			}
		}()
	}

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			slog.Error("grpc listen failed", "addr", cfg.GRPCAddr, "error", err)
		} else {
			hs := health.New(mgr.OCRAvailable, health.DefaultInterval)
			go func() {
				slog.Info("grpc health starting", "addr", cfg.GRPCAddr)
				if err := hs.Serve(ctx, lis); err != nil {
					slog.Error("grpc server error", "error", err)
				}
			}()
		}
	}

	<-ctx.Done()
	slog.Info("shutting down...")

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
		srv.Close()
	}

	mgr.Stop()
	st := mgr.Stats().Scheduler
	slog.Info("shutdown complete", "captured", st.Captured, "dropped", st.Dropped, "processed", st.Processed)
	return nil
}

func newSource(c *config.Config, table *calibration.Table) source.Source {
	switch c.Source {
	case config.SourceGst:
		return stream.New(stream.Config{URI: c.SourceURI, Width: table.Width, Height: table.Height})
	case config.SourceFiles:
		return source.NewFiles(c.SourceURI, c.TickEvery(), false)
	default:
		return screen.NewSource(screen.New(), c.TickEvery())
	}
}
