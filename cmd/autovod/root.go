package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/autovod/internal/config"
	"github.com/GriffinCanCode/autovod/internal/ocr"
	"github.com/GriffinCanCode/autovod/internal/resilience"
)

var cfg = config.Load()

var (
	logLevel  string
	tableName string
)

var rootCmd = &cobra.Command{
	Use:   "autovod",
	Short: "Detect fighter picks on the Smash Ultimate load-in screen",
	Long: `autovod samples frames from a screen, a GStreamer URI or a directory of
screenshots, recognizes the load-in screen from calibrated pixel probes, reads
both name boxes with Tesseract and matches them against the fighter list.

Settings come from the environment (OUT_PATH, SOURCE, SOURCE_URI, ...);
flags override the matching variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg.LogLevel = logLevel
		cfg.Calibration = tableName
		level, err := cfg.Level()
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&tableName, "calibration", cfg.Calibration, "calibration table name")

	rootCmd.AddCommand(serveCmd, detectCmd, calibrationCmd, statusCmd)
}

// openOCR opens Tesseract. Failure leaves the adapter in no-match mode.
func openOCR() *ocr.Adapter {
	var engine ocr.Engine
	t, err := ocr.OpenTesseract(ocr.Options{Language: cfg.OCRLanguage, DPI: cfg.OCRDPI})
	if err != nil {
		slog.Error("ocr engine init failed, names will not be read", "language", cfg.OCRLanguage, "error", err)
	} else {
		slog.Info("ocr engine ready", "tesseract", ocr.Version(), "language", cfg.OCRLanguage, "dpi", cfg.OCRDPI)
		engine = t
	}
	return ocr.NewAdapter(engine, resilience.OCRConfig())
}
