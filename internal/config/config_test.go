package config

import (
	"log/slog"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
)

var allKeys = []string{
	"OUT_PATH", "HTTP_ADDR", "GRPC_ADDR", "CORS_ORIGINS", "SOURCE", "SOURCE_URI",
	"TICK_RATE", "DETECT_INTERVAL", "CAPTURE_INTERVAL", "MATCH_THRESHOLD",
	"CALIBRATION", "OCR_LANGUAGE", "OCR_DPI", "DIAG_DEDUPE", "RESULTS_DB", "LOG_LEVEL",
}

// clearEnv sets every key to empty: defaults for plain keys, disabled for optional ones.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	// set-but-empty disables the optional outputs
	if cfg.OutPath != "" || cfg.HTTPAddr != "" || cfg.GRPCAddr != "" || cfg.ResultsDB != "" {
		t.Errorf("empty optional values should disable: %+v", cfg)
	}
	if cfg.Source != SourceScreen {
		t.Errorf("Source = %q, want %q", cfg.Source, SourceScreen)
	}
	if cfg.DetectEvery() != 50*time.Millisecond {
		t.Errorf("DetectEvery() = %v, want 50ms", cfg.DetectEvery())
	}
	if cfg.CaptureEvery() != 10*time.Second {
		t.Errorf("CaptureEvery() = %v, want 10s", cfg.CaptureEvery())
	}
	if cfg.TickEvery() != 50*time.Millisecond {
		t.Errorf("TickEvery() = %v, want 50ms", cfg.TickEvery())
	}
	if cfg.MatchThreshold != 4 || cfg.OCRDPI != 700 || cfg.OCRLanguage != "eng" {
		t.Errorf("ocr defaults = %d %d %q", cfg.MatchThreshold, cfg.OCRDPI, cfg.OCRLanguage)
	}
	if cfg.Calibration != "ssbu-1080p" {
		t.Errorf("Calibration = %q", cfg.Calibration)
	}
	if !cfg.DiagDedupe {
		t.Error("DiagDedupe should default to true")
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OUT_PATH", "/tmp/autovod")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("SOURCE", "gst")
	t.Setenv("SOURCE_URI", "rtmp://localhost/live/smash")
	t.Setenv("CAPTURE_INTERVAL", "5")
	t.Setenv("MATCH_THRESHOLD", "2")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("DIAG_DEDUPE", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.OutPath != "/tmp/autovod" || cfg.HTTPAddr != ":9000" {
		t.Errorf("paths = %q %q", cfg.OutPath, cfg.HTTPAddr)
	}
	if cfg.Source != SourceGst || cfg.SourceURI != "rtmp://localhost/live/smash" {
		t.Errorf("source = %q %q", cfg.Source, cfg.SourceURI)
	}
	if cfg.CaptureEvery() != 5*time.Second || cfg.MatchThreshold != 2 {
		t.Errorf("capture=%v threshold=%d", cfg.CaptureEvery(), cfg.MatchThreshold)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.DiagDedupe {
		t.Error("DiagDedupe should be false")
	}
	if l, err := cfg.Level(); err != nil || l != slog.LevelDebug {
		t.Errorf("Level() = %v, %v", l, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MATCH_THRESHOLD", "four")
	t.Setenv("TICK_RATE", "fast")
	cfg := Load()
	if cfg.MatchThreshold != 4 || cfg.TickRate != 20 {
		t.Errorf("fallbacks = %d %v", cfg.MatchThreshold, cfg.TickRate)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Source = "webcam" }},
		{"gst without uri", func(c *Config) { c.Source = SourceGst; c.SourceURI = "" }},
		{"files without uri", func(c *Config) { c.Source = SourceFiles; c.SourceURI = "" }},
		{"zero tick rate", func(c *Config) { c.TickRate = 0 }},
		{"negative interval", func(c *Config) { c.DetectInterval = -1 }},
		{"zero threshold", func(c *Config) { c.MatchThreshold = 0 }},
		{"zero dpi", func(c *Config) { c.OCRDPI = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			tt.mutate(cfg)
			if err := cfg.Validate(); !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
				t.Errorf("Validate() = %v, want CONFIG_INVALID", err)
			}
		})
	}
}
