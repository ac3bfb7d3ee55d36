// Package config loads detector settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
)

// Frame sources.
const (
	SourceScreen = "screen"
	SourceGst    = "gst"
	SourceFiles  = "files"
)

type Config struct {
	OutPath         string // diagnostic PNG directory, empty disables dumps
	HTTPAddr        string
	GRPCAddr        string
	CORSOrigins     []string
	Source          string
	SourceURI       string
	TickRate        float64 // Hz, pull sources only
	DetectInterval  float64 // seconds
	CaptureInterval float64 // seconds
	MatchThreshold  int
	Calibration     string
	OCRLanguage     string
	OCRDPI          int
	DiagDedupe      bool
	ResultsDB       string
	LogLevel        string
}

func Load() *Config {
	return &Config{
		OutPath:         getEnvOptional("OUT_PATH", ""),
		HTTPAddr:        getEnvOptional("HTTP_ADDR", ":8000"),
		GRPCAddr:        getEnvOptional("GRPC_ADDR", ":50052"),
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"*"}),
		Source:          getEnv("SOURCE", SourceScreen),
		SourceURI:       getEnv("SOURCE_URI", ""),
		TickRate:        getEnvFloat("TICK_RATE", 20),
		DetectInterval:  getEnvFloat("DETECT_INTERVAL", 0.05),
		CaptureInterval: getEnvFloat("CAPTURE_INTERVAL", 10),
		MatchThreshold:  getEnvInt("MATCH_THRESHOLD", 4),
		Calibration:     getEnv("CALIBRATION", "ssbu-1080p"),
		OCRLanguage:     getEnv("OCR_LANGUAGE", "eng"),
		OCRDPI:          getEnvInt("OCR_DPI", 700),
		DiagDedupe:      getEnvBool("DIAG_DEDUPE", true),
		ResultsDB:       getEnvOptional("RESULTS_DB", "autovod.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

// Validate rejects settings the detector cannot run with.
func (c *Config) Validate() error {
	invalid := func(key string, format string, args ...any) error {
		return apperrors.Newf(apperrors.CodeConfigInvalid, format, args...).WithMetadata("key", key)
	}
	switch c.Source {
	case SourceScreen:
	case SourceGst, SourceFiles:
		if c.SourceURI == "" {
			return invalid("SOURCE_URI", "source %q needs SOURCE_URI", c.Source)
		}
	default:
		return invalid("SOURCE", "unknown source %q", c.Source)
	}
	if c.TickRate <= 0 {
		return invalid("TICK_RATE", "tick rate must be positive, got %v", c.TickRate)
	}
	if c.DetectInterval < 0 || c.CaptureInterval < 0 {
		return invalid("CAPTURE_INTERVAL", "intervals must not be negative")
	}
	if c.MatchThreshold <= 0 {
		return invalid("MATCH_THRESHOLD", "threshold must be positive, got %d", c.MatchThreshold)
	}
	if c.OCRDPI <= 0 {
		return invalid("OCR_DPI", "dpi must be positive, got %d", c.OCRDPI)
	}
	if _, err := c.Level(); err != nil {
		return invalid("LOG_LEVEL", "%v", err)
	}
	return nil
}

// DetectEvery returns the detect interval as a duration.
func (c *Config) DetectEvery() time.Duration { return seconds(c.DetectInterval) }

// CaptureEvery returns the capture interval as a duration.
func (c *Config) CaptureEvery() time.Duration { return seconds(c.CaptureInterval) }

// TickEvery returns the pull-source tick period.
func (c *Config) TickEvery() time.Duration { return seconds(1 / c.TickRate) }

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvOptional distinguishes unset (default) from set-but-empty (disabled).
func getEnvOptional(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
