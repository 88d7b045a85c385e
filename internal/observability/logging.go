// Package observability builds the zap logger and the OpenTelemetry
// instruments skirmish reports through. Collector wires the instruments to
// an in-process reader so a run can log its own metric totals on exit.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/skirmish/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
// Output goes to stderr so command output on stdout stays machine-readable.
// Sampling is off: a simulation logs the same message every step, and every
// line of a run must be kept.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger named "skirmish" or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Sampling = nil
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Named("skirmish"), nil
}

// RunLogger tags every entry of one simulation run with its scenario, seed
// and a run ID, so interleaved runs can be told apart.
//
// Precondition: logger must not be nil.
func RunLogger(logger *zap.Logger, scenarioID string, seed uint64, runID string) *zap.Logger {
	if logger == nil {
		panic("observability.RunLogger: logger must not be nil")
	}
	return logger.With(
		zap.String("scenario", scenarioID),
		zap.Uint64("seed", seed),
		zap.String("run_id", runID),
	)
}
