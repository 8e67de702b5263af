// Package observability provides logging and progress reporting utilities.
package observability

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/combatsim/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
		// Batch runs log far more than the default sampler keeps.
		zapCfg.Sampling = nil
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Named("combatsim"), nil
}

// CombatLogger returns the logger handed to per-combat code. Quiet batches
// get a no-op logger so workers never contend on the sink.
func CombatLogger(base *zap.Logger, quiet bool) *zap.Logger {
	if quiet || base == nil {
		return zap.NewNop()
	}
	return base.Named("combat")
}

// Progress counts completed units of work and logs at Info every Every
// completions and once at the end. It is safe for concurrent use.
type Progress struct {
	logger *zap.Logger
	label  string
	total  int64
	every  int64
	done   atomic.Int64
}

// NewProgress creates a Progress reporting on total units. every <= 0
// reports at each tenth of total.
//
// Postcondition: Returns a non-nil Progress.
func NewProgress(logger *zap.Logger, label string, total, every int) *Progress {
	if logger == nil {
		logger = zap.NewNop()
	}
	if every <= 0 {
		every = total / 10
	}
	if every <= 0 {
		every = 1
	}
	return &Progress{logger: logger, label: label, total: int64(total), every: int64(every)}
}

// Done records one completed unit and returns the running count.
func (p *Progress) Done() int64 {
	n := p.done.Add(1)
	if n%p.every == 0 || n == p.total {
		p.logger.Info(p.label,
			zap.Int64("completed", n),
			zap.Int64("total", p.total),
			zap.Float64("percent", 100*float64(n)/float64(max(p.total, 1))),
		)
	}
	return n
}

// Completed returns how many units have been recorded.
func (p *Progress) Completed() int64 { return p.done.Load() }
