package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"file-assistant/internal/config"
	"file-assistant/internal/database"
	"file-assistant/internal/fsops"
	"file-assistant/internal/limiter"
	"file-assistant/internal/metrics"
	"file-assistant/internal/safety"
	"file-assistant/internal/walker"
)

// Deps are the collaborators of a run. Zero values are usable: OS
// filesystem, no history.
type Deps struct {
	Logger  zerolog.Logger
	DB      *database.HistoryDB
	Fs      afero.Fs
	Deleter fsops.Deleter
}

// Result holds the reports of one cycle. Remove is nil when no remove
// patterns are configured.
type Result struct {
	Count  *walker.CountReport
	Remove *walker.RemoveReport
}

// NewWalker builds the walker described by cfg
func NewWalker(cfg *config.Config, deps Deps) (*walker.Walker, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	validator := safety.NewValidator([]string{cfg.Root}, cfg.Safety.ProtectedPaths)
	if err := validator.ProtectGlobs(cfg.Safety.ProtectedGlobs...); err != nil {
		return nil, err
	}

	opts := []walker.Option{
		walker.WithLogger(deps.Logger),
		walker.WithValidator(validator),
		walker.WithDryRun(cfg.DryRun),
		walker.WithMetrics(metrics.ForWalker()),
	}
	if deps.Fs != nil {
		opts = append(opts, walker.WithFs(deps.Fs))
	}
	if deps.Deleter != nil {
		opts = append(opts, walker.WithDeleter(deps.Deleter))
	}
	// A nil *HistoryDB must not become a non-nil Recorder
	if deps.DB != nil {
		opts = append(opts, walker.WithRecorder(deps.DB))
	}
	if l := limiter.NewCPULimiter(cfg.ResourceLimits.MaxCPUPercent); l.Enabled() {
		opts = append(opts, walker.WithThrottle(l.Throttle))
	}

	return walker.New(cfg.Root, opts...), nil
}

// RunOnce counts lines and then removes matching directories under the
// configured root.
func RunOnce(ctx context.Context, cfg *config.Config, deps Deps) (*Result, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	metrics.Init()
	logger := deps.Logger
	w, err := NewWalker(cfg, deps)
	if err != nil {
		metrics.ErrorsTotal.Inc()
		return nil, err
	}

	start := time.Now()

	if err := metrics.UpdateDiskMetrics(cfg.Root); err != nil {
		logger.Debug().Err(err).Str("root", cfg.Root).Msg("Cannot read filesystem usage")
	}

	res := &Result{}

	res.Count, err = w.Count(cfg.Extensions, cfg.SkipPatterns)
	if err != nil {
		metrics.SetHealthy(false)
		return res, err
	}
	metrics.RecordRun("count")

	if len(cfg.RemovePatterns) > 0 {
		res.Remove, err = w.Remove(cfg.RemovePatterns)
		metrics.RecordRun("remove")
		if err != nil {
			metrics.SetHealthy(false)
			return res, err
		}
	}

	metrics.SetHealthy(true)

	event := logger.Info().
		Int("lines", res.Count.TotalLines).
		Int("files", len(res.Count.Files))
	if res.Remove != nil {
		event = event.Int("removed", res.Remove.Removed).Int64("bytes_freed", res.Remove.BytesFreed)
	}
	event.Dur("duration", time.Since(start)).Msg("Cycle complete")

	return res, nil
}

// Run executes a cycle immediately, then on every interval tick and on every
// request from the metrics /trigger endpoint, until ctx is done. A failed
// first cycle is returned; later failures are logged.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	logger := deps.Logger

	if _, err := RunOnce(ctx, cfg, deps); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()
	trigger := metrics.Trigger()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
		case <-trigger:
			logger.Info().Msg("Run triggered")
		}
		if _, err := RunOnce(ctx, cfg, deps); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Error running cycle")
		}
	}
}
