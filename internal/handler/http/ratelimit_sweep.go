package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// WindowSweeper removes expired rate limit windows.
type WindowSweeper interface {
	Sweep(ctx context.Context) (int, error)
	KeyCount(ctx context.Context) (int, error)
}

// SweepOnce runs one sweep bounded by timeout and logs the result.
func SweepOnce(ctx context.Context, sweeper WindowSweeper, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	removed, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "rate limit sweep failed",
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		return
	}

	attrs := []slog.Attr{
		slog.Int("windows_removed", removed),
		slog.Duration("duration", time.Since(start)),
	}
	if count, err := sweeper.KeyCount(ctx); err == nil {
		attrs = append(attrs, slog.Int("active_keys", count))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "rate limit sweep completed", attrs...)
}

// RunRateLimitSweeper runs SweepOnce on the cron schedule until ctx is
// cancelled, then waits for a running sweep to finish. It returns an error
// only for an invalid schedule.
func RunRateLimitSweeper(
	ctx context.Context,
	sweeper WindowSweeper,
	schedule string,
	timeout time.Duration,
	logger *slog.Logger,
) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() {
		SweepOnce(ctx, sweeper, timeout, logger)
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	logger.Info("rate limit sweeper started",
		slog.String("schedule", schedule),
		slog.Duration("timeout", timeout))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("rate limit sweeper stopped")
	return nil
}
