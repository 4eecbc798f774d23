package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/types"
)

type loop struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
}

// run calls fn once, then on every tick until ctx is done. A slow call delays the next tick
// rather than overlapping it.
func (l loop) run(ctx context.Context, lgr *zap.Logger) {
	lgr.Info("Start loop", zap.Duration("interval", l.interval))
	l.once(ctx, lgr)
	t := time.NewTicker(l.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.once(ctx, lgr)
		}
	}
}

func (l loop) once(ctx context.Context, lgr *zap.Logger) {
	startTime := time.Now()
	if err := l.fn(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		lgr.Error("Loop run failed", zap.Error(err))
		return
	}
	lgr.Debug("Loop run done", zap.Duration("TimeConsumed", time.Since(startTime)))
}

// batchJob adapts a batch entry point to a loop body. Isolated proposal failures are
// reported as one error so they reach sentry.
func batchJob(fn func(ctx context.Context) (*types.BatchReport, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		batch, err := fn(ctx)
		if err != nil {
			return err
		}
		if batch.Failed > 0 {
			return fmt.Errorf("%d of %d proposals failed: %v", batch.Failed, batch.Proposals, batch.Errors)
		}
		return nil
	}
}
