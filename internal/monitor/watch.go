package monitor

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// Watch runs check cycles on a fixed interval until the context is
// cancelled. A panicking or failing cycle is logged and followed by a
// short cool-down; the loop itself never dies.
func (c *Coordinator) Watch(ctx context.Context, interval, coolDown time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if failed := c.runSafely(ctx); failed {
			if !sleepCtx(ctx, coolDown) {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runSafely executes one cycle, converting panics into logged failures.
func (c *Coordinator) runSafely(ctx context.Context) (failed bool) {
	defer func() {
		if r := recover(); r != nil {
			failed = true
			c.logger.Error("check cycle panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	started := time.Now()
	summary, err := c.Run(ctx)
	if err != nil {
		c.logger.Error("check cycle failed", zap.Error(err))
		return true
	}
	c.logger.Info("check cycle complete",
		zap.Int("products", summary.Products),
		zap.Int("competitors", summary.Competitors),
		zap.Int("changes", summary.Changes),
		zap.Int("alerts", summary.Alerts),
		zap.Int("failures", summary.Failures),
		zap.Duration("elapsed", time.Since(started)),
	)
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
