package scrape

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mpop-24/vantageflow/internal/metrics"
)

// Strategy is one alternative way to retrieve a price for a target.
// Implementations must be safe for sequential reuse across targets.
type Strategy interface {
	// Name labels the strategy in logs and metrics.
	Name() string
	// Attempt tries to retrieve a price (and whatever page content came
	// with it) for the target. A miss is returned as an error; the
	// cascade decides whether to continue.
	Attempt(ctx context.Context, target Target) (Result, error)
}

// Cascade tries strategies in priority order, short-circuiting on the
// first valid positive price. It only fails once every strategy is
// exhausted, and then reports the last error seen for diagnostics.
type Cascade struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewCascade builds a cascade over the given strategies, tried in order.
func NewCascade(logger *zap.Logger, strategies ...Strategy) *Cascade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{strategies: strategies, logger: logger}
}

// Fetch runs the cascade for one target.
func (c *Cascade) Fetch(ctx context.Context, target Target) (Result, error) {
	var lastErr error
	for _, strategy := range c.strategies {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		metrics.FetchAttempts.WithLabelValues(strategy.Name()).Inc()

		res, err := strategy.Attempt(ctx, target)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", strategy.Name(), err)
			c.logger.Debug("strategy missed",
				zap.String("strategy", strategy.Name()),
				zap.String("url", target.RawURL),
				zap.Error(err),
			)
			continue
		}
		if !validPrice(res.Price) {
			lastErr = fmt.Errorf("%s: invalid price", strategy.Name())
			c.logger.Debug("strategy returned invalid price",
				zap.String("strategy", strategy.Name()),
				zap.String("url", target.RawURL),
			)
			continue
		}
		return res, nil
	}

	metrics.FetchFailures.Inc()
	if lastErr == nil {
		lastErr = errors.New("no strategies configured")
	}
	return Result{}, fmt.Errorf("all strategies exhausted: %w", lastErr)
}
