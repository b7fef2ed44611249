package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mpop-24/vantageflow/internal/events"
	"github.com/mpop-24/vantageflow/internal/metrics"
	"github.com/mpop-24/vantageflow/internal/scrape"
	"github.com/mpop-24/vantageflow/internal/track"
)

// Scraper produces one snapshot per URL.
type Scraper interface {
	Snapshot(ctx context.Context, rawURL string) (scrape.Snapshot, error)
}

// PriceChangeAlert carries everything the notification layer needs to
// describe one detected change.
type PriceChangeAlert struct {
	Product     track.Product
	Competitor  track.Competitor
	OldPrice    *float64
	NewPrice    float64
	ClientPrice *float64
	Snapshot    scrape.Snapshot
}

// Alerter dispatches notifications. Failures are the caller's to log;
// they never abort a run.
type Alerter interface {
	PriceChange(ctx context.Context, channelID string, alert PriceChangeAlert) error
	Onboarding(ctx context.Context, channelID string, product track.Product) error
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// RunSummary reports what one check cycle did.
type RunSummary struct {
	Products    int
	Competitors int
	Changes     int
	Alerts      int
	Failures    int
}

// Coordinator drives one full check cycle across the tracked catalog.
// Iteration is sequential; the bottleneck is fetch latency, not CPU.
type Coordinator struct {
	store     track.Provider
	scraper   Scraper
	alerter   Alerter
	publisher events.Publisher
	clock     Clock
	statePath string
	teamID    string
	logger    *zap.Logger
}

// NewCoordinator wires a coordinator. publisher may be nil; events are
// then skipped.
func NewCoordinator(
	store track.Provider,
	scraper Scraper,
	alerter Alerter,
	publisher events.Publisher,
	clock Clock,
	statePath string,
	teamID string,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:     store,
		scraper:   scraper,
		alerter:   alerter,
		publisher: publisher,
		clock:     clock,
		statePath: statePath,
		teamID:    teamID,
		logger:    logger,
	}
}

// Run executes one check cycle. It fails only when the product list
// itself cannot be read; per-entity failures are logged and counted.
func (c *Coordinator) Run(ctx context.Context) (RunSummary, error) {
	var summary RunSummary

	products, err := c.store.ListProducts(ctx, c.teamID)
	if err != nil {
		return summary, err
	}

	state := LoadOnboardingState(c.statePath, c.logger)
	active := make(map[string]struct{}, len(products))

	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		active[product.ID] = struct{}{}
		c.checkProduct(ctx, product, state, &summary)
	}

	state.Prune(active)
	if err := state.Save(c.statePath); err != nil {
		c.logger.Error("save onboarding state failed",
			zap.String("path", c.statePath),
			zap.Error(err),
		)
	}
	return summary, nil
}

func (c *Coordinator) checkProduct(ctx context.Context, product track.Product, state *OnboardingState, summary *RunSummary) {
	summary.Products++
	metrics.ChecksTotal.Inc()

	clientPrice := product.Price
	snap, err := c.scraper.Snapshot(ctx, product.URL)
	if err != nil {
		summary.Failures++
		c.logger.Error("client price check failed",
			zap.String("product_id", product.ID),
			zap.String("product", product.Name),
			zap.String("url", product.URL),
			zap.Error(err),
		)
	} else if snap.Price != nil {
		clientPrice = snap.Price
		if err := c.store.UpdateProductPrice(ctx, product.ID, *snap.Price); err != nil {
			summary.Failures++
			c.logger.Error("persist client price failed",
				zap.String("product_id", product.ID),
				zap.Error(err),
			)
		}
	}

	c.onboard(ctx, product, state)

	competitors, err := c.store.ListCompetitors(ctx, product.ID)
	if err != nil {
		summary.Failures++
		c.logger.Error("list competitors failed",
			zap.String("product_id", product.ID),
			zap.Error(err),
		)
		return
	}
	for _, competitor := range competitors {
		if ctx.Err() != nil {
			return
		}
		c.checkCompetitor(ctx, product, competitor, clientPrice, summary)
	}
}

func (c *Coordinator) onboard(ctx context.Context, product track.Product, state *OnboardingState) {
	if c.alerter == nil || product.ChannelID == "" {
		return
	}
	if !state.NeedsOnboarding(product.ID, product.ChannelID) {
		return
	}
	if err := c.alerter.Onboarding(ctx, product.ChannelID, product); err != nil {
		c.logger.Error("onboarding notification failed",
			zap.String("product_id", product.ID),
			zap.String("channel", product.ChannelID),
			zap.Error(err),
		)
		return
	}
	state.MarkOnboarded(product.ID, product.ChannelID)
}

func (c *Coordinator) checkCompetitor(ctx context.Context, product track.Product, competitor track.Competitor, clientPrice *float64, summary *RunSummary) {
	summary.Competitors++
	metrics.ChecksTotal.Inc()

	snap, err := c.scraper.Snapshot(ctx, competitor.URL)
	if err != nil {
		summary.Failures++
		c.logger.Error("competitor check failed",
			zap.String("competitor_id", competitor.ID),
			zap.String("competitor", competitor.Name),
			zap.String("url", competitor.URL),
			zap.Error(err),
		)
		return
	}

	transition := Detect(competitor.LastPrice, snap.Price)
	switch transition {
	case TransitionNoData:
		c.logger.Warn("competitor price temporarily unavailable",
			zap.String("competitor_id", competitor.ID),
			zap.String("url", competitor.URL),
		)
		return
	case TransitionChanged:
		summary.Changes++
		metrics.PriceChanges.Inc()
		c.dispatch(ctx, product, competitor, clientPrice, snap, summary)
	case TransitionUnchanged:
		c.logger.Debug("competitor price unchanged",
			zap.String("competitor_id", competitor.ID),
			zap.Float64("price", *snap.Price),
		)
	}

	// Persist after the alert so a notification failure cannot leave the
	// stored price ahead of what was announced.
	if err := c.store.UpdateCompetitor(ctx, competitor.ID, snap.Price, c.clock.Now()); err != nil {
		summary.Failures++
		c.logger.Error("persist competitor observation failed",
			zap.String("competitor_id", competitor.ID),
			zap.Error(err),
		)
	}
}

func (c *Coordinator) dispatch(ctx context.Context, product track.Product, competitor track.Competitor, clientPrice *float64, snap scrape.Snapshot, summary *RunSummary) {
	alert := PriceChangeAlert{
		Product:     product,
		Competitor:  competitor,
		OldPrice:    competitor.LastPrice,
		NewPrice:    *snap.Price,
		ClientPrice: clientPrice,
		Snapshot:    snap,
	}

	if c.alerter != nil && product.ChannelID != "" {
		if err := c.alerter.PriceChange(ctx, product.ChannelID, alert); err != nil {
			metrics.AlertFailures.Inc()
			c.logger.Error("price change alert failed",
				zap.String("competitor_id", competitor.ID),
				zap.String("channel", product.ChannelID),
				zap.Error(err),
			)
		} else {
			summary.Alerts++
			metrics.AlertsSent.Inc()
		}
	}

	if c.publisher != nil {
		event := events.PriceChange{
			ProductID:    product.ID,
			ProductName:  product.Name,
			CompetitorID: competitor.ID,
			Competitor:   competitor.Name,
			URL:          competitor.URL,
			OldPrice:     competitor.LastPrice,
			NewPrice:     *snap.Price,
			ClientPrice:  clientPrice,
			ObservedAt:   c.clock.Now(),
		}
		if err := c.publisher.Publish(ctx, event); err != nil {
			c.logger.Warn("publish price change event failed",
				zap.String("competitor_id", competitor.ID),
				zap.Error(err),
			)
		}
	}
}
