package scrape

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mpop-24/vantageflow/internal/archive"
	"github.com/mpop-24/vantageflow/internal/extract"
)

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// ContentFetcher supplies page-like text for a target when the winning
// cascade step had none (the storefront API returns JSON without the
// stock/shipping prose the ancillary extractors need).
type ContentFetcher interface {
	Content(ctx context.Context, target Target) (string, error)
}

// Builder runs the cascade and assembles a Snapshot from the winning price
// plus ancillary signals extracted from the deepest content fetched.
type Builder struct {
	cascade       *Cascade
	content       ContentFetcher
	clock         Clock
	store         archive.Provider
	archivePrefix string
	logger        *zap.Logger
}

// NewBuilder constructs a Builder. content and store may be nil; ancillary
// enrichment and archiving are then skipped.
func NewBuilder(
	cascade *Cascade,
	content ContentFetcher,
	clock Clock,
	store archive.Provider,
	archivePrefix string,
	logger *zap.Logger,
) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		cascade:       cascade,
		content:       content,
		clock:         clock,
		store:         store,
		archivePrefix: archivePrefix,
		logger:        logger,
	}
}

// Snapshot fetches one observation for the URL. It fails only when the
// whole cascade is exhausted; missing ancillary signals stay nil.
func (b *Builder) Snapshot(ctx context.Context, rawURL string) (Snapshot, error) {
	target, err := ParseTarget(rawURL)
	if err != nil {
		return Snapshot{}, err
	}

	res, err := b.cascade.Fetch(ctx, target)
	if err != nil {
		return Snapshot{}, err
	}

	content := res.Content
	if content == "" && b.content != nil {
		fetched, cerr := b.content.Content(ctx, target)
		if cerr != nil {
			b.logger.Debug("ancillary content unavailable",
				zap.String("url", target.RawURL),
				zap.Error(cerr),
			)
		} else {
			content = fetched
		}
	}

	snap := Snapshot{
		Price:     res.Price,
		Stock:     extract.StockUnknown,
		Title:     res.Title,
		CompareAt: res.CompareAt,
		Source:    res.Source,
		FetchedAt: b.clock.Now(),
	}
	if res.CompareAt != nil && res.Price != nil && *res.Price < *res.CompareAt {
		snap.OnSale = true
	}
	if content != "" {
		snap.Stock = extract.Stock(content)
		if est := extract.Shipping(content); est != nil {
			label := est.Label
			days := est.Days
			snap.ShippingLabel = &label
			snap.ShippingDays = &days
		}
		snap.ShippingCost = extract.ShippingCost(content)
		snap.Discount = extract.Discount(content)
		snap.ReviewCount = extract.ReviewCount(content)
		snap.WarrantyYears = extract.WarrantyYears(content)
	}

	b.archiveContent(ctx, target, snap.FetchedAt, content)
	return snap, nil
}

func (b *Builder) archiveContent(ctx context.Context, target Target, fetchedAt time.Time, content string) {
	if b.store == nil || content == "" {
		return
	}
	object := archive.ObjectName(b.archivePrefix, target.Host, fetchedAt, []byte(content))
	if err := b.store.Save(ctx, object, []byte(content)); err != nil {
		b.logger.Warn("archive page content failed",
			zap.String("url", target.RawURL),
			zap.String("object", object),
			zap.Error(err),
		)
	}
}
