package track

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that the requested record does not exist.
var ErrNotFound = errors.New("track: not found")

// Provider is the storage contract for the monitored catalog. A stale
// in-flight read racing a concurrent write is acceptable; the next run
// re-reads everything.
type Provider interface {
	// ListProducts returns all monitored products, optionally filtered to
	// one team when teamID is non-empty.
	ListProducts(ctx context.Context, teamID string) ([]Product, error)
	// GetProduct returns a single product or ErrNotFound.
	GetProduct(ctx context.Context, id string) (Product, error)
	// ListCompetitors returns the competitor listings tracked against a
	// product, in stable order.
	ListCompetitors(ctx context.Context, productID string) ([]Competitor, error)
	// UpdateProductPrice stores the latest observed price of the
	// retailer's own listing.
	UpdateProductPrice(ctx context.Context, id string, price float64) error
	// UpdateCompetitor stores a competitor observation. price may be nil
	// when the check failed; checkedAt is always recorded.
	UpdateCompetitor(ctx context.Context, id string, price *float64, checkedAt time.Time) error
	// Close releases any held connections.
	Close()
}

// NoOpProvider satisfies Provider without touching storage, for the
// single-URL check path and for wiring tests.
type NoOpProvider struct{}

// NewNoOpProvider constructs an empty provider.
func NewNoOpProvider() *NoOpProvider { return &NoOpProvider{} }

func (*NoOpProvider) ListProducts(context.Context, string) ([]Product, error) { return nil, nil }

func (*NoOpProvider) GetProduct(context.Context, string) (Product, error) {
	return Product{}, ErrNotFound
}

func (*NoOpProvider) ListCompetitors(context.Context, string) ([]Competitor, error) {
	return nil, nil
}

func (*NoOpProvider) UpdateProductPrice(context.Context, string, float64) error { return nil }

func (*NoOpProvider) UpdateCompetitor(context.Context, string, *float64, time.Time) error {
	return nil
}

func (*NoOpProvider) Close() {}
