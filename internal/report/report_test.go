package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpop-24/vantageflow/internal/extract"
	"github.com/mpop-24/vantageflow/internal/scrape"
	"github.com/mpop-24/vantageflow/internal/track"
)

func fptr(v float64) *float64 { return &v }

func sptr(s string) *string { return &s }

func TestFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$1234.56", FormatPrice(1234.56))
	assert.Equal(t, "n/a", FormatOptionalPrice(nil))
	assert.Equal(t, "$99.99", FormatOptionalPrice(fptr(99.99)))
	assert.Equal(t, "+$10.00", FormatGap(10.0))
	assert.Equal(t, "-$5.01", FormatGap(-5.01))
	assert.Equal(t, "$0.00", FormatGap(0.001))
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PlaceholderAudit, StockLabel(extract.StockUnknown))
	assert.Equal(t, PlaceholderAudit, StockLabel(""))
	assert.Equal(t, "In Stock", StockLabel(extract.StockInStock))

	assert.Equal(t, PlaceholderPending, ShippingLabel(nil))
	assert.Equal(t, PlaceholderPending, ShippingLabel(sptr("  ")))
	assert.Equal(t, "Ships in 3 days", ShippingLabel(sptr("Ships in 3 days")))

	assert.Equal(t, PlaceholderPending, DiscountLabel(nil))
	assert.Equal(t, "15% off", DiscountLabel(sptr("15% off")))
}

func TestBuildComparisonRanksByGap(t *testing.T) {
	t.Parallel()

	product := track.Product{ID: "p1", Name: "Chair", Price: fptr(300.0)}
	competitors := []track.Competitor{
		{ID: "c1", Name: "Pricier", LastPrice: fptr(320.0)},
		{ID: "c2", Name: "NoData"},
		{ID: "c3", Name: "Cheapest", LastPrice: fptr(250.0)},
		{ID: "c4", Name: "Cheaper", LastPrice: fptr(280.0)},
	}

	comparison := BuildComparison(product, competitors)
	require.Len(t, comparison.Rows, 4)
	assert.Equal(t, "Cheapest", comparison.Rows[0].Name)
	assert.Equal(t, "Cheaper", comparison.Rows[1].Name)
	assert.Equal(t, "Pricier", comparison.Rows[2].Name)
	assert.Equal(t, "NoData", comparison.Rows[3].Name, "unpriced competitors sink to the bottom")

	require.NotNil(t, comparison.Rows[0].Gap)
	assert.InDelta(t, 50.0, *comparison.Rows[0].Gap, 1e-9)
	require.NotNil(t, comparison.Rows[2].Gap)
	assert.InDelta(t, -20.0, *comparison.Rows[2].Gap, 1e-9)
	assert.Nil(t, comparison.Rows[3].Gap)
}

func TestComparisonMarkdown(t *testing.T) {
	t.Parallel()

	checked := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	product := track.Product{Name: "Chair", Price: fptr(300.0)}
	comparison := BuildComparison(product, []track.Competitor{
		{Name: "RivalCo", URL: "https://rival.example/chair", LastPrice: fptr(250.0), LastChecked: &checked},
		{Name: "NoData", URL: "https://other.example/chair"},
	})

	text := comparison.Markdown()
	assert.Contains(t, text, "*Chair* — your price: $300.00")
	assert.Contains(t, text, "1. <https://rival.example/chair|RivalCo>: $250.00 (gap +$50.00)")
	assert.Contains(t, text, "no data yet")
}

func TestComparisonMarkdownEmpty(t *testing.T) {
	t.Parallel()

	text := BuildComparison(track.Product{Name: "Chair"}, nil).Markdown()
	assert.Contains(t, text, "No competitors tracked yet")
}

func TestAuditSummary(t *testing.T) {
	t.Parallel()

	snap := scrape.Snapshot{
		Price:         fptr(99.99),
		CompareAt:     fptr(120.0),
		OnSale:        true,
		Stock:         extract.StockLowStock,
		ShippingLabel: sptr("Ships in 2-4 days"),
		ShippingCost:  fptr(0.0),
		WarrantyYears: iptr(5),
		ReviewCount:   iptr(1204),
		Source:        scrape.SourceHTML,
		FetchedAt:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	text := AuditSummary("RivalCo", snap)
	assert.Contains(t, text, "Price: $99.99 (was $120.00)")
	assert.Contains(t, text, "Stock: Low Stock")
	assert.Contains(t, text, "Shipping: Ships in 2-4 days ($0.00)")
	assert.Contains(t, text, "Promo: Data Pending")
	assert.Contains(t, text, "Warranty: 5 years")
	assert.Contains(t, text, "Source: html")
}

func TestAuditSummaryPlaceholders(t *testing.T) {
	t.Parallel()

	text := AuditSummary("RivalCo", scrape.Snapshot{Stock: extract.StockUnknown, Source: scrape.SourceProxyText})
	assert.Contains(t, text, "Price: n/a")
	assert.Contains(t, text, "Stock: Manual Audit Required")
	assert.Contains(t, text, "Shipping: Data Pending")
}

func iptr(v int) *int { return &v }
