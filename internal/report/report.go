// Package report renders stored observations into human-readable text.
// Placeholder substitution lives here: snapshot fields stay nil in the
// data layer, and only presentation decides what a missing value says.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mpop-24/vantageflow/internal/extract"
	"github.com/mpop-24/vantageflow/internal/scrape"
	"github.com/mpop-24/vantageflow/internal/track"
)

// Placeholder sentinels. Missing stock wants a human to look; missing
// discount or shipping text is the common case and merely pending.
const (
	PlaceholderAudit   = "Manual Audit Required"
	PlaceholderPending = "Data Pending"
)

// FormatPrice renders a price with a dollar sign and two decimals.
func FormatPrice(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// FormatOptionalPrice renders a nullable price, using "n/a" when absent.
func FormatOptionalPrice(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return FormatPrice(*v)
}

// FormatGap renders a signed gap between two prices.
func FormatGap(gap float64) string {
	if math.Abs(gap) < 0.005 {
		return "$0.00"
	}
	if gap < 0 {
		return fmt.Sprintf("-$%.2f", -gap)
	}
	return fmt.Sprintf("+$%.2f", gap)
}

// StockLabel substitutes the audit placeholder for unknown stock.
func StockLabel(status extract.StockStatus) string {
	if status == "" || status == extract.StockUnknown {
		return PlaceholderAudit
	}
	return string(status)
}

// ShippingLabel substitutes the pending placeholder for missing shipping.
func ShippingLabel(label *string) string {
	if label == nil || strings.TrimSpace(*label) == "" {
		return PlaceholderPending
	}
	return *label
}

// DiscountLabel substitutes the pending placeholder for missing promos.
func DiscountLabel(discount *string) string {
	if discount == nil || strings.TrimSpace(*discount) == "" {
		return PlaceholderPending
	}
	return *discount
}

// Row is one competitor line of a comparison.
type Row struct {
	Name        string
	URL         string
	Price       *float64
	Gap         *float64
	LastChecked *time.Time
}

// Comparison is the per-product payload the chat front-end renders.
type Comparison struct {
	Product     track.Product
	ClientPrice *float64
	Rows        []Row
}

// BuildComparison computes gaps from stored observations and ranks rows
// by threat: the deepest undercut first, unpriced competitors last.
func BuildComparison(product track.Product, competitors []track.Competitor) Comparison {
	comparison := Comparison{Product: product, ClientPrice: product.Price}
	for _, competitor := range competitors {
		row := Row{
			Name:        competitor.Name,
			URL:         competitor.URL,
			Price:       competitor.LastPrice,
			LastChecked: competitor.LastChecked,
		}
		if product.Price != nil && competitor.LastPrice != nil {
			gap := *product.Price - *competitor.LastPrice
			row.Gap = &gap
		}
		comparison.Rows = append(comparison.Rows, row)
	}

	sort.SliceStable(comparison.Rows, func(i, j int) bool {
		a, b := comparison.Rows[i].Gap, comparison.Rows[j].Gap
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	return comparison
}

// Markdown renders the comparison as Slack mrkdwn.
func (c Comparison) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* — your price: %s\n", c.Product.Name, FormatOptionalPrice(c.ClientPrice))
	if len(c.Rows) == 0 {
		b.WriteString("_No competitors tracked yet._")
		return b.String()
	}
	for i, row := range c.Rows {
		fmt.Fprintf(&b, "%d. <%s|%s>: %s", i+1, row.URL, row.Name, FormatOptionalPrice(row.Price))
		if row.Gap != nil {
			fmt.Fprintf(&b, " (gap %s)", FormatGap(*row.Gap))
		}
		if row.LastChecked != nil {
			fmt.Fprintf(&b, " · checked %s", row.LastChecked.UTC().Format("Jan 2 15:04 MST"))
		} else {
			b.WriteString(" · no data yet")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// AuditSummary renders one live snapshot as plain text for the on-demand
// audit command.
func AuditSummary(name string, snap scrape.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Audit: %s*\n", name)
	fmt.Fprintf(&b, "Price: %s", FormatOptionalPrice(snap.Price))
	if snap.OnSale && snap.CompareAt != nil {
		fmt.Fprintf(&b, " (was %s)", FormatPrice(*snap.CompareAt))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Stock: %s\n", StockLabel(snap.Stock))
	fmt.Fprintf(&b, "Shipping: %s", ShippingLabel(snap.ShippingLabel))
	if snap.ShippingCost != nil {
		fmt.Fprintf(&b, " (%s)", FormatPrice(*snap.ShippingCost))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Promo: %s\n", DiscountLabel(snap.Discount))
	if snap.WarrantyYears != nil {
		fmt.Fprintf(&b, "Warranty: %d years\n", *snap.WarrantyYears)
	}
	if snap.ReviewCount != nil {
		fmt.Fprintf(&b, "Reviews: %d\n", *snap.ReviewCount)
	}
	fmt.Fprintf(&b, "Source: %s · fetched %s", snap.Source, snap.FetchedAt.UTC().Format(time.RFC3339))
	return b.String()
}
