// Package extract pulls commerce signals out of raw page text.
//
// Every extractor is a pure function over text: it returns a pointer (or
// Unknown) when the signal is absent and never fails on malformed input.
// A miss is expected behavior, not an error.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// StockStatus classifies a product's availability.
type StockStatus string

// Stock status values, ordered from most to least urgent.
const (
	StockOutOfStock  StockStatus = "Out of Stock"
	StockBackordered StockStatus = "Backordered"
	StockLowStock    StockStatus = "Low Stock"
	StockInStock     StockStatus = "In Stock"
	StockUnknown     StockStatus = "Unknown"
)

// ShippingEstimate is a normalized delivery promise. Ranges collapse to
// their arithmetic mean.
type ShippingEstimate struct {
	Label string
	Days  float64
}

var (
	priceRe = regexp.MustCompile(`\$\s?\d{1,3}(?:,\d{3})*(?:\.\d{2})?`)

	// Stock classes in priority order; the first match wins, so a page that
	// says both "low stock" and "in stock" classifies as low stock.
	stockClasses = []struct {
		status StockStatus
		re     *regexp.Regexp
	}{
		{StockOutOfStock, regexp.MustCompile(`\b(?:out of stock|sold out|unavailable)\b`)},
		{StockBackordered, regexp.MustCompile(`\b(?:backorder|backordered|pre[-\s]?order|preorder)\b`)},
		{StockLowStock, regexp.MustCompile(`\b(?:low stock|only \d+\s+left|limited stock)\b`)},
		{StockInStock, regexp.MustCompile(`\b(?:in stock|available now|ready to ship)\b`)},
	}

	estDelivRangeRe  = regexp.MustCompile(`estimated delivery[:\s]+(\d{1,2})\s*[-–]\s*(\d{1,2})\s*(?:business\s*)?days?`)
	estDelivSingleRe = regexp.MustCompile(`estimated delivery[:\s]+(\d{1,2})\s*(?:business\s*)?days?`)
	genericRangeRe   = regexp.MustCompile(`(free\s+)?(\d{1,2})\s*[-–]\s*(\d{1,2})\s*(?:business\s*)?days?`)
	dayShippingRe    = regexp.MustCompile(`(free\s+)?(\d{1,2})\s*day shipping`)
	shipsDaysRe      = regexp.MustCompile(`ships?\s+in\s+(\d{1,2})\s*(?:business\s*)?days?`)
	shipsWeeksRe     = regexp.MustCompile(`ships?\s+in\s+(\d{1,2})\s*weeks?`)
	deliveryInRe     = regexp.MustCompile(`delivery in\s+(\d{1,2})\s*(?:business\s*)?days?`)

	freeShippingRe  = regexp.MustCompile(`\bfree shipping\b`)
	shipCostLeadRe  = regexp.MustCompile(`shipping\s*(?:costs|is|:)?\s*\$?\s*(\d{1,4}(?:\.\d{2})?)`)
	shipCostTrailRe = regexp.MustCompile(`\$\s*(\d{1,4}(?:\.\d{2})?)\s*shipping`)

	promoCodeRe   = regexp.MustCompile(`\b(?:code|promo code|coupon code|use code)\s*[:\-]?\s*([a-z0-9]{3,12})\b`)
	percentOffRe  = regexp.MustCompile(`\b(\d{1,2})\s*%?\s*off\b`)
	dollarsOffRe  = regexp.MustCompile(`\$\s*(\d{1,4})\s*off\b`)
	saleKeywordRe = regexp.MustCompile(`\b(?:sale|discount|promo|promotion)\b`)

	warrantyLeadRe  = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:year|yr)s?\s*warranty`)
	warrantyTrailRe = regexp.MustCompile(`(?i)warranty\s*(?:of|:)?\s*(\d{1,2})\s*(?:year|yr)`)

	reviewsGroupedRe = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+)\s+(?:reviews|ratings)\b`)
	reviewsPlainRe   = regexp.MustCompile(`(?i)\b(\d{1,5})\s+(?:reviews|ratings)\b`)
)

// Price scans text for the first currency pattern and returns its value.
// Thousands separators and a leading dollar sign are stripped. A substring
// that fails to parse after stripping is treated as absent, never as zero.
func Price(text string) *float64 {
	if text == "" {
		return nil
	}
	match := priceRe.FindString(text)
	if match == "" {
		return nil
	}
	return ParseAmount(match)
}

// ParseAmount normalizes a currency-ish string ("$1,234.56") to a float.
// Returns nil when nothing numeric remains after stripping.
func ParseAmount(raw string) *float64 {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return nil
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &value
}

// Stock classifies availability text into one of the stock statuses.
// Matching is case-insensitive; no match yields StockUnknown.
func Stock(text string) StockStatus {
	if text == "" {
		return StockUnknown
	}
	lowered := strings.ToLower(text)
	for _, class := range stockClasses {
		if class.re.MatchString(lowered) {
			return class.status
		}
	}
	return StockUnknown
}

// Shipping finds a delivery promise and normalizes it to a label plus an
// estimated day count. Patterns are tried in priority order.
func Shipping(text string) *ShippingEstimate {
	if text == "" {
		return nil
	}
	lowered := strings.ToLower(text)

	if m := estDelivRangeRe.FindStringSubmatch(lowered); m != nil {
		return rangeEstimate(m[1], m[2], false)
	}
	if m := estDelivSingleRe.FindStringSubmatch(lowered); m != nil {
		if days, ok := atoi(m[1]); ok {
			return &ShippingEstimate{Label: fmt.Sprintf("Ships in %d days", days), Days: float64(days)}
		}
	}
	if m := genericRangeRe.FindStringSubmatch(lowered); m != nil {
		return rangeEstimate(m[2], m[3], m[1] != "")
	}
	if m := dayShippingRe.FindStringSubmatch(lowered); m != nil {
		if days, ok := atoi(m[2]); ok {
			label := fmt.Sprintf("%d-day shipping", days)
			if m[1] != "" {
				label = fmt.Sprintf("Free %d-day shipping", days)
			}
			return &ShippingEstimate{Label: label, Days: float64(days)}
		}
	}
	if m := shipsDaysRe.FindStringSubmatch(lowered); m != nil {
		if days, ok := atoi(m[1]); ok {
			return &ShippingEstimate{Label: fmt.Sprintf("Ships in %d days", days), Days: float64(days)}
		}
	}
	if m := shipsWeeksRe.FindStringSubmatch(lowered); m != nil {
		if weeks, ok := atoi(m[1]); ok {
			return &ShippingEstimate{Label: fmt.Sprintf("Ships in %d weeks", weeks), Days: float64(weeks * 7)}
		}
	}
	if m := deliveryInRe.FindStringSubmatch(lowered); m != nil {
		if days, ok := atoi(m[1]); ok {
			return &ShippingEstimate{Label: fmt.Sprintf("Ships in %d days", days), Days: float64(days)}
		}
	}
	return nil
}

func rangeEstimate(lowRaw, highRaw string, free bool) *ShippingEstimate {
	low, okLow := atoi(lowRaw)
	high, okHigh := atoi(highRaw)
	if !okLow || !okHigh {
		return nil
	}
	label := fmt.Sprintf("Ships in %d-%d days", low, high)
	if free {
		label = fmt.Sprintf("Free %d-%d day shipping", low, high)
	}
	return &ShippingEstimate{Label: label, Days: float64(low+high) / 2}
}

// ShippingCost extracts the cost of shipping: "free shipping" yields 0,
// otherwise a currency amount adjacent to the word "shipping".
func ShippingCost(text string) *float64 {
	if text == "" {
		return nil
	}
	lowered := strings.ToLower(text)
	if freeShippingRe.MatchString(lowered) {
		zero := 0.0
		return &zero
	}
	m := shipCostLeadRe.FindStringSubmatch(lowered)
	if m == nil {
		m = shipCostTrailRe.FindStringSubmatch(lowered)
	}
	if m == nil {
		return nil
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &value
}

// Discount detects an active promotion. A promo code and a discount amount
// compose as "{amount} (CODE {code})"; either alone stands by itself; a bare
// sale keyword yields the generic "Promo active".
func Discount(text string) *string {
	if text == "" {
		return nil
	}
	lowered := strings.ToLower(text)

	var code string
	if m := promoCodeRe.FindStringSubmatch(lowered); m != nil {
		code = strings.ToUpper(m[1])
	}
	// Dollar-off first: the percent pattern tolerates a missing % sign and
	// would otherwise swallow "$50 off" as "50% off".
	var amount string
	if m := dollarsOffRe.FindStringSubmatch(lowered); m != nil {
		amount = "$" + m[1] + " off"
	} else if m := percentOffRe.FindStringSubmatch(lowered); m != nil {
		amount = m[1] + "% off"
	}

	switch {
	case code != "" && amount != "":
		return strptr(fmt.Sprintf("%s (CODE %s)", amount, code))
	case code != "":
		return strptr("CODE " + code)
	case amount != "":
		return strptr(amount)
	case saleKeywordRe.MatchString(lowered):
		return strptr("Promo active")
	default:
		return nil
	}
}

// WarrantyYears finds an integer co-located with "warranty" and "year"/"yr".
func WarrantyYears(text string) *int {
	if text == "" {
		return nil
	}
	m := warrantyLeadRe.FindStringSubmatch(text)
	if m == nil {
		m = warrantyTrailRe.FindStringSubmatch(text)
	}
	if m == nil {
		return nil
	}
	years, ok := atoi(m[1])
	if !ok {
		return nil
	}
	return &years
}

// ReviewCount finds the integer immediately preceding "reviews"/"ratings",
// preferring thousands-separated figures so "1,234 reviews" is not read as 234.
func ReviewCount(text string) *int {
	if text == "" {
		return nil
	}
	m := reviewsGroupedRe.FindStringSubmatch(text)
	if m == nil {
		m = reviewsPlainRe.FindStringSubmatch(text)
	}
	if m == nil {
		return nil
	}
	count, ok := atoi(strings.ReplaceAll(m[1], ",", ""))
	if !ok {
		return nil
	}
	return &count
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func strptr(s string) *string {
	return &s
}
