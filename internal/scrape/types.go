// Package scrape implements the retrieval cascade that recovers a product
// snapshot from a target URL. Strategies are tried in a fixed priority
// order and the cascade stops at the first one yielding a valid price.
package scrape

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/mpop-24/vantageflow/internal/extract"
)

// Source identifies which retrieval strategy produced a snapshot.
type Source string

// Snapshot sources.
const (
	SourcePlatformAPI Source = "platform_api"
	SourceHTML        Source = "html"
	SourceProxyText   Source = "proxy_text"
)

// Snapshot is one normalized observation of a target's commerce attributes.
// It is a value: built once per fetch, never mutated. Absent signals stay
// nil; placeholder text is a reporting concern.
type Snapshot struct {
	Price         *float64
	Stock         extract.StockStatus
	ShippingLabel *string
	ShippingDays  *float64
	ShippingCost  *float64
	Discount      *string
	ReviewCount   *int
	WarrantyYears *int
	Title         string
	CompareAt     *float64
	OnSale        bool
	Source        Source
	FetchedAt     time.Time
}

// Target is a parsed monitoring URL: the storefront host plus the product
// handle taken from the last path segment.
type Target struct {
	RawURL string
	Host   string
	Handle string
}

// Result is what a single strategy attempt yields. Content carries the
// page-like text fetched at that step (empty for API-only responses) so
// ancillary extraction can run against the deepest content available.
type Result struct {
	Price     *float64
	Title     string
	CompareAt *float64
	Content   string
	Source    Source
}

// ParseTarget normalizes a raw URL and splits it into host and handle.
// Scheme-less input is assumed to be https.
func ParseTarget(raw string) (Target, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return Target{}, fmt.Errorf("empty target url")
	}
	if !strings.HasPrefix(cleaned, "http://") && !strings.HasPrefix(cleaned, "https://") {
		cleaned = "https://" + strings.TrimLeft(cleaned, "/")
	}
	parsed, err := url.Parse(cleaned)
	if err != nil {
		return Target{}, fmt.Errorf("parse target url: %w", err)
	}
	if parsed.Host == "" {
		return Target{}, fmt.Errorf("target url %q has no host", raw)
	}
	handle := ""
	if trimmed := strings.Trim(parsed.Path, "/"); trimmed != "" {
		segments := strings.Split(trimmed, "/")
		handle = segments[len(segments)-1]
	}
	return Target{
		RawURL: cleaned,
		Host:   parsed.Host,
		Handle: handle,
	}, nil
}

// hostVariants returns exactly two candidate hosts: the host as given,
// then its www-toggled sibling, deduplicated with order preserved.
func hostVariants(host string) []string {
	cleaned := strings.Trim(strings.TrimSpace(host), "/")
	cleaned = strings.TrimPrefix(cleaned, "https://")
	cleaned = strings.TrimPrefix(cleaned, "http://")
	if cleaned == "" {
		return nil
	}
	candidates := []string{cleaned}
	if strings.HasPrefix(cleaned, "www.") {
		candidates = append(candidates, strings.TrimPrefix(cleaned, "www."))
	} else {
		candidates = append(candidates, "www."+cleaned)
	}
	seen := make(map[string]struct{}, len(candidates))
	ordered := make([]string, 0, len(candidates))
	for _, h := range candidates {
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		ordered = append(ordered, h)
	}
	return ordered
}

// apiPathCandidates derives storefront product API paths from the handle.
func apiPathCandidates(handle string) []string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(handle), "/")
	if cleaned == "" {
		return nil
	}
	return dedupe([]string{
		"/products/" + cleaned + ".js",
		"/" + cleaned + ".js",
	})
}

// pagePathCandidates derives product page paths, ending with the site root
// as a last resort.
func pagePathCandidates(handle string) []string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(handle), "/")
	candidates := make([]string, 0, 3)
	if cleaned != "" {
		candidates = append(candidates, "/"+cleaned, "/products/"+cleaned)
	}
	candidates = append(candidates, "/")
	return dedupe(candidates)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// validPrice rejects nil, non-finite, zero, and negative prices; a page
// will not legitimately sell at $0, so such a value must not stop the
// cascade.
func validPrice(p *float64) bool {
	if p == nil {
		return false
	}
	return *p > 0 && !math.IsInf(*p, 0) && !math.IsNaN(*p)
}
