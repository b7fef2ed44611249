package scrape

import (
	"bytes"
	"strings"

	"github.com/mpop-24/vantageflow/internal/extract"
)

// RenderDetector decides whether a statically fetched page needs a
// headless render before extraction. Retail sites that gate price data
// behind client-side scripts serve thin or keyword-laden shells to plain
// HTTP clients.
type RenderDetector struct {
	minHTMLBytes int
	keywords     [][]byte
}

// NewRenderDetector constructs a detector with the configured thresholds.
func NewRenderDetector(minBytes int, keywords []string) *RenderDetector {
	lowered := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lowered = append(lowered, bytes.ToLower([]byte(kw)))
	}
	return &RenderDetector{
		minHTMLBytes: minBytes,
		keywords:     lowered,
	}
}

// NeedsRender inspects static HTML for signals that script execution is
// required: a body below the size threshold, anti-automation keywords, or
// the absence of any price signal in the served markup.
func (d *RenderDetector) NeedsRender(html string) bool {
	if d == nil {
		return false
	}
	switch {
	case d.bodyBelowThreshold(html):
		return true
	case d.containsKeywords(html):
		return true
	default:
		return d.missingPriceSignals(html)
	}
}

func (d *RenderDetector) bodyBelowThreshold(html string) bool {
	return d.minHTMLBytes > 0 && len(html) < d.minHTMLBytes
}

func (d *RenderDetector) containsKeywords(html string) bool {
	if html == "" || len(d.keywords) == 0 {
		return false
	}
	lowered := bytes.ToLower([]byte(html))
	for _, kw := range d.keywords {
		if bytes.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func (d *RenderDetector) missingPriceSignals(html string) bool {
	if html == "" {
		return true
	}
	if extract.PriceFromHTML(html) != nil {
		return false
	}
	return extract.Price(html) == nil
}
