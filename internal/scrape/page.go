package scrape

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mpop-24/vantageflow/internal/extract"
)

// PageFetcher retrieves a document over plain HTTP.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// DirectPage fetches the product page itself and extracts the price from
// its markup. A static probe fetch runs first; when the detector sees a
// script-gated shell the page is promoted to a headless render.
type DirectPage struct {
	fetcher  PageFetcher
	renderer Renderer
	detector *RenderDetector
	logger   *zap.Logger
}

// NewDirectPage constructs the direct-page strategy. renderer may be nil
// when headless rendering is disabled; promotion is then skipped.
func NewDirectPage(fetcher PageFetcher, renderer Renderer, detector *RenderDetector, logger *zap.Logger) *DirectPage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectPage{
		fetcher:  fetcher,
		renderer: renderer,
		detector: detector,
		logger:   logger,
	}
}

// Name implements Strategy.
func (p *DirectPage) Name() string { return string(SourceHTML) }

// Attempt implements Strategy. Candidate URLs are the target as given plus
// flat and /products/ layouts across both host variants; extraction prefers
// structured metadata and falls back to a text scan of the flattened page.
func (p *DirectPage) Attempt(ctx context.Context, target Target) (Result, error) {
	candidates := p.candidateURLs(target)
	if len(candidates) == 0 {
		return Result{}, errors.New("no page candidates")
	}

	var lastErr error
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		html, err := p.fetchHTML(ctx, candidate)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", candidate, err)
			continue
		}

		price := extract.PriceFromHTML(html)
		text := extract.Flatten(html)
		if price == nil {
			price = extract.Price(text)
		}
		if price == nil {
			lastErr = fmt.Errorf("%s: price not found", candidate)
			continue
		}
		return Result{
			Price:   price,
			Content: text,
			Source:  SourceHTML,
		}, nil
	}
	return Result{}, lastErr
}

func (p *DirectPage) fetchHTML(ctx context.Context, rawURL string) (string, error) {
	page, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if page.StatusCode < 200 || page.StatusCode >= 300 {
		return "", fmt.Errorf("status %d", page.StatusCode)
	}

	html := string(page.Body)
	if p.renderer == nil || p.detector == nil || !p.detector.NeedsRender(html) {
		return html, nil
	}

	rendered, err := p.renderer.Render(ctx, rawURL)
	if err != nil {
		// The static body still stands a chance with the extractors.
		p.logger.Warn("headless render failed, using static body",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return html, nil
	}
	return rendered, nil
}

func (p *DirectPage) candidateURLs(target Target) []string {
	candidates := []string{target.RawURL}
	for _, host := range hostVariants(target.Host) {
		for _, path := range pagePathCandidates(target.Handle) {
			candidates = append(candidates, "https://"+host+path)
		}
	}
	return dedupe(candidates)
}
