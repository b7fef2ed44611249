package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mpop-24/vantageflow/internal/archive"
)

// Config captures every knob that influences a fetch. Values originate
// from Viper so the cascade can be tuned via files or env vars.
type Config struct {
	UserAgent            string
	RequestTimeout       time.Duration
	ProxyBaseURL         string
	RenderEnabled        bool
	RenderTimeout        time.Duration
	RenderSettle         time.Duration
	RenderMaxConcurrency int
	RenderDomainQPS      float64
	DetectorMinHTMLBytes int
	DetectorKeywords     []string
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.UserAgent == "" {
		return fmt.Errorf("scrape.user_agent must be set")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("scrape.request_timeout must be > 0")
	}
	if c.RenderEnabled {
		if c.RenderTimeout <= 0 {
			return fmt.Errorf("scrape.render_timeout must be > 0 when rendering is enabled")
		}
		if c.RenderMaxConcurrency <= 0 {
			return fmt.Errorf("scrape.render_max_concurrency must be > 0 when rendering is enabled")
		}
	}
	if c.RenderDomainQPS < 0 {
		return fmt.Errorf("scrape.render_domain_qps must be >= 0")
	}
	if c.DetectorMinHTMLBytes < 0 {
		return fmt.Errorf("scrape.detector_min_html_bytes must be >= 0")
	}
	return nil
}

// Pipeline bundles the assembled cascade with its teardown.
type Pipeline struct {
	Builder  *Builder
	renderer Renderer
}

// NewPipeline wires the full strategy order (storefront API, direct page,
// reader proxy) and the snapshot builder from one config.
func NewPipeline(cfg Config, clock Clock, store archive.Provider, archivePrefix string, logger *zap.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fetcher, err := NewCollyFetcher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	var renderer Renderer
	if cfg.RenderEnabled {
		r, err := NewChromedpRenderer(cfg, logger)
		switch {
		case err == nil:
			renderer = r
		case errors.Is(err, ErrRendererDisabled):
			logger.Warn("renderer disabled despite feature flag; static fetch only")
		default:
			return nil, fmt.Errorf("init renderer: %w", err)
		}
	}

	detector := NewRenderDetector(cfg.DetectorMinHTMLBytes, cfg.DetectorKeywords)
	proxy := NewReaderProxy(cfg.ProxyBaseURL, cfg.RequestTimeout, logger)

	cascade := NewCascade(logger,
		NewStorefrontAPI(cfg.UserAgent, cfg.RequestTimeout, logger),
		NewDirectPage(fetcher, renderer, detector, logger),
		proxy,
	)

	return &Pipeline{
		Builder:  NewBuilder(cascade, proxy, clock, store, archivePrefix, logger),
		renderer: renderer,
	}, nil
}

// Close releases the headless browser, if one was started.
func (p *Pipeline) Close(ctx context.Context) error {
	if p.renderer != nil {
		return p.renderer.Close(ctx)
	}
	return nil
}
