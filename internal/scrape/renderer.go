package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrRendererDisabled indicates rendering has been disabled via configuration.
var ErrRendererDisabled = errors.New("renderer disabled")

// Renderer executes a page with JavaScript enabled and returns the DOM.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
	Close(ctx context.Context) error
}

// ChromedpRenderer renders pages using headless Chrome via chromedp.
// A shared browser process serves per-render tabs; a semaphore bounds
// concurrent renders and a per-domain limiter throttles repeat visits.
type ChromedpRenderer struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	sem             chan struct{}
	timeout         time.Duration
	settle          time.Duration
	domainQPS       float64
	domainLimiters  sync.Map
	userAgent       string
}

// NewChromedpRenderer creates a renderer using the provided configuration.
func NewChromedpRenderer(cfg Config, logger *zap.Logger) (*ChromedpRenderer, error) {
	if cfg.RenderMaxConcurrency <= 0 {
		return nil, ErrRendererDisabled
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		// Hides the automation fingerprint so price walls render.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	settle := cfg.RenderSettle
	if settle <= 0 {
		settle = 2 * time.Second
	}

	return &ChromedpRenderer{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		sem:             make(chan struct{}, cfg.RenderMaxConcurrency),
		timeout:         cfg.RenderTimeout,
		settle:          settle,
		domainQPS:       cfg.RenderDomainQPS,
		userAgent:       cfg.UserAgent,
	}, nil
}

// Close tears down the chromedp allocator and browser contexts.
func (r *ChromedpRenderer) Close(_ context.Context) error {
	if r == nil {
		return nil
	}
	r.browserCancel()
	r.allocatorCancel()
	return nil
}

// Render executes the page with JavaScript enabled and returns the DOM.
func (r *ChromedpRenderer) Render(ctx context.Context, rawURL string) (string, error) {
	if r == nil {
		return "", ErrRendererDisabled
	}

	release, err := r.acquireSlot(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	if waitErr := r.waitDomainBudget(ctx, rawURL); waitErr != nil {
		return "", fmt.Errorf("render rate limit: %w", waitErr)
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	r.recordResponse(tabCtx, meta)

	html, err := r.runChromedp(taskCtx, rawURL)
	if err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	if meta.statusCode != 0 && (meta.statusCode < 200 || meta.statusCode >= 300) {
		return "", fmt.Errorf("render status %d", meta.statusCode)
	}
	return html, nil
}

func (r *ChromedpRenderer) acquireSlot(ctx context.Context) (func(), error) {
	if r.sem == nil {
		return func() {}, nil
	}
	select {
	case r.sem <- struct{}{}:
		return func() { <-r.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

type responseMeta struct {
	once       sync.Once
	statusCode int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (r *ChromedpRenderer) recordResponse(tabCtx context.Context, meta *responseMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		meta.once.Do(func() {
			meta.statusCode = int(resp.Response.Status)
		})
	})
}

func (r *ChromedpRenderer) runChromedp(ctx context.Context, rawURL string) (string, error) {
	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(r.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// Late price hydration needs a settle window after DOM ready.
		chromedp.Sleep(r.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", err
	}
	return html, nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func (r *ChromedpRenderer) waitDomainBudget(ctx context.Context, rawURL string) error {
	if r.domainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse render url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := r.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(r.domainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}
