package scrape

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Page is a statically fetched document.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
}

// CollyFetcher fetches pages over plain HTTP using the Colly collector.
type CollyFetcher struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewCollyFetcher constructs a configured Colly-based fetcher.
func NewCollyFetcher(cfg Config, logger *zap.Logger) (*CollyFetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	return &CollyFetcher{
		baseCollector: base,
		logger:        logger,
	}, nil
}

// Fetch retrieves a page via a clone of the base collector.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	collector := f.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		page := Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
		}
		send(fetchResult{page: page})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		send(fetchResult{page: Page{URL: rawURL, StatusCode: status}, err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		return res.page, res.err
	default:
		return Page{}, errors.New("colly fetch produced no result")
	}
}

type fetchResult struct {
	page Page
	err  error
}
