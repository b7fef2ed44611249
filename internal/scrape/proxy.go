package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mpop-24/vantageflow/internal/extract"
)

// DefaultProxyBaseURL is the public reader endpoint used when none is
// configured.
const DefaultProxyBaseURL = "https://r.jina.ai"

// ReaderProxy retrieves page content through a text-extraction proxy that
// returns `{data:{content,title}}` with the page reduced to markdown. It
// is the cascade's last resort: slower, but unaffected by script walls.
type ReaderProxy struct {
	base   string
	client *http.Client
	logger *zap.Logger
}

// NewReaderProxy constructs the proxy strategy.
func NewReaderProxy(base string, timeout time.Duration, logger *zap.Logger) *ReaderProxy {
	if base == "" {
		base = DefaultProxyBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReaderProxy{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Name implements Strategy.
func (p *ReaderProxy) Name() string { return string(SourceProxyText) }

// Attempt implements Strategy.
func (p *ReaderProxy) Attempt(ctx context.Context, target Target) (Result, error) {
	content, title, err := p.fetch(ctx, target.RawURL)
	if err != nil {
		return Result{}, err
	}
	price := extract.Price(content)
	if price == nil {
		return Result{}, errors.New("price not found in proxy content")
	}
	return Result{
		Price:   price,
		Title:   title,
		Content: content,
		Source:  SourceProxyText,
	}, nil
}

// Content fetches the proxy's text rendition of a target without requiring
// a price, so ancillary extraction has input when the API step won.
func (p *ReaderProxy) Content(ctx context.Context, target Target) (string, error) {
	content, _, err := p.fetch(ctx, target.RawURL)
	return content, err
}

func (p *ReaderProxy) fetch(ctx context.Context, rawURL string) (content, title string, err error) {
	endpoint := p.base + "/" + rawURL
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIBodyBytes))
	if err != nil {
		return "", "", fmt.Errorf("read body: %w", err)
	}
	data, err := decodeLooseJSON(body)
	if err != nil {
		return "", "", err
	}

	// Either the reader wraps the payload under "data" or serves it flat.
	payload := data
	if inner, ok := data["data"].(map[string]any); ok {
		payload = inner
	}
	content, _ = payload["content"].(string)
	title, _ = payload["title"].(string)
	if content == "" {
		return "", "", errors.New("empty proxy content")
	}
	return content, title, nil
}
