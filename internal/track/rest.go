package track

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	restMaxAttempts  = 5
	restBaseDelay    = time.Second
	maxRESTBodyBytes = 8 << 20
)

// retryableStatus marks transient upstream failures worth another attempt.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// RESTProvider speaks a PostgREST-style HTTP API: rows are filtered with
// `column=eq.value` query parameters and updated via PATCH. Transient
// failures retry with exponential backoff before surfacing.
type RESTProvider struct {
	base   string
	apiKey string
	client *http.Client
	logger *zap.Logger
	sleep  func(time.Duration)
}

// NewRESTProvider constructs a provider against the given API base URL.
func NewRESTProvider(base, apiKey string, timeout time.Duration, logger *zap.Logger) *RESTProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RESTProvider{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		logger: logger,
		sleep:  time.Sleep,
	}
}

// ListProducts implements Provider.
func (p *RESTProvider) ListProducts(ctx context.Context, teamID string) ([]Product, error) {
	query := url.Values{"select": {"*"}, "order": {"name.asc"}}
	if teamID != "" {
		query.Set("team_id", "eq."+teamID)
	}
	var products []Product
	if err := p.getJSON(ctx, "/rest/v1/products", query, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct implements Provider.
func (p *RESTProvider) GetProduct(ctx context.Context, id string) (Product, error) {
	query := url.Values{"select": {"*"}, "id": {"eq." + id}, "limit": {"1"}}
	var products []Product
	if err := p.getJSON(ctx, "/rest/v1/products", query, &products); err != nil {
		return Product{}, err
	}
	if len(products) == 0 {
		return Product{}, ErrNotFound
	}
	return products[0], nil
}

// ListCompetitors implements Provider.
func (p *RESTProvider) ListCompetitors(ctx context.Context, productID string) ([]Competitor, error) {
	query := url.Values{
		"select":     {"*"},
		"product_id": {"eq." + productID},
		"order":      {"id.asc"},
	}
	var competitors []Competitor
	if err := p.getJSON(ctx, "/rest/v1/competitors", query, &competitors); err != nil {
		return nil, err
	}
	return competitors, nil
}

// UpdateProductPrice implements Provider.
func (p *RESTProvider) UpdateProductPrice(ctx context.Context, id string, price float64) error {
	query := url.Values{"id": {"eq." + id}}
	return p.patch(ctx, "/rest/v1/products", query, map[string]any{"price": price})
}

// UpdateCompetitor implements Provider.
func (p *RESTProvider) UpdateCompetitor(ctx context.Context, id string, price *float64, checkedAt time.Time) error {
	body := map[string]any{"last_checked": checkedAt.UTC().Format(time.RFC3339)}
	if price != nil {
		body["last_price"] = *price
	}
	query := url.Values{"id": {"eq." + id}}
	return p.patch(ctx, "/rest/v1/competitors", query, body)
}

// Close implements Provider.
func (p *RESTProvider) Close() { p.client.CloseIdleConnections() }

func (p *RESTProvider) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := p.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (p *RESTProvider) patch(ctx context.Context, path string, query url.Values, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	_, err = p.do(ctx, http.MethodPatch, path, query, body)
	return err
}

// do issues one API call with up to restMaxAttempts tries. Every transport
// error or transient status code is followed by a backoff step of 1s, 2s,
// 4s, 8s, then 16s; anything else surfaces immediately.
func (p *RESTProvider) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	endpoint := p.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= restMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, retryable, err := p.doOnce(ctx, method, endpoint, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}

		delay := restBaseDelay << (attempt - 1)
		p.logger.Warn("store request backing off",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		p.sleep(delay)
	}
	return nil, fmt.Errorf("%s %s: %w", method, path, lastErr)
}

func (p *RESTProvider) doOnce(ctx context.Context, method, endpoint string, payload []byte) (body []byte, retryable bool, err error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, false, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxRESTBodyBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, retryableStatus(resp.StatusCode), fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
