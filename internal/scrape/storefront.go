package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxAPIBodyBytes caps how much of a storefront response is read; product
// JSON payloads are small and anything larger is not worth parsing.
const maxAPIBodyBytes = 4 << 20

// StorefrontAPI retrieves prices from the storefront's product JSON
// endpoint. It walks the host variants and API path candidates derived
// from the target and returns on the first parsable payload with a price.
type StorefrontAPI struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewStorefrontAPI constructs the storefront strategy.
func NewStorefrontAPI(userAgent string, timeout time.Duration, logger *zap.Logger) *StorefrontAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorefrontAPI{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Name implements Strategy.
func (s *StorefrontAPI) Name() string { return string(SourcePlatformAPI) }

// Attempt implements Strategy. Prices on the product endpoint are minor
// units, so the raw value divides by 100. A compare-at price above the
// current price marks the product as on sale.
func (s *StorefrontAPI) Attempt(ctx context.Context, target Target) (Result, error) {
	hosts := hostVariants(target.Host)
	paths := apiPathCandidates(target.Handle)
	if len(hosts) == 0 || len(paths) == 0 {
		return Result{}, errors.New("no storefront candidates")
	}

	var lastErr error
	for _, host := range hosts {
		for _, path := range paths {
			endpoint := "https://" + host + path
			data, err := s.fetchJSON(ctx, endpoint)
			if err != nil {
				lastErr = fmt.Errorf("%s%s: %w", host, path, err)
				continue
			}
			res, err := resultFromProduct(data)
			if err != nil {
				lastErr = fmt.Errorf("%s%s: %w", host, path, err)
				continue
			}
			return res, nil
		}
	}
	return Result{}, lastErr
}

func resultFromProduct(data map[string]any) (Result, error) {
	rawPrice, ok := data["price"].(float64)
	if !ok {
		return Result{}, errors.New("missing price")
	}
	price := rawPrice / 100

	var compareAt *float64
	if rawCompare, ok := data["compare_at_price"].(float64); ok && rawCompare > 0 {
		v := rawCompare / 100
		compareAt = &v
	}

	title, _ := data["title"].(string)
	return Result{
		Price:     &price,
		Title:     title,
		CompareAt: compareAt,
		Source:    SourcePlatformAPI,
	}, nil
}

func (s *StorefrontAPI) fetchJSON(ctx context.Context, endpoint string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	data, err := decodeLooseJSON(body)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// decodeLooseJSON parses a JSON object, salvaging one embedded in leading
// or trailing noise by slicing from the first '{' to the last '}'.
func decodeLooseJSON(body []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err == nil {
		return data, nil
	}
	text := string(body)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, errors.New("invalid JSON")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &data); err != nil {
		return nil, errors.New("invalid JSON")
	}
	return data, nil
}
