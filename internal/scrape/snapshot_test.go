package scrape

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mpop-24/vantageflow/internal/extract"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type stubContent struct {
	content string
	err     error
	calls   int
}

func (s *stubContent) Content(_ context.Context, _ Target) (string, error) {
	s.calls++
	return s.content, s.err
}

type memoryArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryArchive) Save(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[name] = data
	return nil
}

func TestBuilderSnapshotFromAPIWithAncillaryContent(t *testing.T) {
	t.Parallel()

	price := 499.99
	compare := 599.99
	api := &stubStrategy{name: "api", res: Result{
		Price:     &price,
		Title:     "H1 Pro Chair",
		CompareAt: &compare,
		Source:    SourcePlatformAPI,
	}}
	content := &stubContent{content: "H1 Pro Chair. In Stock. Ships in 2-4 business days. 15% off sitewide. 10 year warranty. 1,204 reviews"}
	store := &memoryArchive{}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	builder := NewBuilder(NewCascade(zap.NewNop(), api), content, fixedClock{now: now}, store, "pages", zap.NewNop())
	snap, err := builder.Snapshot(context.Background(), "https://shop.example/products/h1-pro")
	require.NoError(t, err)

	require.NotNil(t, snap.Price)
	assert.InDelta(t, 499.99, *snap.Price, 1e-9)
	assert.True(t, snap.OnSale)
	assert.Equal(t, extract.StockInStock, snap.Stock)
	require.NotNil(t, snap.ShippingLabel)
	assert.Equal(t, "Ships in 2-4 days", *snap.ShippingLabel)
	require.NotNil(t, snap.ShippingDays)
	assert.InDelta(t, 3.0, *snap.ShippingDays, 1e-9)
	require.NotNil(t, snap.Discount)
	assert.Equal(t, "15% off", *snap.Discount)
	require.NotNil(t, snap.WarrantyYears)
	assert.Equal(t, 10, *snap.WarrantyYears)
	require.NotNil(t, snap.ReviewCount)
	assert.Equal(t, 1204, *snap.ReviewCount)
	assert.Equal(t, SourcePlatformAPI, snap.Source)
	assert.Equal(t, now, snap.FetchedAt)
	assert.Equal(t, 1, content.calls)
	assert.Len(t, store.objects, 1, "fetched content should be archived")
}

func TestBuilderSnapshotAncillaryFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	price := 49.99
	api := &stubStrategy{name: "api", res: Result{Price: &price, Source: SourcePlatformAPI}}
	content := &stubContent{err: errors.New("proxy down")}

	builder := NewBuilder(NewCascade(zap.NewNop(), api), content, fixedClock{now: time.Now()}, nil, "", zap.NewNop())
	snap, err := builder.Snapshot(context.Background(), "https://shop.example/products/widget")
	require.NoError(t, err)

	require.NotNil(t, snap.Price)
	assert.Equal(t, extract.StockUnknown, snap.Stock)
	assert.Nil(t, snap.ShippingLabel)
	assert.Nil(t, snap.Discount)
}

func TestBuilderSnapshotSkipsContentFetchWhenStrategyProvidedIt(t *testing.T) {
	t.Parallel()

	price := 15.00
	proxy := &stubStrategy{name: "proxy", res: Result{
		Price:   &price,
		Content: "Widget. Out of Stock.",
		Source:  SourceProxyText,
	}}
	content := &stubContent{content: "should not be fetched"}

	builder := NewBuilder(NewCascade(zap.NewNop(), proxy), content, fixedClock{now: time.Now()}, nil, "", zap.NewNop())
	snap, err := builder.Snapshot(context.Background(), "https://shop.example/widget")
	require.NoError(t, err)
	assert.Equal(t, extract.StockOutOfStock, snap.Stock)
	assert.Equal(t, 0, content.calls)
}

func TestBuilderSnapshotCascadeExhaustion(t *testing.T) {
	t.Parallel()

	failing := &stubStrategy{name: "api", err: errors.New("status 500")}
	builder := NewBuilder(NewCascade(zap.NewNop(), failing), nil, fixedClock{now: time.Now()}, nil, "", zap.NewNop())
	_, err := builder.Snapshot(context.Background(), "https://shop.example/widget")
	require.Error(t, err)
}

func TestBuilderSnapshotBadURL(t *testing.T) {
	t.Parallel()

	builder := NewBuilder(NewCascade(zap.NewNop()), nil, fixedClock{now: time.Now()}, nil, "", zap.NewNop())
	_, err := builder.Snapshot(context.Background(), "   ")
	require.Error(t, err)
}
