package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mpop-24/vantageflow/internal/events"
	"github.com/mpop-24/vantageflow/internal/scrape"
	"github.com/mpop-24/vantageflow/internal/track"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeStore struct {
	track.NoOpProvider
	products       []track.Product
	competitors    map[string][]track.Competitor
	productPrices  map[string]float64
	compUpdates    map[string]*float64
	compCheckedAt  map[string]time.Time
	listErr        error
	updateCompErr  error
	updatePriceErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		competitors:   make(map[string][]track.Competitor),
		productPrices: make(map[string]float64),
		compUpdates:   make(map[string]*float64),
		compCheckedAt: make(map[string]time.Time),
	}
}

func (s *fakeStore) ListProducts(_ context.Context, _ string) ([]track.Product, error) {
	return s.products, s.listErr
}

func (s *fakeStore) ListCompetitors(_ context.Context, productID string) ([]track.Competitor, error) {
	return s.competitors[productID], nil
}

func (s *fakeStore) UpdateProductPrice(_ context.Context, id string, price float64) error {
	if s.updatePriceErr != nil {
		return s.updatePriceErr
	}
	s.productPrices[id] = price
	return nil
}

func (s *fakeStore) UpdateCompetitor(_ context.Context, id string, price *float64, checkedAt time.Time) error {
	if s.updateCompErr != nil {
		return s.updateCompErr
	}
	s.compUpdates[id] = price
	s.compCheckedAt[id] = checkedAt
	return nil
}

type fakeScraper struct {
	snapshots map[string]scrape.Snapshot
	errs      map[string]error
	calls     map[string]int
}

func newFakeScraper() *fakeScraper {
	return &fakeScraper{
		snapshots: make(map[string]scrape.Snapshot),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (s *fakeScraper) Snapshot(_ context.Context, rawURL string) (scrape.Snapshot, error) {
	s.calls[rawURL]++
	if err := s.errs[rawURL]; err != nil {
		return scrape.Snapshot{}, err
	}
	return s.snapshots[rawURL], nil
}

type fakeAlerter struct {
	priceChanges []PriceChangeAlert
	onboardings  []string
	priceErr     error
	onboardErr   error
}

func (a *fakeAlerter) PriceChange(_ context.Context, _ string, alert PriceChangeAlert) error {
	if a.priceErr != nil {
		return a.priceErr
	}
	a.priceChanges = append(a.priceChanges, alert)
	return nil
}

func (a *fakeAlerter) Onboarding(_ context.Context, channelID string, _ track.Product) error {
	if a.onboardErr != nil {
		return a.onboardErr
	}
	a.onboardings = append(a.onboardings, channelID)
	return nil
}

func priceSnapshot(price float64) scrape.Snapshot {
	return scrape.Snapshot{Price: &price, Source: scrape.SourcePlatformAPI, FetchedAt: time.Now()}
}

func testCoordinator(t *testing.T, store track.Provider, scraper Scraper, alerter Alerter, pub events.Publisher, now time.Time) *Coordinator {
	t.Helper()
	statePath := filepath.Join(t.TempDir(), "onboarding.json")
	return NewCoordinator(store, scraper, alerter, pub, fixedClock{now: now}, statePath, "", zap.NewNop())
}

func TestRunDetectsChangeAlertsAndPersists(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	stored := 120.00

	store := newFakeStore()
	store.products = []track.Product{{ID: "p1", Name: "Chair", URL: "https://shop.example/chair", ChannelID: "C1"}}
	store.competitors["p1"] = []track.Competitor{{ID: "c1", ProductID: "p1", Name: "RivalCo", URL: "https://rival.example/chair", LastPrice: &stored}}

	scraper := newFakeScraper()
	scraper.snapshots["https://shop.example/chair"] = priceSnapshot(110.00)
	scraper.snapshots["https://rival.example/chair"] = priceSnapshot(99.99)

	alerter := &fakeAlerter{}
	publisher := events.NewMemoryPublisher()

	coordinator := testCoordinator(t, store, scraper, alerter, publisher, now)
	summary, err := coordinator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Products)
	assert.Equal(t, 1, summary.Competitors)
	assert.Equal(t, 1, summary.Changes)
	assert.Equal(t, 1, summary.Alerts)
	assert.Equal(t, 0, summary.Failures)

	require.Len(t, alerter.priceChanges, 1)
	alert := alerter.priceChanges[0]
	require.NotNil(t, alert.OldPrice)
	assert.InDelta(t, 120.00, *alert.OldPrice, 1e-9)
	assert.InDelta(t, 99.99, alert.NewPrice, 1e-9)
	require.NotNil(t, alert.ClientPrice)
	assert.InDelta(t, 110.00, *alert.ClientPrice, 1e-9)

	require.NotNil(t, store.compUpdates["c1"])
	assert.InDelta(t, 99.99, *store.compUpdates["c1"], 1e-9)
	assert.Equal(t, now, store.compCheckedAt["c1"])
	assert.InDelta(t, 110.00, store.productPrices["p1"], 1e-9)

	recorded := publisher.Events()
	require.Len(t, recorded, 1)
	assert.InDelta(t, 99.99, recorded[0].NewPrice, 1e-9)
}

func TestRunUnchangedPriceDoesNotAlert(t *testing.T) {
	t.Parallel()

	stored := 99.99
	store := newFakeStore()
	store.products = []track.Product{{ID: "p1", URL: "https://shop.example/chair", ChannelID: "C1"}}
	store.competitors["p1"] = []track.Competitor{{ID: "c1", ProductID: "p1", URL: "https://rival.example/chair", LastPrice: &stored}}

	scraper := newFakeScraper()
	scraper.snapshots["https://shop.example/chair"] = priceSnapshot(110.00)
	scraper.snapshots["https://rival.example/chair"] = priceSnapshot(99.99)

	alerter := &fakeAlerter{}
	coordinator := testCoordinator(t, store, scraper, alerter, nil, time.Now())
	summary, err := coordinator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Changes)
	assert.Empty(t, alerter.priceChanges)
	require.NotNil(t, store.compUpdates["c1"], "unchanged observations still persist a fresh timestamp")
}

func TestRunFirstObservationAlerts(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.products = []track.Product{{ID: "p1", URL: "https://shop.example/chair", ChannelID: "C1"}}
	store.competitors["p1"] = []track.Competitor{{ID: "c1", ProductID: "p1", URL: "https://rival.example/chair"}}

	scraper := newFakeScraper()
	scraper.snapshots["https://shop.example/chair"] = priceSnapshot(110.00)
	scraper.snapshots["https://rival.example/chair"] = priceSnapshot(95.00)

	alerter := &fakeAlerter{}
	coordinator := testCoordinator(t, store, scraper, alerter, nil, time.Now())
	summary, err := coordinator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Changes)
	require.Len(t, alerter.priceChanges, 1)
	assert.Nil(t, alerter.priceChanges[0].OldPrice)
}

func TestRunFailedFetchLeavesStoredPriceUntouched(t *testing.T) {
	t.Parallel()

	stored := 99.99
	store := newFakeStore()
	store.products = []track.Product{{ID: "p1", URL: "https://shop.example/chair", ChannelID: "C1"}}
	store.competitors["p1"] = []track.Competitor{{ID: "c1", ProductID: "p1", URL: "https://rival.example/chair", LastPrice: &stored}}

	scraper := newFakeScraper()
	scraper.snapshots["https://shop.example/chair"] = priceSnapshot(110.00)
	// Cascade came back without a price.
	scraper.snapshots["https://rival.example/chair"] = scrape.Snapshot{}

	alerter := &fakeAlerter{}
	coordinator := testCoordinator(t, store, scraper, alerter, nil, time.Now())
	summary, err := coordinator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Changes)
	assert.Empty(t, alerter.priceChanges)
	_, updated := store.compUpdates["c1"]
	assert.False(t, updated, "a priceless observation must not be recorded")
}

func TestRunEntityFailureIsolatesSiblings(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.products = []track.Product{{ID: "p1", URL: "https://shop.example/chair", ChannelID: "C1"}}
	store.competitors["p1"] = []track.Competitor{
		{ID: "c1", ProductID: "p1", URL: "https://down.example/chair"},
		{ID: "c2", ProductID: "p1", URL: "https://rival.example/chair"},
	}

	scraper := newFakeScraper()
	scraper.snapshots["https://shop.example/chair"] = priceSnapshot(110.00)
	scraper.errs["https://down.example/chair"] = errors.New("all strategies exhausted: timeout")
	scraper.snapshots["https://rival.example/chair"] = priceSnapshot(95.00)

	alerter := &fakeAlerter{}
	coordinator := testCoordinator(t, store, scraper, alerter, nil, time.Now())
	summary, err := coordinator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failures)
	assert.Equal(t, 2, summary.Competitors)
	assert.Equal(t, 1, scraper.calls["https://rival.example/chair"], "sibling still processed after a failure")
	require.NotNil(t, store.compUpdates["c2"])
}

func TestRunAlertFailureStillPersists(t *testing.T) {
	t.Parallel()

	stored := 120.00
	store := newFakeStore()
	store.products = []track.Product{{ID: "p1", URL: "https://shop.example/chair", ChannelID: "C1"}}
	store.competitors["p1"] = []track.Competitor{{ID: "c1", ProductID: "p1", URL: "https://rival.example/chair", LastPrice: &stored}}

	scraper := newFakeScraper()
	scraper.snapshots["https://shop.example/chair"] = priceSnapshot(110.00)
	scraper.snapshots["https://rival.example/chair"] = priceSnapshot(99.99)

	alerter := &fakeAlerter{priceErr: errors.New("channel_not_found"), onboardErr: errors.New("channel_not_found")}
	coordinator := testCoordinator(t, store, scraper, alerter, nil, time.Now())
	summary, err := coordinator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Changes)
	assert.Equal(t, 0, summary.Alerts)
	require.NotNil(t, store.compUpdates["c1"], "persist happens even when the alert fails")
	assert.InDelta(t, 99.99, *store.compUpdates["c1"], 1e-9)
}

func TestRunOnboardsNewProductsOnce(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.products = []track.Product{{ID: "p1", Name: "Chair", URL: "https://shop.example/chair", ChannelID: "C1"}}

	scraper := newFakeScraper()
	scraper.snapshots["https://shop.example/chair"] = priceSnapshot(110.00)

	alerter := &fakeAlerter{}
	statePath := filepath.Join(t.TempDir(), "onboarding.json")
	coordinator := NewCoordinator(store, scraper, alerter, nil, fixedClock{now: time.Now()}, statePath, "", zap.NewNop())

	_, err := coordinator.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, alerter.onboardings, 1)
	assert.Equal(t, "C1", alerter.onboardings[0])

	// Second run: the durable state suppresses the repeat notification.
	_, err = coordinator.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, alerter.onboardings, 1)

	// A moved alert channel re-onboards.
	store.products[0].ChannelID = "C2"
	_, err = coordinator.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, alerter.onboardings, 2)
	assert.Equal(t, "C2", alerter.onboardings[1])
}

func TestRunPrunesRemovedProductsFromState(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.products = []track.Product{
		{ID: "p1", URL: "https://shop.example/a", ChannelID: "C1"},
		{ID: "p2", URL: "https://shop.example/b", ChannelID: "C1"},
	}
	scraper := newFakeScraper()
	scraper.snapshots["https://shop.example/a"] = priceSnapshot(10)
	scraper.snapshots["https://shop.example/b"] = priceSnapshot(20)

	alerter := &fakeAlerter{}
	statePath := filepath.Join(t.TempDir(), "onboarding.json")
	coordinator := NewCoordinator(store, scraper, alerter, nil, fixedClock{now: time.Now()}, statePath, "", zap.NewNop())

	_, err := coordinator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, LoadOnboardingState(statePath, zap.NewNop()).Len())

	store.products = store.products[:1]
	_, err = coordinator.Run(context.Background())
	require.NoError(t, err)

	state := LoadOnboardingState(statePath, zap.NewNop())
	assert.Equal(t, 1, state.Len())
	_, ok := state.Channel("p2")
	assert.False(t, ok)
}

func TestRunListFailureSurfaces(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.listErr = errors.New("store down")
	coordinator := testCoordinator(t, store, newFakeScraper(), &fakeAlerter{}, nil, time.Now())
	_, err := coordinator.Run(context.Background())
	require.Error(t, err)
}
