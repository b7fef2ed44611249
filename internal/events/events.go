// Package events publishes price change notifications for downstream
// consumers outside the chat alert path.
package events

import (
	"context"
	"sync"
	"time"
)

// PriceChange is the payload emitted for every detected change.
type PriceChange struct {
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name"`
	CompetitorID string    `json:"competitor_id"`
	Competitor   string    `json:"competitor"`
	URL          string    `json:"url"`
	OldPrice     *float64  `json:"old_price,omitempty"`
	NewPrice     float64   `json:"new_price"`
	ClientPrice  *float64  `json:"client_price,omitempty"`
	ObservedAt   time.Time `json:"observed_at"`
}

// Publisher emits price change events.
type Publisher interface {
	Publish(ctx context.Context, event PriceChange) error
	Close() error
}

// NoOpPublisher drops every event.
type NoOpPublisher struct{}

// NewNoOpPublisher returns a publisher that discards events.
func NewNoOpPublisher() *NoOpPublisher { return &NoOpPublisher{} }

func (*NoOpPublisher) Publish(context.Context, PriceChange) error { return nil }

func (*NoOpPublisher) Close() error { return nil }

// MemoryPublisher stores published events for inspection in tests.
type MemoryPublisher struct {
	mu     sync.RWMutex
	events []PriceChange
}

// NewMemoryPublisher returns an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

// Publish records the event.
func (p *MemoryPublisher) Publish(_ context.Context, event PriceChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the recorded publishes.
func (p *MemoryPublisher) Events() []PriceChange {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PriceChange, len(p.events))
	copy(out, p.events)
	return out
}

// Close implements Publisher.
func (p *MemoryPublisher) Close() error { return nil }
