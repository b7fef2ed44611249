// Package track persists the catalog of monitored products and their
// competitor listings, with pluggable storage providers.
package track

import "time"

// Product is a retailer's own listing being monitored. ChannelID is the
// chat channel that receives alerts for this product; TeamID scopes the
// catalog per workspace.
type Product struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	ChannelID string   `json:"channel_id"`
	TeamID    string   `json:"team_id"`
	Price     *float64 `json:"price,omitempty"`
}

// Competitor is a rival listing tracked against a product. LastPrice and
// LastChecked are nil until the first successful observation.
type Competitor struct {
	ID          string     `json:"id"`
	ProductID   string     `json:"product_id"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	LastPrice   *float64   `json:"last_price,omitempty"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
}
