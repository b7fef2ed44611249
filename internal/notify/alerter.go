package notify

import (
	"context"
	"fmt"

	"github.com/mpop-24/vantageflow/internal/monitor"
	"github.com/mpop-24/vantageflow/internal/report"
	"github.com/mpop-24/vantageflow/internal/track"
)

// SlackAlerter renders price change and onboarding notifications and
// posts them through a SlackClient.
type SlackAlerter struct {
	client *SlackClient
}

// NewSlackAlerter wraps a client.
func NewSlackAlerter(client *SlackClient) *SlackAlerter {
	return &SlackAlerter{client: client}
}

// PriceChange implements monitor.Alerter.
func (a *SlackAlerter) PriceChange(ctx context.Context, channelID string, alert monitor.PriceChangeAlert) error {
	headline := priceChangeHeadline(alert)
	blocks := []Block{SectionBlock(headline)}

	detail := fmt.Sprintf("%s: %s → *%s*",
		alert.Competitor.Name,
		report.FormatOptionalPrice(alert.OldPrice),
		report.FormatPrice(alert.NewPrice),
	)
	if alert.ClientPrice != nil {
		gap := *alert.ClientPrice - alert.NewPrice
		detail += fmt.Sprintf("\nYour price: %s (gap %s)",
			report.FormatPrice(*alert.ClientPrice),
			report.FormatGap(gap),
		)
	}
	blocks = append(blocks, SectionBlock(detail))
	blocks = append(blocks, ContextBlock(fmt.Sprintf("Stock: %s · Shipping: %s · Promo: %s · <%s|View listing>",
		report.StockLabel(alert.Snapshot.Stock),
		report.ShippingLabel(alert.Snapshot.ShippingLabel),
		report.DiscountLabel(alert.Snapshot.Discount),
		alert.Competitor.URL,
	)))

	return a.client.PostMessage(ctx, channelID, headline, blocks)
}

func priceChangeHeadline(alert monitor.PriceChangeAlert) string {
	if alert.ClientPrice != nil && alert.NewPrice < *alert.ClientPrice {
		return fmt.Sprintf(":rotating_light: *%s* is undercutting *%s*", alert.Competitor.Name, alert.Product.Name)
	}
	if alert.OldPrice == nil {
		return fmt.Sprintf(":eyes: First price recorded for *%s* on *%s*", alert.Competitor.Name, alert.Product.Name)
	}
	return fmt.Sprintf(":chart_with_upwards_trend: *%s* changed price on *%s*", alert.Competitor.Name, alert.Product.Name)
}

// Onboarding implements monitor.Alerter.
func (a *SlackAlerter) Onboarding(ctx context.Context, channelID string, product track.Product) error {
	headline := fmt.Sprintf(":white_check_mark: Now tracking *%s*", product.Name)
	blocks := []Block{
		SectionBlock(headline),
		ContextBlock(fmt.Sprintf("Price change alerts for <%s|%s> will land in this channel.", product.URL, product.Name)),
	}
	return a.client.PostMessage(ctx, channelID, headline, blocks)
}
