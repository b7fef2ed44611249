package events

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSubPublisher emits price change events to a Google Cloud Pub/Sub
// topic as JSON messages.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher connects to the project and verifies the topic
// exists before accepting events.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string) (*PubSubPublisher, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("check topic %q: %w", topicID, err)
	}
	if !ok {
		client.Close()
		return nil, fmt.Errorf("topic %q does not exist", topicID)
	}
	return &PubSubPublisher{client: client, topic: topic}, nil
}

// Publish implements Publisher.
func (p *PubSubPublisher) Publish(ctx context.Context, event PriceChange) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"product_id":    event.ProductID,
			"competitor_id": event.CompetitorID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close flushes pending messages and releases the client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
