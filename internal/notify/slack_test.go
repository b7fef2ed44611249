package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mpop-24/vantageflow/internal/monitor"
	"github.com/mpop-24/vantageflow/internal/scrape"
	"github.com/mpop-24/vantageflow/internal/track"
)

type recordedMessage struct {
	Channel string  `json:"channel"`
	Text    string  `json:"text"`
	Blocks  []Block `json:"blocks"`
}

func newTestSlack(t *testing.T, respond func(recordedMessage) string) (*SlackClient, *[]recordedMessage) {
	t.Helper()
	var messages []recordedMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))

		var msg recordedMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		messages = append(messages, msg)
		fmt.Fprint(w, respond(msg))
	}))
	t.Cleanup(srv.Close)
	return NewSlackClient(srv.URL, "xoxb-test", 5*time.Second, zap.NewNop()), &messages
}

func okResponse(recordedMessage) string { return `{"ok":true}` }

func TestPostMessage(t *testing.T) {
	t.Parallel()

	client, messages := newTestSlack(t, okResponse)
	err := client.PostMessage(context.Background(), "C1", "hello", []Block{SectionBlock("*hello*")})
	require.NoError(t, err)
	require.Len(t, *messages, 1)
	assert.Equal(t, "C1", (*messages)[0].Channel)
	assert.Equal(t, "hello", (*messages)[0].Text)
	require.Len(t, (*messages)[0].Blocks, 1)
}

func TestPostMessageAPIError(t *testing.T) {
	t.Parallel()

	client, _ := newTestSlack(t, func(recordedMessage) string {
		return `{"ok":false,"error":"channel_not_found"}`
	})
	err := client.PostMessage(context.Background(), "C1", "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestPostMessageEmptyChannel(t *testing.T) {
	t.Parallel()

	client, _ := newTestSlack(t, okResponse)
	err := client.PostMessage(context.Background(), "", "hello", nil)
	require.Error(t, err)
}

func TestAlerterPriceChangeUndercut(t *testing.T) {
	t.Parallel()

	client, messages := newTestSlack(t, okResponse)
	alerter := NewSlackAlerter(client)

	old := 120.00
	client2 := 110.00
	err := alerter.PriceChange(context.Background(), "C1", monitor.PriceChangeAlert{
		Product:     track.Product{ID: "p1", Name: "Chair"},
		Competitor:  track.Competitor{ID: "c1", Name: "RivalCo", URL: "https://rival.example/chair"},
		OldPrice:    &old,
		NewPrice:    99.99,
		ClientPrice: &client2,
		Snapshot:    scrape.Snapshot{Source: scrape.SourcePlatformAPI},
	})
	require.NoError(t, err)

	require.Len(t, *messages, 1)
	msg := (*messages)[0]
	assert.Contains(t, msg.Text, "undercutting")
	assert.Contains(t, msg.Text, "RivalCo")

	payload, err := json.Marshal(msg.Blocks)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "$120.00")
	assert.Contains(t, string(payload), "$99.99")
	assert.Contains(t, string(payload), "gap +$10.01")
	assert.Contains(t, string(payload), "Manual Audit Required")
}

func TestAlerterPriceChangeFirstObservation(t *testing.T) {
	t.Parallel()

	client, messages := newTestSlack(t, okResponse)
	alerter := NewSlackAlerter(client)

	err := alerter.PriceChange(context.Background(), "C1", monitor.PriceChangeAlert{
		Product:    track.Product{Name: "Chair"},
		Competitor: track.Competitor{Name: "RivalCo"},
		NewPrice:   150.00,
	})
	require.NoError(t, err)
	require.Len(t, *messages, 1)
	assert.Contains(t, (*messages)[0].Text, "First price recorded")
}

func TestAlerterOnboarding(t *testing.T) {
	t.Parallel()

	client, messages := newTestSlack(t, okResponse)
	alerter := NewSlackAlerter(client)

	err := alerter.Onboarding(context.Background(), "C1", track.Product{
		Name: "Chair",
		URL:  "https://shop.example/chair",
	})
	require.NoError(t, err)
	require.Len(t, *messages, 1)
	assert.Contains(t, (*messages)[0].Text, "Now tracking")
}
