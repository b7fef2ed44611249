// Package notify delivers alerts to Slack channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultSlackBaseURL is the Slack Web API endpoint.
const DefaultSlackBaseURL = "https://slack.com/api"

const maxSlackBodyBytes = 1 << 20

// Block is one Block Kit element of a message.
type Block map[string]any

// SectionBlock builds a mrkdwn section.
func SectionBlock(text string) Block {
	return Block{
		"type": "section",
		"text": map[string]string{"type": "mrkdwn", "text": text},
	}
}

// ContextBlock builds a muted context line.
func ContextBlock(text string) Block {
	return Block{
		"type":     "context",
		"elements": []map[string]string{{"type": "mrkdwn", "text": text}},
	}
}

// DividerBlock builds a horizontal rule.
func DividerBlock() Block { return Block{"type": "divider"} }

// SlackClient posts messages through the Slack Web API with a bot token.
type SlackClient struct {
	base   string
	token  string
	client *http.Client
	logger *zap.Logger
}

// NewSlackClient constructs a client. base falls back to the public API
// when empty.
func NewSlackClient(base, token string, timeout time.Duration, logger *zap.Logger) *SlackClient {
	if base == "" {
		base = DefaultSlackBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlackClient{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type postMessageRequest struct {
	Channel string  `json:"channel"`
	Text    string  `json:"text"`
	Blocks  []Block `json:"blocks,omitempty"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// PostMessage sends one message to a channel. text is the notification
// fallback; blocks carry the rich layout when present.
func (c *SlackClient) PostMessage(ctx context.Context, channelID, text string, blocks []Block) error {
	if channelID == "" {
		return fmt.Errorf("channel id is required")
	}
	payload, err := json.Marshal(postMessageRequest{Channel: channelID, Text: text, Blocks: blocks})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSlackBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack status %d", resp.StatusCode)
	}
	var parsed slackResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("slack error: %s", parsed.Error)
	}
	return nil
}
