// Package analytics sends product events to Segment's HTTP tracking API.
// Calls are best-effort: an unconfigured client is a no-op and send failures
// are logged, never propagated.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const trackURL = "https://api.segment.io/v1/track"

type Client struct {
	writeKey   string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(writeKey string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		writeKey:   writeKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c.writeKey != ""
}

type trackPayload struct {
	UserID     string         `json:"userId"`
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Track records an event for a user. Failures are swallowed after logging.
func (c *Client) Track(ctx context.Context, userID, event string, properties map[string]any) {
	if !c.Configured() {
		return
	}

	body, err := json.Marshal(trackPayload{UserID: userID, Event: event, Properties: properties})
	if err != nil {
		c.logger.Error("marshal track event", "event", event, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, trackURL, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("create track request", "event", event, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.writeKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("send track event", "event", event, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.logger.Error("track event rejected", "event", event, "status", resp.StatusCode)
	}
}
