package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

const sendURL = "https://api.sendgrid.com/v3/mail/send"

type Client struct {
	apiKey     string
	fromEmail  string
	fromName   string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(apiKey, fromEmail, fromName string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		fromName:   fromName,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type personalization struct {
	To []address `json:"to"`
}

type sendgridMail struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

// SendLoginToken mails a login code. An unconfigured client logs the code
// instead of sending, so local development works without an API key.
func (c *Client) SendLoginToken(ctx context.Context, toEmail, token string) error {
	if !c.Configured() {
		c.logger.Info("email client not configured, logging login token", "email", toEmail, "token", token)
		return nil
	}

	textBody := fmt.Sprintf("The login token for the API is: %s", token)
	htmlBody := fmt.Sprintf(
		`<div style="font-family: sans-serif;"><h1>Ponti Studios</h1><p>The login token for the API is: %s</p></div>`,
		token,
	)

	payload := sendgridMail{
		Personalizations: []personalization{{To: []address{{Email: toEmail}}}},
		From:             address{Email: c.fromEmail, Name: c.fromName},
		Subject:          "Your Ponti Studios login token",
		Content: []content{
			{Type: "text/plain", Value: textBody},
			{Type: "text/html", Value: htmlBody},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid API error: status %d", resp.StatusCode)
	}

	c.logger.Info("login token sent", "email", toEmail)
	return nil
}
