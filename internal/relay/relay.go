// Package relay forwards validated contact submissions to the external
// automation webhook.
package relay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Zachkp/portfolio/internal/submission"
)

// Source tags every forwarded message with its origin.
const Source = "portfolio-contact-form"

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

const (
	DefaultTimeout = 10 * time.Second

	// upstream error bodies are only logged, so a prefix is enough
	maxErrorBody = 4 << 10
)

// Config holds the webhook location and its basic-auth credentials.
type Config struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

// Payload is the body sent to the webhook.
type Payload struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// Error is returned when the webhook answers with a non-2xx status.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.StatusCode)
}

// Client posts submissions to the webhook. One attempt per call, no retries.
type Client struct {
	url        string
	authHeader string
	client     *http.Client
	now        func() time.Time
}

// NewClient creates a webhook client. A zero timeout falls back to DefaultTimeout.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:        cfg.URL,
		authHeader: BasicAuth(cfg.Username, cfg.Password),
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// BasicAuth builds the Authorization header value for user:password.
func BasicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// Forward sends s to the webhook and returns *Error on a non-2xx answer.
func (c *Client) Forward(ctx context.Context, s submission.Submission) error {
	payload := Payload{
		Name:      s.Name,
		Email:     s.Email,
		Message:   s.Message,
		Source:    Source,
		Timestamp: c.now().UTC().Format(TimestampLayout),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
