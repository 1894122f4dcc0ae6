// Package form is the visitor side of the contact pipeline: it validates the
// fields locally, sends one request and turns the answer into one outcome.
package form

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Zachkp/portfolio/internal/submission"
)

const (
	DefaultEndpoint = "http://localhost:8080/api/messages"

	msgValidationFailed = "Validation failed"
)

// ErrSendFailed covers every failure the visitor cannot fix by editing the form.
var ErrSendFailed = errors.New("failed to send message")

// RejectedError is the server's 400 answer.
type RejectedError struct {
	Field   string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Client posts submissions to the relay endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a client for endpoint. A nil httpClient gets a 15s timeout.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{endpoint: endpoint, client: httpClient}
}

// Send issues exactly one POST. It returns nil on any 2xx, *RejectedError on
// 400 and an error wrapping ErrSendFailed otherwise.
func (c *Client) Send(ctx context.Context, s submission.Submission) error {
	jsonData, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		var body struct {
			Message string `json:"message"`
			Field   string `json:"field"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Message == "" {
			body.Message = msgValidationFailed
		}
		return &RejectedError{Field: body.Field, Message: body.Message}
	default:
		return fmt.Errorf("%w: server returned status %d", ErrSendFailed, resp.StatusCode)
	}
}
