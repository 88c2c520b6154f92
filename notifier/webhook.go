package notifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRateLimited marks an HTTP 429 from the webhook endpoint. The dispatcher
// treats it as retryable within the same send attempt.
var ErrRateLimited = errors.New("webhook rate limited")

// Message is the outbound webhook payload.
type Message struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

type WebhookSender interface {
	SendTimeout(msg Message, timeout time.Duration) error
}

type WebhookClient struct {
	url string
}

func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{url: url}
}

func (c *WebhookClient) SendTimeout(msg Message, timeout time.Duration) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(c.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ErrRateLimited, resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook returned %s: %s", resp.Status, string(snippet))
	}
	return nil
}
