// Package transport is the outbound side of the messaging collaborator:
// sending a text to an identity. Sends are fire-and-forget from the
// pipeline's perspective; failures are reported to the caller, which turns
// them into a "try again" reply rather than a crash.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sender delivers one outbound text message.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// HTTPSender posts messages to the transport provider's REST API.
type HTTPSender struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewHTTPSender constructs a sender with a bounded-timeout HTTP client.
func NewHTTPSender(baseURL, token string, timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// outboundMessage is the provider's send payload.
type outboundMessage struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Send posts one text message. Non-2xx responses are returned as errors with
// a bounded body snippet for the logs.
func (s *HTTPSender) Send(ctx context.Context, to, body string) error {
	msg := outboundMessage{To: to, Type: "text"}
	msg.Text.Body = body

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("transport: send returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
