// Checkout-session client. Creating a session causes no local state change;
// the plan only activates when the asynchronous webhook later confirms the
// completed checkout.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CheckoutCreator is the narrow interface the chat service depends on.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, identity, cycle string) (url string, err error)
}

// Client calls the billing processor's hosted-checkout API.
type Client struct {
	BaseURL    string
	APIKey     string
	SuccessURL string
	HTTPClient *http.Client
}

// NewClient constructs a checkout client with a bounded-timeout HTTP client.
func NewClient(baseURL, apiKey, successURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		SuccessURL: successURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// checkoutRequest is the creation payload.
type checkoutRequest struct {
	Identity   string `json:"identity"`
	Cycle      string `json:"cycle"`
	SuccessURL string `json:"success_url,omitempty"`
}

// checkoutResponse carries the opaque hosted-payment URL back.
type checkoutResponse struct {
	URL string `json:"url"`
}

// CreateCheckoutSession asks the processor for a hosted-payment URL for the
// given identity and billing cycle.
func (c *Client) CreateCheckoutSession(ctx context.Context, identity, cycle string) (string, error) {
	body, err := json.Marshal(checkoutRequest{
		Identity:   identity,
		Cycle:      cycle,
		SuccessURL: c.SuccessURL,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("billing: checkout create returned %d: %s", resp.StatusCode, snippet)
	}

	var out checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("billing: checkout response missing url")
	}
	return out.URL, nil
}
