// Package payment wraps the payment provider's checkout-session API.
// The provider speaks JSON over HTTPS; this client only creates
// sessions and resolves the redirect URL.  Payment confirmation comes
// back asynchronously through the provider's webhook.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrMissingRedirect is returned when the provider accepted the session
// but its response carried neither a redirect URL nor a session id.
// Callers surface this as a distinct "try again" message instead of a
// silent no-op.
var ErrMissingRedirect = errors.New("payment provider returned no redirect url")

// Client calls the payment provider.  A zero timeout on the HTTP
// client is replaced with a 15 second default.
type Client struct {
	BaseURL        string // provider API base, e.g. https://pay.example.com
	APIKey         string // bearer token for the provider API
	LegacyRedirect string // template base for session_id redirects, e.g. https://pay.example.com/session
	HTTPClient     *http.Client
}

// NewClient returns a Client for the given provider endpoint.
func NewClient(baseURL, apiKey, legacyRedirect string) *Client {
	return &Client{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		APIKey:         apiKey,
		LegacyRedirect: strings.TrimRight(legacyRedirect, "/"),
		HTTPClient:     &http.Client{Timeout: 15 * time.Second},
	}
}

// SessionRequest is the payload sent to the provider's create-session
// call.  Buyer contact fields travel with the session so the webhook
// can hand them back when payment completes; nothing is written
// locally until then.
type SessionRequest struct {
	EventID       uint64 `json:"event_id"`
	Kind          string `json:"kind"`
	Title         string `json:"title"`
	Date          string `json:"date"`
	Location      string `json:"location"`
	RegularQty    uint32 `json:"regular_qty"`
	DiscountQty   uint32 `json:"discount_qty"`
	DiscountCode  string `json:"discount_code,omitempty"`
	AmountCents   uint32 `json:"amount_cents"`
	HoldReference string `json:"hold_reference"`
	BuyerName     string `json:"buyer_name"`
	BuyerEmail    string `json:"buyer_email"`
	BuyerPhone    string `json:"buyer_phone"`
	Address       string `json:"address,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	City          string `json:"city,omitempty"`
}

// sessionResponse mirrors the provider's reply.  Newer API versions
// return url; the legacy variant returns only session_id.
type sessionResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

// CreateSession creates a checkout session and returns the URL the
// buyer must be redirected to.  A response without a URL but with a
// session id resolves through the legacy redirect base; a response
// with neither is ErrMissingRedirect.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if out.Error != "" {
			return "", fmt.Errorf("create session: provider status %d: %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("create session: provider status %d", resp.StatusCode)
	}
	if out.URL != "" {
		return out.URL, nil
	}
	if out.SessionID != "" && c.LegacyRedirect != "" {
		return c.LegacyRedirect + "/" + out.SessionID, nil
	}
	return "", ErrMissingRedirect
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}
