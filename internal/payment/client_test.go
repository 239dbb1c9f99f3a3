package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() SessionRequest {
	return SessionRequest{
		EventID:       7,
		Kind:          "SHOW",
		Title:         "Spring Revue",
		RegularQty:    2,
		DiscountQty:   1,
		AmountCents:   49500,
		HoldReference: "ref-abc",
		BuyerName:     "Anna Larsson",
		BuyerEmail:    "anna@example.com",
		BuyerPhone:    "0701234567",
	}
}

func TestCreateSessionReturnsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req SessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ref-abc", req.HoldReference)
		assert.Equal(t, uint32(49500), req.AmountCents)

		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example.com/s/123"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "")
	url, err := c.CreateSession(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/s/123", url)
}

func TestCreateSessionLegacySessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"session_id": "sess_42"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "https://pay.example.com/session/")
	url, err := c.CreateSession(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/session/sess_42", url)
}

func TestCreateSessionMissingRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	// No URL in the response and no legacy base configured.
	c := NewClient(srv.URL, "", "")
	_, err := c.CreateSession(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrMissingRedirect)

	// A bare session_id without a legacy base is still unusable.
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"session_id": "sess_42"})
	}))
	defer srv2.Close()
	c = NewClient(srv2.URL, "", "")
	_, err = c.CreateSession(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrMissingRedirect)
}

func TestCreateSessionProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "card declined"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	_, err := c.CreateSession(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "card declined")
	assert.NotErrorIs(t, err, ErrMissingRedirect)
}
