package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedWebhookBody(t *testing.T, checksumKey string, orderCode int64, amount int64, description, reference string, success bool) []byte {
	g := &gatewayClient{checksumKey: checksumKey}
	signed := fmt.Sprintf("amount=%d&description=%s&orderCode=%d&reference=%s",
		amount, description, orderCode, reference)

	payload := map[string]interface{}{
		"code":      "00",
		"success":   success,
		"signature": g.sign(signed),
		"data": map[string]interface{}{
			"orderCode":   orderCode,
			"amount":      amount,
			"description": description,
			"reference":   reference,
		},
	}

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func TestParseWebhook_ValidSignature(t *testing.T) {
	g := NewGateway("https://gateway.test", "client", "key", "checksum-secret")

	body := signedWebhookBody(t, "checksum-secret", 1756380000000, 50000, "Wallet top-up", "REF-9", true)

	event, err := g.ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, "1756380000000", event.ExternalOrderID)
	assert.Equal(t, int64(50000), event.Amount)
	assert.True(t, event.Succeeded)
	assert.Equal(t, "REF-9", event.Reference)
}

func TestParseWebhook_BadSignature(t *testing.T) {
	g := NewGateway("https://gateway.test", "client", "key", "checksum-secret")

	// Signed with a different key.
	body := signedWebhookBody(t, "wrong-key", 1756380000000, 50000, "Wallet top-up", "", true)

	_, err := g.ParseWebhook(body)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestParseWebhook_MalformedPayload(t *testing.T) {
	g := NewGateway("https://gateway.test", "client", "key", "checksum-secret")

	_, err := g.ParseWebhook([]byte("not json"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBadSignature)
}

func TestCreateCheckoutLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/payment-requests", r.URL.Path)
		assert.Equal(t, "client-id", r.Header.Get("x-client-id"))
		assert.Equal(t, "api-key", r.Header.Get("x-api-key"))

		var req checkoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(50000), req.Amount)
		assert.NotEmpty(t, req.Signature)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": "00",
			"desc": "success",
			"data": map[string]interface{}{
				"orderCode":   req.OrderCode,
				"checkoutUrl": "https://pay.test/checkout/abc",
			},
		})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "client-id", "api-key", "checksum-secret")

	link, err := g.CreateCheckoutLink(context.Background(), 50000, BuyerInfo{Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/checkout/abc", link.CheckoutURL)
	assert.NotEmpty(t, link.ExternalOrderID)
}

func TestCreateCheckoutLink_GatewayRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": "231",
			"desc": "invalid merchant",
		})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "client-id", "api-key", "checksum-secret")

	_, err := g.CreateCheckoutLink(context.Background(), 50000, BuyerInfo{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid merchant")
}

func TestGetPaymentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/payment-requests/1756380000000", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": "00",
			"data": map[string]interface{}{
				"status": "PAID",
				"amount": 50000,
			},
		})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "client-id", "api-key", "checksum-secret")

	status, err := g.GetPaymentStatus(context.Background(), "1756380000000")
	require.NoError(t, err)
	assert.True(t, status.Succeeded)
	assert.Equal(t, int64(50000), status.Amount)
}
