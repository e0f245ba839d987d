package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var ErrBadSignature = errors.New("webhook signature mismatch")

// Gateway is the external payment-gateway adapter. It is always called
// outside any ledger lock.
type Gateway interface {
	CreateCheckoutLink(ctx context.Context, amount int64, buyer BuyerInfo) (*CheckoutLink, error)
	GetPaymentStatus(ctx context.Context, externalOrderID string) (*PaymentStatus, error)
	ParseWebhook(body []byte) (*WebhookEvent, error)
}

type gatewayClient struct {
	baseURL     string
	clientID    string
	apiKey      string
	checksumKey string
	http        *http.Client
}

func NewGateway(baseURL, clientID, apiKey, checksumKey string) Gateway {
	return &gatewayClient{
		baseURL:     baseURL,
		clientID:    clientID,
		apiKey:      apiKey,
		checksumKey: checksumKey,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

type checkoutRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	BuyerName   string `json:"buyerName"`
	BuyerEmail  string `json:"buyerEmail"`
	Signature   string `json:"signature"`
}

type checkoutResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		OrderCode   int64  `json:"orderCode"`
		CheckoutURL string `json:"checkoutUrl"`
	} `json:"data"`
}

func (g *gatewayClient) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(g.checksumKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *gatewayClient) CreateCheckoutLink(ctx context.Context, amount int64, buyer BuyerInfo) (*CheckoutLink, error) {
	orderCode := time.Now().UnixMilli()
	description := fmt.Sprintf("Wallet top-up %d", orderCode)

	reqBody := checkoutRequest{
		OrderCode:   orderCode,
		Amount:      amount,
		Description: description,
		BuyerName:   buyer.Name,
		BuyerEmail:  buyer.Email,
		Signature:   g.sign(fmt.Sprintf("amount=%d&description=%s&orderCode=%d", amount, description, orderCode)),
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v2/payment-requests", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", g.clientID)
	req.Header.Set("x-api-key", g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var out checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if out.Code != "00" {
		return nil, fmt.Errorf("gateway rejected checkout: %s", out.Desc)
	}

	return &CheckoutLink{
		ExternalOrderID: strconv.FormatInt(out.Data.OrderCode, 10),
		CheckoutURL:     out.Data.CheckoutURL,
	}, nil
}

type statusResponse struct {
	Code string `json:"code"`
	Data struct {
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	} `json:"data"`
}

func (g *gatewayClient) GetPaymentStatus(ctx context.Context, externalOrderID string) (*PaymentStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v2/payment-requests/"+externalOrderID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-client-id", g.clientID)
	req.Header.Set("x-api-key", g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &PaymentStatus{
		Succeeded: out.Data.Status == "PAID",
		Amount:    out.Data.Amount,
		Status:    out.Data.Status,
	}, nil
}

type webhookPayload struct {
	Code      string `json:"code"`
	Desc      string `json:"desc"`
	Success   bool   `json:"success"`
	Signature string `json:"signature"`
	Data      struct {
		OrderCode   int64  `json:"orderCode"`
		Amount      int64  `json:"amount"`
		Description string `json:"description"`
		Reference   string `json:"reference"`
	} `json:"data"`
}

// ParseWebhook verifies the payload signature and normalizes it. A bad
// signature is the one case that is reported back as a client error.
func (g *gatewayClient) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	if g.checksumKey != "" {
		signed := fmt.Sprintf("amount=%d&description=%s&orderCode=%d&reference=%s",
			p.Data.Amount, p.Data.Description, p.Data.OrderCode, p.Data.Reference)
		if !hmac.Equal([]byte(g.sign(signed)), []byte(p.Signature)) {
			return nil, ErrBadSignature
		}
	}

	return &WebhookEvent{
		ExternalOrderID: strconv.FormatInt(p.Data.OrderCode, 10),
		Amount:          p.Data.Amount,
		Succeeded:       p.Success,
		Code:            p.Code,
		Description:     p.Data.Description,
		Reference:       p.Data.Reference,
	}, nil
}
