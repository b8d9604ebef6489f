package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// GatewayName is the adapter tag stored on deposit ledger entries.
const GatewayName = "oxapay"

// OxapayProvider wraps the Oxapay invoice and payment-information APIs.
type OxapayProvider struct {
	merchantKey    string
	invoiceURL     string
	paymentInfoURL string
	sandbox        bool
	client         *http.Client
	logger         *slog.Logger
}

// NewOxapayProvider creates a gateway adapter with an explicit request timeout.
func NewOxapayProvider(merchantKey, invoiceURL, paymentInfoURL string, sandbox bool, timeout time.Duration, logger *slog.Logger) *OxapayProvider {
	return &OxapayProvider{
		merchantKey:    merchantKey,
		invoiceURL:     invoiceURL,
		paymentInfoURL: paymentInfoURL,
		sandbox:        sandbox,
		client:         &http.Client{Timeout: timeout},
		logger:         logger,
	}
}

// Sandbox reports whether the adapter runs against the sandbox gateway.
func (p *OxapayProvider) Sandbox() bool { return p.sandbox }

// InvoiceRequest carries everything the gateway needs to mint an invoice.
// OrderID is the platform's correlation id; the gateway echoes it on every
// status report.
type InvoiceRequest struct {
	AmountUSDT  float64
	OrderID     string
	Email       string
	Description string
	CallbackURL string
	ReturnURL   string
}

// Invoice is the created gateway invoice.
type Invoice struct {
	TrackID    string
	PaymentURL string
}

type invoiceResponse struct {
	Status int `json:"status"`
	Data   struct {
		TrackID    json.Number `json:"track_id"`
		PaymentURL string      `json:"payment_url"`
	} `json:"data"`
	Message string `json:"message"`
}

// CreateInvoice asks the gateway for a hosted payment page.
func (p *OxapayProvider) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	if p.merchantKey == "" {
		return nil, fmt.Errorf("oxapay merchant key not configured")
	}

	payload := map[string]interface{}{
		"amount":       req.AmountUSDT,
		"currency":     "USD",
		"to_currency":  "USDT",
		"callback_url": req.CallbackURL,
		"return_url":   req.ReturnURL,
		"order_id":     req.OrderID,
		"email":        req.Email,
		"description":  req.Description,
	}
	if p.sandbox {
		payload["sandbox"] = true
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode invoice payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.invoiceURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("merchant_api_key", p.merchantKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("oxapay api call: %w", err)
	}
	defer resp.Body.Close()

	var out invoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode invoice response: %w", err)
	}
	if out.Status != 200 || out.Data.PaymentURL == "" {
		if out.Message == "" {
			out.Message = fmt.Sprintf("gateway status %d", out.Status)
		}
		return nil, fmt.Errorf("invoice rejected: %s", out.Message)
	}

	return &Invoice{
		TrackID:    out.Data.TrackID.String(),
		PaymentURL: out.Data.PaymentURL,
	}, nil
}

type paymentInfoResponse struct {
	Data struct {
		Status string `json:"status"`
	} `json:"data"`
}

// PaymentInfo queries the gateway's status-lookup endpoint by tracking id and
// returns the raw status string ("paid", "waiting", "expired", ...).
func (p *OxapayProvider) PaymentInfo(ctx context.Context, trackID string) (string, error) {
	if p.merchantKey == "" {
		return "", fmt.Errorf("oxapay merchant key not configured")
	}

	url := fmt.Sprintf("%s/%s", p.paymentInfoURL, trackID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("merchant_api_key", p.merchantKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oxapay api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("payment info error (status %d): %s", resp.StatusCode, string(body))
	}

	var out paymentInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode payment info: %w", err)
	}
	return out.Data.Status, nil
}

// VerifyWebhookSignature checks the gateway's HMAC over the raw callback body.
// The signature is hex-encoded HMAC-SHA512 keyed with the merchant key.
func (p *OxapayProvider) VerifyWebhookSignature(payload []byte, sigHeader string) error {
	if p.merchantKey == "" {
		return fmt.Errorf("oxapay merchant key not configured")
	}
	if sigHeader == "" {
		return fmt.Errorf("missing webhook signature")
	}

	mac := hmac.New(sha512.New, []byte(p.merchantKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sigHeader)) {
		return fmt.Errorf("invalid webhook signature")
	}
	return nil
}
