package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client talks to the hosted payment processor's REST API. All interaction
// with the processor goes through this type; a provider error is fatal for
// the checkout attempt that triggered it.
type Client struct {
	BaseURL    string
	SecretKey  string
	Currency   string
	SessionTTL time.Duration
	HTTP       *http.Client
}

type Config struct {
	BaseURL    string
	SecretKey  string
	Currency   string
	SessionTTL time.Duration
	HTTP       *http.Client
}

func NewClient(cfg Config) *Client {
	hc := cfg.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "eur"
	}
	return &Client{
		BaseURL:    cfg.BaseURL,
		SecretKey:  cfg.SecretKey,
		Currency:   currency,
		SessionTTL: cfg.SessionTTL,
		HTTP:       hc,
	}
}

// LineItem is a single undiscounted session line.
type LineItem struct {
	Name       string `json:"name"`
	Size       string `json:"size,omitempty"`
	UnitAmount int64  `json:"unit_amount"` // minor units
	Quantity   int    `json:"quantity"`
}

// Promotion is the gateway-native discount object. When attached, the
// processor applies the discount itself and the line items stay undiscounted.
type Promotion struct {
	Code       string `json:"code"`
	PercentOff string `json:"percent_off,omitempty"`
	AmountOff  int64  `json:"amount_off,omitempty"` // minor units
}

type SessionParams struct {
	OrderID        string
	CustomerEmail  string
	LineItems      []LineItem
	ShippingAmount int64
	Promotion      *Promotion
	SuccessURL     string
	CancelURL      string
}

// Session is an open hosted-checkout session at the processor.
type Session struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

type sessionRequest struct {
	Currency       string     `json:"currency"`
	CustomerEmail  string     `json:"customer_email"`
	LineItems      []LineItem `json:"line_items"`
	ShippingAmount int64      `json:"shipping_amount"`
	Promotion      *Promotion `json:"promotion,omitempty"`
	SuccessURL     string     `json:"success_url"`
	CancelURL      string     `json:"cancel_url"`
	ExpiresAt      int64      `json:"expires_at"`
	Metadata       metadata   `json:"metadata"`
}

type metadata struct {
	OrderID string `json:"order_id"`
}

// CreateCheckoutSession opens a hosted session whose expiry matches the
// stock-reservation hold, so abandoned reservations can be reclaimed when
// the expiry event arrives.
func (c *Client) CreateCheckoutSession(ctx context.Context, p SessionParams) (*Session, error) {
	body := sessionRequest{
		Currency:       c.Currency,
		CustomerEmail:  p.CustomerEmail,
		LineItems:      p.LineItems,
		ShippingAmount: p.ShippingAmount,
		Promotion:      p.Promotion,
		SuccessURL:     p.SuccessURL,
		CancelURL:      p.CancelURL,
		ExpiresAt:      time.Now().Add(c.SessionTTL).Unix(),
		Metadata:       metadata{OrderID: p.OrderID},
	}

	var session Session
	if err := c.post(ctx, "/v1/checkout/sessions", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

type IntentParams struct {
	OrderID       string
	CustomerEmail string
	Amount        int64 // minor units, discount already applied
}

// Intent is the mobile payment flow handle.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	EphemeralKey string `json:"ephemeral_key"`
	CustomerID   string `json:"customer"`
}

type intentRequest struct {
	Currency      string   `json:"currency"`
	CustomerEmail string   `json:"customer_email"`
	Amount        int64    `json:"amount"`
	Metadata      metadata `json:"metadata"`
}

func (c *Client) CreatePaymentIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	body := intentRequest{
		Currency:      c.Currency,
		CustomerEmail: p.CustomerEmail,
		Amount:        p.Amount,
		Metadata:      metadata{OrderID: p.OrderID},
	}

	var intent Intent
	if err := c.post(ctx, "/v1/payment_intents", body, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// Refund is the processor's acknowledgement of a refund request.
type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

type refundRequest struct {
	PaymentRef string `json:"payment_ref"`
	Amount     int64  `json:"amount"`
}

// CreateRefund issues a refund against a session or intent reference.
func (c *Client) CreateRefund(ctx context.Context, paymentRef string, amount int64) (*Refund, error) {
	var refund Refund
	if err := c.post(ctx, "/v1/refunds", refundRequest{PaymentRef: paymentRef, Amount: amount}, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("payment provider request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("payment provider error (%d %s): %s",
				resp.StatusCode, apiErr.Error.Code, apiErr.Error.Message)
		}
		return fmt.Errorf("payment provider error: status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

// ToMinorUnits converts a decimal money amount to the processor's integer
// minor units (cents).
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
