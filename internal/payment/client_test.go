package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCreateCheckoutSession(t *testing.T) {
	var gotAuth string
	var gotBody sessionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("path = %s, want /v1/checkout/sessions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Session{
			ID:  "cs_live_1",
			URL: "https://pay.example.com/cs_live_1",
		})
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:    srv.URL,
		SecretKey:  "sk_test_abc",
		SessionTTL: 30 * time.Minute,
	})

	before := time.Now()
	session, err := client.CreateCheckoutSession(context.Background(), SessionParams{
		OrderID:       "ord-1",
		CustomerEmail: "ana@example.com",
		LineItems: []LineItem{
			{Name: "Camiseta básica", Size: "M", UnitAmount: 1999, Quantity: 2},
		},
		ShippingAmount: 499,
		Promotion:      &Promotion{Code: "VERANO25", PercentOff: "25"},
		SuccessURL:     "https://tienda.example.com/pedido/confirmado",
		CancelURL:      "https://tienda.example.com/carrito",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	if session.ID != "cs_live_1" || session.URL == "" {
		t.Errorf("session = %+v", session)
	}

	if gotAuth != "Bearer sk_test_abc" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Currency != "eur" {
		t.Errorf("currency = %q, want eur default", gotBody.Currency)
	}
	if gotBody.Metadata.OrderID != "ord-1" {
		t.Errorf("metadata order_id = %q, want ord-1", gotBody.Metadata.OrderID)
	}
	if gotBody.Promotion == nil || gotBody.Promotion.PercentOff != "25" {
		t.Errorf("promotion = %+v", gotBody.Promotion)
	}

	// The session expiry tracks the configured TTL.
	wantExpiry := before.Add(30 * time.Minute).Unix()
	if gotBody.ExpiresAt < wantExpiry-5 || gotBody.ExpiresAt > wantExpiry+5 {
		t.Errorf("expires_at = %d, want about %d", gotBody.ExpiresAt, wantExpiry)
	}
}

func TestCreatePaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents" {
			t.Errorf("path = %s, want /v1/payment_intents", r.URL.Path)
		}
		var body intentRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Amount != 1998 {
			t.Errorf("amount = %d, want 1998", body.Amount)
		}
		json.NewEncoder(w).Encode(Intent{
			ID:           "pi_live_1",
			ClientSecret: "pi_live_1_secret",
			EphemeralKey: "ek_live",
			CustomerID:   "cus_live",
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk"})
	intent, err := client.CreatePaymentIntent(context.Background(), IntentParams{
		OrderID: "ord-1", CustomerEmail: "ana@example.com", Amount: 1998,
	})
	if err != nil {
		t.Fatalf("CreatePaymentIntent() error = %v", err)
	}
	if intent.ClientSecret != "pi_live_1_secret" || intent.EphemeralKey != "ek_live" {
		t.Errorf("intent = %+v", intent)
	}
}

func TestCreateRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body refundRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.PaymentRef != "cs_live_1" || body.Amount != 8997 {
			t.Errorf("refund request = %+v", body)
		}
		json.NewEncoder(w).Encode(Refund{ID: "re_1", Status: "succeeded", Amount: body.Amount})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk"})
	refund, err := client.CreateRefund(context.Background(), "cs_live_1", 8997)
	if err != nil {
		t.Fatalf("CreateRefund() error = %v", err)
	}
	if refund.Status != "succeeded" {
		t.Errorf("refund = %+v", refund)
	}
}

func TestProviderErrorsSurfaceCodeAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"code":"card_declined","message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk"})
	_, err := client.CreateRefund(context.Background(), "cs_live_1", 100)
	if err == nil {
		t.Fatal("expected provider error")
	}
	if !strings.Contains(err.Error(), "card_declined") || !strings.Contains(err.Error(), "declined") {
		t.Errorf("error = %v, want code and message surfaced", err)
	}
}

func TestProviderErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk"})
	_, err := client.CreateRefund(context.Background(), "cs_live_1", 100)
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Errorf("error = %v, want bare status error", err)
	}
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"19.99", 1999},
		{"0.00", 0},
		{"89.97", 8997},
		{"4.99", 499},
		{"10", 1000},
		{"0.005", 1}, // half-up rounding
	}
	for _, tt := range tests {
		if got := ToMinorUnits(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("ToMinorUnits(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
