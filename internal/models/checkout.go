package models

import "github.com/shopspring/decimal"

// CartItem is a client-supplied cart line. It is transient and only trusted
// after the price has been re-validated against the catalog.
type CartItem struct {
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// CheckoutRequest is the body of both checkout endpoints.
// Schema matches the storefront client contract.
type CheckoutRequest struct {
	Items              []CartItem `json:"items"`
	CustomerName       string     `json:"customerName"`
	CustomerEmail      string     `json:"customerEmail"`
	CustomerPhone      string     `json:"customerPhone,omitempty"`
	ShippingAddress    string     `json:"shippingAddress"`
	ShippingCity       string     `json:"shippingCity"`
	ShippingPostalCode string     `json:"shippingPostalCode"`
	CouponCode         string     `json:"couponCode,omitempty"`
}

// CheckoutResponse is returned once the hosted payment session is open.
type CheckoutResponse struct {
	URL         string `json:"url"`
	SessionID   string `json:"sessionId"`
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}

// PaymentIntentResponse is the mobile checkout variant.
type PaymentIntentResponse struct {
	PaymentIntentClientSecret string `json:"paymentIntentClientSecret"`
	EphemeralKey              string `json:"ephemeralKey"`
	Customer                  string `json:"customer"`
	OrderID                   string `json:"orderId"`
	OrderNumber               string `json:"orderNumber"`
}

// CancelRequest is the body of POST /api/orders/cancel.
type CancelRequest struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason,omitempty"`
}

// CancelResponse reports the cancellation outcome. Refunded is false when
// the refund call failed; the cancellation itself still went through.
type CancelResponse struct {
	Success      bool            `json:"success"`
	Refunded     bool            `json:"refunded"`
	RefundAmount decimal.Decimal `json:"refundAmount"`
	Message      string          `json:"message"`
}
