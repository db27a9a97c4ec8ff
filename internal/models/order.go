package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusReturnRequested OrderStatus = "return_requested"
	OrderStatusReturnCompleted OrderStatus = "return_completed"
	OrderStatusReturnRejected  OrderStatus = "return_rejected"
)

func (s OrderStatus) String() string {
	return string(s)
}

// validTransitions encodes the order lifecycle. Cancellation is reachable
// from paid only; shipped and delivered orders go through the returns path.
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:            {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:         {OrderStatusDelivered},
	OrderStatusDelivered:       {OrderStatusReturnRequested},
	OrderStatusReturnRequested: {OrderStatusReturnCompleted, OrderStatusReturnRejected},
}

// CanTransition reports whether an order may move between the two statuses.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is the persisted order aggregate header.
type Order struct {
	ID               string          `json:"id"`
	OrderNumber      string          `json:"orderNumber"`
	CustomerID       string          `json:"customerId,omitempty"`
	CustomerName     string          `json:"customerName"`
	CustomerEmail    string          `json:"customerEmail"`
	CustomerPhone    string          `json:"customerPhone,omitempty"`
	ShippingAddress  string          `json:"shippingAddress"`
	ShippingCity     string          `json:"shippingCity"`
	ShippingPostal   string          `json:"shippingPostalCode"`
	Status           OrderStatus     `json:"status"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ShippingCost     decimal.Decimal `json:"shippingCost"`
	DiscountAmount   decimal.Decimal `json:"discountAmount"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	CouponID         string          `json:"couponId,omitempty"`
	CouponCode       string          `json:"couponCode,omitempty"`
	PaymentSessionID string          `json:"paymentSessionId,omitempty"`
	ConfirmationSent bool            `json:"confirmationSent"`
	Items            []OrderItem     `json:"items,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// OrderItem is a single purchased line. PriceAtPurchase is snapshotted at
// order creation so historical totals survive later catalog price changes.
type OrderItem struct {
	ID              int64           `json:"id"`
	OrderID         string          `json:"orderId"`
	ProductID       string          `json:"productId"`
	VariantID       string          `json:"variantId"`
	ProductName     string          `json:"productName"`
	Size            string          `json:"size"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}
