package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/coupon"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/payment"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/repository"
)

// PaymentGateway is the checkout's view of the payment processor.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, p payment.SessionParams) (*payment.Session, error)
	CreatePaymentIntent(ctx context.Context, p payment.IntentParams) (*payment.Intent, error)
	CreateRefund(ctx context.Context, paymentRef string, amount int64) (*payment.Refund, error)
}

// CouponChecker validates a coupon code against a cart total and customer.
type CouponChecker interface {
	Validate(ctx context.Context, code string, cartTotal decimal.Decimal, customerEmail string) (*coupon.Result, error)
}

// CheckoutConfig carries the pricing knobs and return URLs.
type CheckoutConfig struct {
	ShippingFlatRate      decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	SuccessURL            string
	CancelURL             string
}

// CheckoutService runs the order-orchestration workflow: validate, reserve
// stock, create the order, open the payment session. Any failure unwinds the
// completed steps in reverse order.
type CheckoutService struct {
	stock   repository.StockRepository
	orders  repository.OrderRepository
	coupons CouponChecker
	gateway PaymentGateway
	cfg     CheckoutConfig
	log     *slog.Logger
}

func NewCheckoutService(
	stock repository.StockRepository,
	orders repository.OrderRepository,
	coupons CouponChecker,
	gateway PaymentGateway,
	cfg CheckoutConfig,
	log *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		stock:   stock,
		orders:  orders,
		coupons: coupons,
		gateway: gateway,
		cfg:     cfg,
		log:     log,
	}
}

// checkoutLine is a cart line after server-side re-validation; price comes
// from the catalog, never from the client.
type checkoutLine struct {
	variant  *models.StockVariant
	quantity int
}

// checkoutState is everything the two flows share once the order exists.
type checkoutState struct {
	lines    []checkoutLine
	order    *models.Order
	coupon   *coupon.Result
	subtotal decimal.Decimal
	shipping decimal.Decimal
	discount decimal.Decimal
	total    decimal.Decimal
}

// CreateSession is the hosted-checkout flow: the response carries the
// redirect target of the processor's payment page.
func (s *CheckoutService) CreateSession(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutResponse, error) {
	state, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	order := state.order

	params := payment.SessionParams{
		OrderID:        order.ID,
		CustomerEmail:  order.CustomerEmail,
		LineItems:      sessionLineItems(state.lines),
		ShippingAmount: payment.ToMinorUnits(state.shipping),
		SuccessURL:     s.cfg.SuccessURL,
		CancelURL:      s.cfg.CancelURL,
	}
	// Discount exclusivity: the session carries undiscounted line items and
	// the native promotion object; the processor applies the discount, the
	// order row keeps the figure for display.
	if state.coupon != nil && state.coupon.Valid {
		params.Promotion = promotionFor(state.coupon)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.log.Error("payment session creation failed",
			"order_id", order.ID, "error", err)
		s.rollbackReserved(ctx, state.lines, len(state.lines))
		if delErr := s.orders.DeleteUnpaid(ctx, order.ID); delErr != nil {
			s.log.Error("compensating order delete failed",
				"order_id", order.ID, "error", delErr)
		}
		return nil, ErrPaymentSessionFailed
	}

	if err := s.orders.LinkPaymentSession(ctx, order.ID, session.ID); err != nil {
		// The webhook can still find the order through its metadata.
		s.log.Error("linking payment session failed",
			"order_id", order.ID, "session_id", session.ID, "error", err)
	}

	s.log.Info("checkout session created",
		"order_id", order.ID, "order_number", order.OrderNumber,
		"session_id", session.ID, "total", state.total.StringFixed(2))

	return &models.CheckoutResponse{
		URL:         session.URL,
		SessionID:   session.ID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	}, nil
}

// CreatePaymentIntent is the mobile flow. Intents carry a final amount, so
// the discount is subtracted server-side here and no promotion is attached.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, req *models.CheckoutRequest) (*models.PaymentIntentResponse, error) {
	state, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	order := state.order

	intent, err := s.gateway.CreatePaymentIntent(ctx, payment.IntentParams{
		OrderID:       order.ID,
		CustomerEmail: order.CustomerEmail,
		Amount:        payment.ToMinorUnits(state.total),
	})
	if err != nil {
		s.log.Error("payment intent creation failed",
			"order_id", order.ID, "error", err)
		s.rollbackReserved(ctx, state.lines, len(state.lines))
		if delErr := s.orders.DeleteUnpaid(ctx, order.ID); delErr != nil {
			s.log.Error("compensating order delete failed",
				"order_id", order.ID, "error", delErr)
		}
		return nil, ErrPaymentSessionFailed
	}

	if err := s.orders.LinkPaymentSession(ctx, order.ID, intent.ID); err != nil {
		s.log.Error("linking payment intent failed",
			"order_id", order.ID, "intent_id", intent.ID, "error", err)
	}

	s.log.Info("payment intent created",
		"order_id", order.ID, "order_number", order.OrderNumber,
		"intent_id", intent.ID, "total", state.total.StringFixed(2))

	return &models.PaymentIntentResponse{
		PaymentIntentClientSecret: intent.ClientSecret,
		EphemeralKey:              intent.EphemeralKey,
		Customer:                  intent.CustomerID,
		OrderID:                   order.ID,
		OrderNumber:               order.OrderNumber,
	}, nil
}

// prepare runs the shared front of both flows: field validation, cart
// re-validation, coupon check, stock reservation and order creation. On
// return the order exists with status pending and all lines reserved; any
// later failure must call rollbackReserved and DeleteUnpaid.
func (s *CheckoutService) prepare(ctx context.Context, req *models.CheckoutRequest) (*checkoutState, error) {
	if verr := validateCheckoutRequest(req); verr != nil {
		return nil, verr
	}

	lines := make([]checkoutLine, 0, len(req.Items))
	subtotal := decimal.Zero
	for _, item := range req.Items {
		variant, err := s.stock.GetVariant(ctx, item.VariantID)
		if err != nil {
			if err == repository.ErrVariantNotFound {
				return nil, &ValidationError{Message: fmt.Sprintf(
					"El artículo %s (Talla %s) ya no está disponible", item.Name, item.Size)}
			}
			return nil, fmt.Errorf("validate cart line: %w", err)
		}
		if !variant.Price.Equal(item.Price) {
			return nil, &ValidationError{Message: fmt.Sprintf(
				"El precio de %s ha cambiado, actualiza el carrito", variant.ProductName)}
		}
		lines = append(lines, checkoutLine{variant: variant, quantity: item.Quantity})
		subtotal = subtotal.Add(variant.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	// Coupon is checked before any reservation so an invalid code fails
	// without compensations.
	var coupRes *coupon.Result
	if req.CouponCode != "" {
		res, err := s.coupons.Validate(ctx, req.CouponCode, subtotal, req.CustomerEmail)
		if err != nil {
			return nil, fmt.Errorf("validate coupon: %w", err)
		}
		if !res.Valid {
			return nil, &ValidationError{Message: res.Message}
		}
		coupRes = res
	}

	shipping := s.cfg.ShippingFlatRate
	if subtotal.GreaterThanOrEqual(s.cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	discount := decimal.Zero
	if coupRes != nil {
		discount = coupRes.DiscountAmount
	}
	total := subtotal.Add(shipping).Sub(discount)

	for i, line := range lines {
		ok, err := s.stock.Reserve(ctx, line.variant.ID, line.quantity)
		if err != nil {
			s.rollbackReserved(ctx, lines, i)
			return nil, fmt.Errorf("reserve stock: %w", err)
		}
		if !ok {
			s.rollbackReserved(ctx, lines, i)
			return nil, &InsufficientStockError{
				ProductName: line.variant.ProductName,
				Size:        line.variant.Size,
			}
		}
	}

	order := &models.Order{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		ShippingCity:    req.ShippingCity,
		ShippingPostal:  req.ShippingPostalCode,
		Subtotal:        subtotal,
		ShippingCost:    shipping,
		DiscountAmount:  discount,
		TotalAmount:     total,
		Items:           orderItems(lines),
	}
	if coupRes != nil {
		order.CouponID = coupRes.CouponID
		order.CouponCode = coupRes.Coupon.Code
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.log.Error("order creation failed", "error", err)
		s.rollbackReserved(ctx, lines, len(lines))
		return nil, ErrOrderCreateFailed
	}

	return &checkoutState{
		lines:    lines,
		order:    order,
		coupon:   coupRes,
		subtotal: subtotal,
		shipping: shipping,
		discount: discount,
		total:    total,
	}, nil
}

// rollbackReserved restores the first n reserved lines, newest first.
// Failures are logged, never surfaced: the compensation is best-effort.
func (s *CheckoutService) rollbackReserved(ctx context.Context, lines []checkoutLine, n int) {
	for i := n - 1; i >= 0; i-- {
		line := lines[i]
		if err := s.stock.Restore(ctx, line.variant.ID, line.quantity); err != nil {
			s.log.Error("stock restore failed",
				"variant_id", line.variant.ID, "quantity", line.quantity, "error", err)
		}
	}
}

func orderItems(lines []checkoutLine) []models.OrderItem {
	items := make([]models.OrderItem, len(lines))
	for i, line := range lines {
		items[i] = models.OrderItem{
			ProductID:       line.variant.ProductID,
			VariantID:       line.variant.ID,
			ProductName:     line.variant.ProductName,
			Size:            line.variant.Size,
			Quantity:        line.quantity,
			PriceAtPurchase: line.variant.Price,
		}
	}
	return items
}

func sessionLineItems(lines []checkoutLine) []payment.LineItem {
	items := make([]payment.LineItem, len(lines))
	for i, line := range lines {
		items[i] = payment.LineItem{
			Name:       line.variant.ProductName,
			Size:       line.variant.Size,
			UnitAmount: payment.ToMinorUnits(line.variant.Price),
			Quantity:   line.quantity,
		}
	}
	return items
}

func promotionFor(res *coupon.Result) *payment.Promotion {
	c := res.Coupon
	if c.DiscountType == models.DiscountPercentage && !c.MaxDiscountAmount.IsPositive() {
		return &payment.Promotion{
			Code:       c.Code,
			PercentOff: c.DiscountValue.String(),
		}
	}
	// Fixed coupons and capped percentages travel as an absolute amount-off.
	return &payment.Promotion{
		Code:      c.Code,
		AmountOff: payment.ToMinorUnits(res.DiscountAmount),
	}
}
