package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/payment"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/repository"
)

// Notifier is the reconciliation side's view of the email queue.
type Notifier interface {
	OrderConfirmed(o *models.Order)
	OrderCancelled(o *models.Order)
	AdminNewOrder(adminEmail string, o *models.Order)
}

// EventDeduper short-circuits redelivered webhook events. A nil deduper or a
// deduper error falls through to the database guards, which stay
// authoritative.
type EventDeduper interface {
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Identity is the authenticated caller of an order endpoint.
type Identity struct {
	CustomerID string
	Email      string
}

// ReconcileService finalizes or unwinds orders after the orchestrator has
// handed off to the payment gateway: customer cancellation, webhook-driven
// confirmation and expiry reclaim.
type ReconcileService struct {
	orders     repository.OrderRepository
	stock      repository.StockRepository
	gateway    PaymentGateway
	dedup      EventDeduper
	notifier   Notifier
	adminEmail string
	log        *slog.Logger
}

func NewReconcileService(
	orders repository.OrderRepository,
	stock repository.StockRepository,
	gateway PaymentGateway,
	dedup EventDeduper,
	notifier Notifier,
	adminEmail string,
	log *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		orders:     orders,
		stock:      stock,
		gateway:    gateway,
		dedup:      dedup,
		notifier:   notifier,
		adminEmail: adminEmail,
		log:        log,
	}
}

// Cancel is the customer-initiated cancellation. It is permitted only on
// paid orders; the refund is best-effort and its failure never blocks the
// cancellation itself.
func (s *ReconcileService) Cancel(ctx context.Context, ident Identity, orderID, reason string) (*models.CancelResponse, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if !owns(ident, order) {
		return nil, ErrNotOrderOwner
	}

	if order.Status != models.OrderStatusPaid {
		return nil, &StateConflictError{
			Status:  order.Status,
			Message: cancelConflictMessage(order.Status),
		}
	}

	// The conditional transition doubles as the lock: only the caller that
	// wins it refunds and restores stock, so a concurrent cancel can neither
	// double-refund nor double-restore.
	moved, err := s.orders.UpdateStatus(ctx, order.ID, models.OrderStatusPaid, models.OrderStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, &StateConflictError{
			Status:  order.Status,
			Message: "El pedido ya no se puede cancelar",
		}
	}

	refunded := false
	if order.PaymentSessionID != "" {
		amount := payment.ToMinorUnits(order.TotalAmount)
		if _, err := s.gateway.CreateRefund(ctx, order.PaymentSessionID, amount); err != nil {
			// Availability over consistency: the order still cancels,
			// the discrepancy goes to manual follow-up.
			s.log.Error("refund failed during cancellation",
				"order_id", order.ID, "payment_ref", order.PaymentSessionID, "error", err)
		} else {
			refunded = true
		}
	}

	for _, item := range order.Items {
		if err := s.stock.Restore(ctx, item.VariantID, item.Quantity); err != nil {
			s.log.Error("stock restore failed during cancellation",
				"order_id", order.ID, "variant_id", item.VariantID, "error", err)
		}
	}

	s.log.Info("order cancelled",
		"order_id", order.ID, "order_number", order.OrderNumber,
		"refunded", refunded, "reason", reason)
	s.notifier.OrderCancelled(order)

	msg := "Pedido cancelado correctamente"
	if !refunded {
		msg = "Pedido cancelado; el reembolso requiere revisión manual"
	}
	return &models.CancelResponse{
		Success:      true,
		Refunded:     refunded,
		RefundAmount: order.TotalAmount,
		Message:      msg,
	}, nil
}

// HandleEvent processes a verified webhook event. Processors redeliver, so
// every branch is idempotent.
func (s *ReconcileService) HandleEvent(ctx context.Context, ev *payment.Event) error {
	marked := false
	if s.dedup != nil {
		first, err := s.dedup.FirstDelivery(ctx, ev.ID)
		if err != nil {
			s.log.Warn("event dedup unavailable, relying on database guards",
				"event_id", ev.ID, "error", err)
		} else if !first {
			s.log.Info("duplicate webhook event ignored", "event_id", ev.ID, "type", ev.Type)
			return nil
		} else {
			marked = true
		}
	}

	var err error
	switch ev.Type {
	case payment.EventSessionCompleted, payment.EventIntentSucceeded:
		err = s.confirmPayment(ctx, ev)
	case payment.EventSessionExpired:
		err = s.reclaimExpired(ctx, ev)
	default:
		s.log.Debug("unhandled webhook event type", "type", ev.Type)
	}

	if err != nil && marked {
		// Release the seen-mark so the processor's redelivery gets a
		// fresh attempt instead of being dropped as a duplicate. The
		// database guards keep that retry idempotent.
		if ferr := s.dedup.Forget(ctx, ev.ID); ferr != nil {
			s.log.Warn("could not release event mark after failure",
				"event_id", ev.ID, "error", ferr)
		}
	}
	return err
}

func (s *ReconcileService) confirmPayment(ctx context.Context, ev *payment.Event) error {
	order, err := s.lookupOrder(ctx, ev)
	if err != nil {
		return err
	}
	if order == nil {
		s.log.Warn("webhook for unknown order",
			"event_id", ev.ID, "session_id", ev.SessionID(), "order_id", ev.OrderID())
		return nil
	}

	moved, err := s.orders.UpdateStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusPaid)
	if err != nil {
		return err
	}
	if !moved {
		// Replayed confirmation; everything below already happened.
		s.log.Info("payment confirmation replayed", "order_id", order.ID, "event_id", ev.ID)
		return nil
	}

	if order.CouponID != "" {
		recorded, err := s.orders.RecordCouponUsage(ctx, order.CouponID, order.ID, order.CustomerEmail)
		if err != nil {
			s.log.Error("recording coupon usage failed",
				"order_id", order.ID, "coupon_id", order.CouponID, "error", err)
		} else if recorded {
			s.log.Info("coupon usage recorded",
				"order_id", order.ID, "coupon_code", order.CouponCode)
		}
	}

	sent, err := s.orders.MarkConfirmationSent(ctx, order.ID)
	if err != nil {
		s.log.Error("marking confirmation sent failed", "order_id", order.ID, "error", err)
	} else if sent {
		s.notifier.OrderConfirmed(order)
		if s.adminEmail != "" {
			s.notifier.AdminNewOrder(s.adminEmail, order)
		}
	}

	s.log.Info("order marked paid",
		"order_id", order.ID, "order_number", order.OrderNumber, "event_id", ev.ID)
	return nil
}

// reclaimExpired returns the reserved stock of an abandoned session. The
// session expiry equals the stock hold, so by the time this event arrives
// the reservation is safe to release.
func (s *ReconcileService) reclaimExpired(ctx context.Context, ev *payment.Event) error {
	order, err := s.lookupOrder(ctx, ev)
	if err != nil {
		return err
	}
	if order == nil || order.Status != models.OrderStatusPending {
		return nil
	}

	moved, err := s.orders.UpdateStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusCancelled)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}

	for _, item := range order.Items {
		if err := s.stock.Restore(ctx, item.VariantID, item.Quantity); err != nil {
			s.log.Error("stock restore failed on session expiry",
				"order_id", order.ID, "variant_id", item.VariantID, "error", err)
		}
	}

	s.log.Info("expired session reclaimed",
		"order_id", order.ID, "order_number", order.OrderNumber, "event_id", ev.ID)
	return nil
}

// SendConfirmation resends the confirmation email. It is an idempotent
// no-op when the email already went out; the bool reports whether this call
// actually sent it.
func (s *ReconcileService) SendConfirmation(ctx context.Context, ident Identity, orderID string) (bool, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return false, ErrOrderNotFound
		}
		return false, err
	}
	if !owns(ident, order) {
		return false, ErrNotOrderOwner
	}
	if order.Status == models.OrderStatusPending || order.Status == models.OrderStatusCancelled {
		return false, &StateConflictError{
			Status:  order.Status,
			Message: "El pedido aún no está pagado",
		}
	}

	sent, err := s.orders.MarkConfirmationSent(ctx, order.ID)
	if err != nil {
		return false, err
	}
	if sent {
		s.notifier.OrderConfirmed(order)
	}
	return sent, nil
}

func (s *ReconcileService) lookupOrder(ctx context.Context, ev *payment.Event) (*models.Order, error) {
	if id := ev.OrderID(); id != "" {
		order, err := s.orders.GetByID(ctx, id)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			return nil, err
		}
	}
	if sid := ev.SessionID(); sid != "" {
		order, err := s.orders.GetByPaymentSession(ctx, sid)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// owns is the two-tier ownership check: customer id when both sides have
// one, otherwise a case-insensitive email match. The email fallback is
// intentionally weaker than ideal and kept for parity with the storefront.
func owns(ident Identity, order *models.Order) bool {
	if ident.CustomerID != "" && order.CustomerID != "" {
		return ident.CustomerID == order.CustomerID
	}
	return ident.Email != "" && strings.EqualFold(ident.Email, order.CustomerEmail)
}

func cancelConflictMessage(status models.OrderStatus) string {
	switch status {
	case models.OrderStatusPending:
		return "El pedido aún no está pagado"
	case models.OrderStatusShipped, models.OrderStatusDelivered:
		return "El pedido ya ha sido enviado; solicita una devolución"
	case models.OrderStatusCancelled:
		return "El pedido ya está cancelado"
	default:
		return "El pedido no se puede cancelar en su estado actual"
	}
}
