package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
)

// Email is a single transactional message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers one email. Implementations wrap the email provider's API.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// Notifier is a fire-and-forget email queue. Enqueueing never blocks the
// request path; delivery happens on a worker goroutine with retry/backoff.
type Notifier struct {
	sender     Sender
	log        *slog.Logger
	queue      chan Email
	wg         sync.WaitGroup
	maxRetries int
	backoff    time.Duration
}

func NewNotifier(sender Sender, log *slog.Logger, queueSize int) *Notifier {
	if queueSize <= 0 {
		queueSize = 128
	}
	return &Notifier{
		sender:     sender,
		log:        log,
		queue:      make(chan Email, queueSize),
		maxRetries: 3,
		backoff:    2 * time.Second,
	}
}

// Start launches the delivery worker.
func (n *Notifier) Start() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for email := range n.queue {
			n.deliver(email)
		}
	}()
}

// Close stops accepting messages and waits for the queue to drain.
func (n *Notifier) Close() {
	close(n.queue)
	n.wg.Wait()
}

// Enqueue queues an email for delivery. A full queue drops the message with
// a log line rather than blocking the caller.
func (n *Notifier) Enqueue(email Email) {
	if email.To == "" {
		return
	}
	select {
	case n.queue <- email:
	default:
		n.log.Error("notification queue full, dropping email",
			"to", email.To, "subject", email.Subject)
	}
}

func (n *Notifier) deliver(email Email) {
	var err error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(n.backoff * time.Duration(attempt))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = n.sender.Send(ctx, email)
		cancel()
		if err == nil {
			n.log.Info("email sent", "to", email.To, "subject", email.Subject)
			return
		}
		n.log.Warn("email send failed",
			"to", email.To, "attempt", attempt+1, "error", err)
	}
	n.log.Error("email delivery abandoned",
		"to", email.To, "subject", email.Subject, "error", err)
}

// OrderConfirmed queues the customer confirmation email.
func (n *Notifier) OrderConfirmed(o *models.Order) {
	n.Enqueue(Email{
		To:      o.CustomerEmail,
		Subject: fmt.Sprintf("Confirmación de tu pedido %s", o.OrderNumber),
		HTML:    confirmationBody(o),
	})
}

// OrderCancelled queues the cancellation notice.
func (n *Notifier) OrderCancelled(o *models.Order) {
	n.Enqueue(Email{
		To:      o.CustomerEmail,
		Subject: fmt.Sprintf("Tu pedido %s ha sido cancelado", o.OrderNumber),
		HTML: fmt.Sprintf(
			"<p>Hola %s,</p><p>Tu pedido <strong>%s</strong> ha sido cancelado. "+
				"Si procede, el reembolso de %s € se procesará en los próximos días.</p>",
			o.CustomerName, o.OrderNumber, o.TotalAmount.StringFixed(2)),
	})
}

// AdminNewOrder queues the back-office notice for a freshly paid order.
func (n *Notifier) AdminNewOrder(adminEmail string, o *models.Order) {
	n.Enqueue(Email{
		To:      adminEmail,
		Subject: fmt.Sprintf("Nuevo pedido pagado: %s", o.OrderNumber),
		HTML: fmt.Sprintf(
			"<p>Pedido <strong>%s</strong> de %s (%s) por %s €.</p>",
			o.OrderNumber, o.CustomerName, o.CustomerEmail, o.TotalAmount.StringFixed(2)),
	})
}

func confirmationBody(o *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hola %s,</p>", o.CustomerName)
	fmt.Fprintf(&b, "<p>Hemos recibido el pago de tu pedido <strong>%s</strong>.</p><ul>", o.OrderNumber)
	for _, item := range o.Items {
		fmt.Fprintf(&b, "<li>%s (Talla %s) × %d — %s €</li>",
			item.ProductName, item.Size, item.Quantity, item.PriceAtPurchase.StringFixed(2))
	}
	fmt.Fprintf(&b, "</ul><p>Envío: %s €", o.ShippingCost.StringFixed(2))
	if o.DiscountAmount.IsPositive() {
		fmt.Fprintf(&b, " · Descuento: -%s €", o.DiscountAmount.StringFixed(2))
	}
	fmt.Fprintf(&b, "</p><p>Total: <strong>%s €</strong></p>", o.TotalAmount.StringFixed(2))
	return b.String()
}
