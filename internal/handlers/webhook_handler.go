package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/payment"
)

const maxWebhookBody = 1 << 20

// EventHandler processes a verified payment-processor event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev *payment.Event) error
}

// WebhookHandler receives signed payment-processor notifications. The body
// is read raw and the signature verified before anything is parsed.
type WebhookHandler struct {
	events    EventHandler
	secret    string
	tolerance time.Duration
	log       *slog.Logger
}

func NewWebhookHandler(events EventHandler, secret string, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		events:    events,
		secret:    secret,
		tolerance: 5 * time.Minute,
		log:       log,
	}
}

// Handle handles POST /api/webhooks/payment
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read body")
		return
	}

	sig := r.Header.Get(payment.SignatureHeader)
	if err := payment.VerifySignature(body, sig, h.secret, h.tolerance); err != nil {
		h.log.Warn("webhook signature rejected", "error", err, "remote", r.RemoteAddr)
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	ev, err := payment.ParseEvent(body)
	if err != nil {
		h.log.Warn("webhook payload rejected", "error", err)
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := h.events.HandleEvent(r.Context(), ev); err != nil {
		// Non-2xx makes the processor redeliver; the handlers are
		// idempotent so the retry is safe.
		h.log.Error("webhook processing failed",
			"event_id", ev.ID, "type", ev.Type, "error", err)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
