package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/service"
)

// CheckoutOrchestrator is the handler's view of the checkout workflow.
type CheckoutOrchestrator interface {
	CreateSession(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutResponse, error)
	CreatePaymentIntent(ctx context.Context, req *models.CheckoutRequest) (*models.PaymentIntentResponse, error)
}

// CheckoutHandler handles the checkout HTTP endpoints
type CheckoutHandler struct {
	checkout CheckoutOrchestrator
	log      *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout CheckoutOrchestrator, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		log:      log,
	}
}

// CreateSession handles POST /api/checkout/create-session
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("failed to decode checkout request", "error", err)
		writeError(w, http.StatusBadRequest, "Cuerpo de la petición no válido")
		return
	}

	resp, err := h.checkout.CreateSession(r.Context(), &req)
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
	h.log.Info("checkout session handed off",
		"order_id", resp.OrderID, "session_id", resp.SessionID)
}

// CreatePaymentIntent handles POST /api/checkout/create-payment-intent
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("failed to decode checkout request", "error", err)
		writeError(w, http.StatusBadRequest, "Cuerpo de la petición no válido")
		return
	}

	resp, err := h.checkout.CreatePaymentIntent(r.Context(), &req)
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
	h.log.Info("payment intent handed off", "order_id", resp.OrderID)
}

func (h *CheckoutHandler) writeCheckoutError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	var serr *service.InsufficientStockError

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.As(err, &serr):
		writeError(w, http.StatusBadRequest, serr.Error())
	case errors.Is(err, service.ErrOrderCreateFailed),
		errors.Is(err, service.ErrPaymentSessionFailed):
		h.log.Error("checkout failed downstream", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.log.Error("checkout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
	}
}
