package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/middleware"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/service"
)

// OrderReconciler is the handler's view of post-handoff order operations.
type OrderReconciler interface {
	Cancel(ctx context.Context, ident service.Identity, orderID, reason string) (*models.CancelResponse, error)
	SendConfirmation(ctx context.Context, ident service.Identity, orderID string) (bool, error)
}

// OrderHandler handles the authenticated order endpoints
type OrderHandler struct {
	reconciler OrderReconciler
	log        *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(reconciler OrderReconciler, log *slog.Logger) *OrderHandler {
	return &OrderHandler{
		reconciler: reconciler,
		log:        log,
	}
}

// Cancel handles POST /api/orders/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Autenticación requerida")
		return
	}

	var req models.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Cuerpo de la petición no válido")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "Falta el identificador del pedido")
		return
	}

	ident := service.Identity{CustomerID: claims.Subject, Email: claims.Email}
	resp, err := h.reconciler.Cancel(r.Context(), ident, req.OrderID, req.Reason)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
	h.log.Info("order cancellation processed",
		"order_id", req.OrderID, "refunded", resp.Refunded)
}

type sendConfirmationRequest struct {
	OrderID string `json:"orderId"`
}

// SendConfirmation handles POST /api/orders/send-confirmation-email
func (h *OrderHandler) SendConfirmation(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Autenticación requerida")
		return
	}

	var req sendConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Cuerpo de la petición no válido")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "Falta el identificador del pedido")
		return
	}

	ident := service.Identity{CustomerID: claims.Subject, Email: claims.Email}
	sent, err := h.reconciler.SendConfirmation(r.Context(), ident, req.OrderID)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	message := "Correo de confirmación enviado"
	if !sent {
		message = "El correo de confirmación ya se había enviado"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sent":    sent,
		"message": message,
	})
}

func (h *OrderHandler) writeOrderError(w http.ResponseWriter, err error) {
	var cerr *service.StateConflictError

	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOrderOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &cerr):
		writeError(w, http.StatusBadRequest, cerr.Message)
	default:
		h.log.Error("order operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
	}
}
