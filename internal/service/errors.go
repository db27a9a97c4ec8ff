package service

import (
	"errors"
	"fmt"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
)

var (
	// ErrOrderCreateFailed hides order-persistence detail from the client.
	ErrOrderCreateFailed = errors.New("no se pudo crear el pedido")

	// ErrPaymentSessionFailed hides payment-provider detail from the client.
	ErrPaymentSessionFailed = errors.New("no se pudo conectar con la pasarela de pago")

	ErrOrderNotFound = errors.New("pedido no encontrado")
	ErrNotOrderOwner = errors.New("no tienes permiso sobre este pedido")
)

// ValidationError carries a user-facing message for malformed input. Nothing
// was mutated when one of these is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InsufficientStockError names the cart line that could not be reserved.
type InsufficientStockError struct {
	ProductName string
	Size        string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Stock insuficiente para %s (Talla %s)", e.ProductName, e.Size)
}

// StateConflictError rejects an operation that the order's current status
// does not permit.
type StateConflictError struct {
	Status  models.OrderStatus
	Message string
}

func (e *StateConflictError) Error() string {
	return e.Message
}
