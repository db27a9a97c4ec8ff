package service

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
)

var postalCodeRe = regexp.MustCompile(`^\d{5}$`)

// validateCheckoutRequest checks the customer and cart fields in a fixed
// order and returns the first violation. It runs before any mutation, so a
// failure needs no rollback.
func validateCheckoutRequest(req *models.CheckoutRequest) *ValidationError {
	if len(req.Items) == 0 {
		return &ValidationError{Message: "El carrito está vacío"}
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return &ValidationError{Message: "La cantidad debe ser mayor que cero"}
		}
		if item.VariantID == "" {
			return &ValidationError{Message: "Falta la talla de un artículo del carrito"}
		}
	}

	if len(strings.TrimSpace(req.CustomerName)) < 2 {
		return &ValidationError{Message: "El nombre debe tener al menos 2 caracteres"}
	}
	if !validEmail(req.CustomerEmail) {
		return &ValidationError{Message: "El correo electrónico no es válido"}
	}
	if len(strings.TrimSpace(req.ShippingAddress)) < 5 {
		return &ValidationError{Message: "La dirección debe tener al menos 5 caracteres"}
	}
	if strings.TrimSpace(req.ShippingCity) == "" {
		return &ValidationError{Message: "La ciudad es obligatoria"}
	}
	if !postalCodeRe.MatchString(strings.TrimSpace(req.ShippingPostalCode)) {
		return &ValidationError{Message: "El código postal debe tener 5 dígitos"}
	}

	return nil
}

func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
