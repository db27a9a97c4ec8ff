package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/repository"
)

// ProductHandler serves the catalog read endpoints. This is the same read
// path the checkout uses to re-validate client-supplied prices.
type ProductHandler struct {
	products repository.ProductRepository
	log      *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(products repository.ProductRepository, log *slog.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		log:      log,
	}
}

// ListProducts handles GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.GetAll(r.Context())
	if err != nil {
		h.log.Error("failed to list products", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct handles GET /api/products/{productId}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productId")

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Producto no encontrado")
			return
		}
		h.log.Error("failed to get product", "product_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		return
	}
	writeJSON(w, http.StatusOK, product)
}
