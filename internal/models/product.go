package models

import "github.com/shopspring/decimal"

// Product is a catalog entry. The storefront UI owns most product fields;
// checkout only needs name and price for re-validation of cart lines.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Variants    []StockVariant  `json:"variants,omitempty"`
}

// StockVariant is a purchasable SKU (product + size) with its stock counter.
// Stock is mutated only through StockRepository.Reserve and Restore.
type StockVariant struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Size        string          `json:"size"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}
