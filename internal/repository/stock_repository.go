package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
)

var ErrVariantNotFound = errors.New("stock variant not found")

// StockRepository is the only component allowed to mutate stock counters.
type StockRepository interface {
	// Reserve atomically decrements stock when enough is available.
	// Returns false (not an error) when stock is insufficient.
	Reserve(ctx context.Context, variantID string, quantity int) (bool, error)

	// Restore increments stock back. Used exclusively as a compensating
	// action; a missing variant is logged and swallowed.
	Restore(ctx context.Context, variantID string, quantity int) error

	// GetVariant reads a variant joined with its product name and price,
	// used to re-validate client-supplied cart lines.
	GetVariant(ctx context.Context, variantID string) (*models.StockVariant, error)
}

type PostgresStockRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewPostgresStockRepository(db *sql.DB, log *slog.Logger) *PostgresStockRepository {
	return &PostgresStockRepository{db: db, log: log}
}

// Reserve runs the check-and-decrement as a single conditional UPDATE so two
// concurrent reservations can never jointly drive stock negative.
func (r *PostgresStockRepository) Reserve(ctx context.Context, variantID string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, fmt.Errorf("reserve quantity must be positive, got %d", quantity)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE stock_variants
		SET stock = stock - $1, updated_at = now()
		WHERE id = $2 AND stock >= $1`,
		quantity, variantID,
	)
	if err != nil {
		return false, fmt.Errorf("reserve stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *PostgresStockRepository) Restore(ctx context.Context, variantID string, quantity int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE stock_variants
		SET stock = stock + $1, updated_at = now()
		WHERE id = $2`,
		quantity, variantID,
	)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Variant vanished since the reservation. Non-fatal: the
		// compensation has nothing left to compensate.
		r.log.Warn("restore on missing variant", "variant_id", variantID, "quantity", quantity)
	}
	return nil
}

func (r *PostgresStockRepository) GetVariant(ctx context.Context, variantID string) (*models.StockVariant, error) {
	var v models.StockVariant
	err := r.db.QueryRowContext(ctx, `
		SELECT v.id, v.product_id, p.name, v.size, p.price, v.stock
		FROM stock_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = $1`,
		variantID,
	).Scan(&v.ID, &v.ProductID, &v.ProductName, &v.Size, &v.Price, &v.Stock)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query variant: %w", err)
	}
	return &v, nil
}
