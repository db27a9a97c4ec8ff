package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the interface for catalog reads.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
}

type PostgresProductRepository struct {
	db *sql.DB
}

func NewPostgresProductRepository(db *sql.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

func (r *PostgresProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, COALESCE(p.description,''), COALESCE(p.category,''), p.price,
		       v.id, v.size, v.stock
		FROM products p
		LEFT JOIN stock_variants v ON v.product_id = p.id
		ORDER BY p.name, v.size`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.Product)
	var ordered []string
	for rows.Next() {
		var p models.Product
		var variantID, size sql.NullString
		var stock sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price,
			&variantID, &size, &stock); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}

		existing, ok := byID[p.ID]
		if !ok {
			cp := p
			byID[p.ID] = &cp
			ordered = append(ordered, p.ID)
			existing = &cp
		}
		if variantID.Valid {
			existing.Variants = append(existing.Variants, models.StockVariant{
				ID:        variantID.String,
				ProductID: p.ID,
				Size:      size.String,
				Price:     p.Price,
				Stock:     int(stock.Int64),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	products := make([]models.Product, 0, len(ordered))
	for _, id := range ordered {
		products = append(products, *byID[id])
	}
	return products, nil
}

func (r *PostgresProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(description,''), COALESCE(category,''), price
		FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, size, stock FROM stock_variants WHERE product_id = $1 ORDER BY size`, id)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v models.StockVariant
		if err := rows.Scan(&v.ID, &v.Size, &v.Stock); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		v.ProductID = p.ID
		v.Price = p.Price
		p.Variants = append(p.Variants, v)
	}
	return &p, rows.Err()
}
