package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
)

// CouponRepository exposes read-only coupon data plus usage counts. Usage
// rows themselves are written through OrderRepository.RecordCouponUsage.
type CouponRepository interface {
	// GetByCode returns nil without error when the code does not exist.
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	CountUses(ctx context.Context, couponID string) (int, error)
	CountUsesByCustomer(ctx context.Context, couponID, customerEmail string) (int, error)
	ActiveCodes(ctx context.Context) ([]string, error)
}

type PostgresCouponRepository struct {
	db *sql.DB
}

func NewPostgresCouponRepository(db *sql.DB) *PostgresCouponRepository {
	return &PostgresCouponRepository{db: db}
}

func (r *PostgresCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, discount_type, discount_value,
		       min_purchase_amount, COALESCE(max_discount_amount, 0),
		       COALESCE(max_uses, 0), COALESCE(max_uses_per_customer, 0),
		       start_date, end_date, active
		FROM coupons WHERE code = $1`,
		code,
	).Scan(
		&c.ID, &c.Code, (*string)(&c.DiscountType), &c.DiscountValue,
		&c.MinPurchaseAmount, &c.MaxDiscountAmount,
		&c.MaxUses, &c.MaxUsesPerCustomer,
		&c.StartDate, &c.EndDate, &c.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query coupon: %w", err)
	}
	return &c, nil
}

func (r *PostgresCouponRepository) CountUses(ctx context.Context, couponID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM coupon_usages WHERE coupon_id = $1`, couponID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count coupon uses: %w", err)
	}
	return n, nil
}

func (r *PostgresCouponRepository) CountUsesByCustomer(ctx context.Context, couponID, customerEmail string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM coupon_usages WHERE coupon_id = $1 AND lower(customer_email) = lower($2)`,
		couponID, customerEmail,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count coupon uses by customer: %w", err)
	}
	return n, nil
}

func (r *PostgresCouponRepository) ActiveCodes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code FROM coupons WHERE active = true`)
	if err != nil {
		return nil, fmt.Errorf("query active codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
