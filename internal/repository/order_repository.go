package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository persists the order aggregate. Create is atomic: header and
// items land in one transaction or not at all.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByPaymentSession(ctx context.Context, sessionID string) (*models.Order, error)
	LinkPaymentSession(ctx context.Context, orderID, sessionID string) error

	// DeleteUnpaid removes a pre-payment order as a compensating action.
	// It refuses anything past pending.
	DeleteUnpaid(ctx context.Context, orderID string) error

	// UpdateStatus is a conditional transition; it reports whether the row
	// actually moved, so replayed events turn into no-ops.
	UpdateStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error)

	// MarkConfirmationSent flips the sent-flag once; false means it was
	// already set.
	MarkConfirmationSent(ctx context.Context, orderID string) (bool, error)

	// RecordCouponUsage inserts at most one usage row per order; false
	// means the usage was already recorded.
	RecordCouponUsage(ctx context.Context, couponID, orderID, customerEmail string) (bool, error)
}

type PostgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// Create inserts the header and all items in one transaction and assigns the
// next sequential order number. It fills order.ID and order.OrderNumber.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
		return fmt.Errorf("next order number: %w", err)
	}

	order.ID = uuid.New().String()
	order.OrderNumber = fmt.Sprintf("FS-%05d", seq)
	order.Status = models.OrderStatusPending

	var couponID sql.NullString
	if order.CouponID != "" {
		couponID = sql.NullString{String: order.CouponID, Valid: true}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			id, order_number, customer_id, customer_name, customer_email,
			customer_phone, shipping_address, shipping_city, shipping_postal_code,
			status, subtotal, shipping_cost, discount_amount, total_amount,
			coupon_id, coupon_code
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING created_at, updated_at`,
		order.ID, order.OrderNumber, order.CustomerID, order.CustomerName,
		order.CustomerEmail, order.CustomerPhone, order.ShippingAddress,
		order.ShippingCity, order.ShippingPostal, string(order.Status),
		order.Subtotal, order.ShippingCost, order.DiscountAmount,
		order.TotalAmount, couponID, order.CouponCode,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO order_items (order_id, product_id, variant_id, product_name, size, quantity, price_at_purchase)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`)
	if err != nil {
		return fmt.Errorf("prepare items: %w", err)
	}
	defer stmt.Close()

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if _, err := stmt.ExecContext(ctx,
			order.ID, item.ProductID, item.VariantID, item.ProductName,
			item.Size, item.Quantity, item.PriceAtPurchase,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

const orderColumns = `
	id, order_number, COALESCE(customer_id,''), customer_name, customer_email,
	COALESCE(customer_phone,''), shipping_address, shipping_city, shipping_postal_code,
	status, subtotal, shipping_cost, discount_amount, total_amount,
	COALESCE(coupon_id::text,''), COALESCE(coupon_code,''),
	COALESCE(payment_session_id,''), confirmation_sent, created_at, updated_at`

func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return r.scanOrder(ctx, row)
}

func (r *PostgresOrderRepository) GetByPaymentSession(ctx context.Context, sessionID string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_session_id = $1`, sessionID)
	return r.scanOrder(ctx, row)
}

func (r *PostgresOrderRepository) scanOrder(ctx context.Context, row *sql.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.CustomerEmail,
		&o.CustomerPhone, &o.ShippingAddress, &o.ShippingCity, &o.ShippingPostal,
		(*string)(&o.Status), &o.Subtotal, &o.ShippingCost, &o.DiscountAmount,
		&o.TotalAmount, &o.CouponID, &o.CouponCode, &o.PaymentSessionID,
		&o.ConfirmationSent, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, variant_id, product_name, size, quantity, price_at_purchase
		FROM order_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.VariantID,
			&item.ProductName, &item.Size, &item.Quantity, &item.PriceAtPurchase,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return &o, nil
}

func (r *PostgresOrderRepository) LinkPaymentSession(ctx context.Context, orderID, sessionID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_session_id = $1, updated_at = now() WHERE id = $2`,
		sessionID, orderID,
	)
	if err != nil {
		return fmt.Errorf("link payment session: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PostgresOrderRepository) DeleteUnpaid(ctx context.Context, orderID string) error {
	// order_items cascade with the header row
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM orders WHERE id = $1 AND status = $2`,
		orderID, string(models.OrderStatusPending),
	)
	if err != nil {
		return fmt.Errorf("delete unpaid order: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error) {
	if !models.CanTransition(from, to) {
		return false, fmt.Errorf("illegal status transition %s -> %s", from, to)
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		string(to), orderID, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *PostgresOrderRepository) MarkConfirmationSent(ctx context.Context, orderID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET confirmation_sent = true, updated_at = now()
		WHERE id = $1 AND confirmation_sent = false`,
		orderID,
	)
	if err != nil {
		return false, fmt.Errorf("mark confirmation sent: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *PostgresOrderRepository) RecordCouponUsage(ctx context.Context, couponID, orderID, customerEmail string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO coupon_usages (coupon_id, order_id, customer_email)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING`,
		couponID, orderID, customerEmail,
	)
	if err != nil {
		return false, fmt.Errorf("record coupon usage: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
