package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/coupon"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/payment"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/repository"
)

// stockCall records one Reserve or Restore invocation.
type stockCall struct {
	variantID string
	quantity  int
}

type mockStockRepo struct {
	mu       sync.Mutex
	variants map[string]*models.StockVariant

	reserveCalls []stockCall
	restoreCalls []stockCall

	// failReserveAt makes the nth Reserve call (0-based) return an error.
	failReserveAt int
	reserveErr    error
	restoreErr    error
}

func newMockStockRepo(variants ...*models.StockVariant) *mockStockRepo {
	m := &mockStockRepo{
		variants:      make(map[string]*models.StockVariant),
		failReserveAt: -1,
	}
	for _, v := range variants {
		m.variants[v.ID] = v
	}
	return m
}

func (m *mockStockRepo) Reserve(ctx context.Context, variantID string, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.reserveCalls)
	m.reserveCalls = append(m.reserveCalls, stockCall{variantID, quantity})

	if m.failReserveAt >= 0 && n == m.failReserveAt {
		return false, m.reserveErr
	}
	v, ok := m.variants[variantID]
	if !ok || v.Stock < quantity {
		return false, nil
	}
	v.Stock -= quantity
	return true, nil
}

func (m *mockStockRepo) Restore(ctx context.Context, variantID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.restoreCalls = append(m.restoreCalls, stockCall{variantID, quantity})
	if m.restoreErr != nil {
		return m.restoreErr
	}
	if v, ok := m.variants[variantID]; ok {
		v.Stock += quantity
	}
	return nil
}

func (m *mockStockRepo) GetVariant(ctx context.Context, variantID string) (*models.StockVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.variants[variantID]
	if !ok {
		return nil, repository.ErrVariantNotFound
	}
	vv := *v
	return &vv, nil
}

type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*models.Order

	createErr error
	created   []*models.Order

	deleted      []string
	linked       map[string]string
	couponUsages map[string]bool // keyed by order id
	sentFlags    map[string]bool

	updateStatusErr error
}

func newMockOrderRepo(orders ...*models.Order) *mockOrderRepo {
	m := &mockOrderRepo{
		orders:       make(map[string]*models.Order),
		linked:       make(map[string]string),
		couponUsages: make(map[string]bool),
		sentFlags:    make(map[string]bool),
	}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderRepo) Create(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	order.ID = fmt.Sprintf("ord-%d", len(m.created)+1)
	order.OrderNumber = "FS-00042"
	order.Status = models.OrderStatusPending
	m.created = append(m.created, order)
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) GetByPaymentSession(ctx context.Context, sessionID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range m.orders {
		if o.PaymentSessionID == sessionID {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepo) LinkPaymentSession(ctx context.Context, orderID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.linked[orderID] = sessionID
	if o, ok := m.orders[orderID]; ok {
		o.PaymentSessionID = sessionID
	}
	return nil
}

func (m *mockOrderRepo) DeleteUnpaid(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.Status != models.OrderStatusPending {
		return errors.New("order is not pending")
	}
	m.deleted = append(m.deleted, orderID)
	delete(m.orders, orderID)
	return nil
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateStatusErr != nil {
		return false, m.updateStatusErr
	}
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *mockOrderRepo) MarkConfirmationSent(ctx context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sentFlags[orderID] {
		return false, nil
	}
	m.sentFlags[orderID] = true
	if o, ok := m.orders[orderID]; ok {
		o.ConfirmationSent = true
	}
	return true, nil
}

func (m *mockOrderRepo) RecordCouponUsage(ctx context.Context, couponID, orderID, customerEmail string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.couponUsages[orderID] {
		return false, nil
	}
	m.couponUsages[orderID] = true
	return true, nil
}

type refundCall struct {
	paymentRef string
	amount     int64
}

type mockGateway struct {
	mu sync.Mutex

	sessionParams []payment.SessionParams
	sessionErr    error

	intentParams []payment.IntentParams
	intentErr    error

	refundCalls []refundCall
	refundErr   error
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, p payment.SessionParams) (*payment.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessionParams = append(m.sessionParams, p)
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	return &payment.Session{ID: "cs_test_123", URL: "https://pay.example.com/cs_test_123"}, nil
}

func (m *mockGateway) CreatePaymentIntent(ctx context.Context, p payment.IntentParams) (*payment.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.intentParams = append(m.intentParams, p)
	if m.intentErr != nil {
		return nil, m.intentErr
	}
	return &payment.Intent{
		ID:           "pi_test_123",
		ClientSecret: "pi_test_123_secret",
		EphemeralKey: "ek_test",
		CustomerID:   "cus_test",
	}, nil
}

func (m *mockGateway) CreateRefund(ctx context.Context, paymentRef string, amount int64) (*payment.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refundCalls = append(m.refundCalls, refundCall{paymentRef, amount})
	if m.refundErr != nil {
		return nil, m.refundErr
	}
	return &payment.Refund{ID: "re_test_123", Status: "succeeded", Amount: amount}, nil
}

type mockCoupons struct {
	result *coupon.Result
	err    error

	gotCode  string
	gotTotal decimal.Decimal
}

func (m *mockCoupons) Validate(ctx context.Context, code string, cartTotal decimal.Decimal, customerEmail string) (*coupon.Result, error) {
	m.gotCode = code
	m.gotTotal = cartTotal
	return m.result, m.err
}

type mockNotifier struct {
	mu        sync.Mutex
	confirmed []string
	cancelled []string
	admin     []string
}

func (m *mockNotifier) OrderConfirmed(o *models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed = append(m.confirmed, o.ID)
}

func (m *mockNotifier) OrderCancelled(o *models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, o.ID)
}

func (m *mockNotifier) AdminNewOrder(adminEmail string, o *models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admin = append(m.admin, o.ID)
}

type mockDeduper struct {
	first     bool
	err       error
	calls     int
	forgotten []string
}

func (m *mockDeduper) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	m.calls++
	return m.first, m.err
}

func (m *mockDeduper) Forget(ctx context.Context, eventID string) error {
	m.forgotten = append(m.forgotten, eventID)
	return nil
}

// markingDeduper behaves like the Redis registry: the first delivery of an
// event id claims the mark, later ones are duplicates until Forget.
type markingDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMarkingDeduper() *markingDeduper {
	return &markingDeduper{seen: make(map[string]bool)}
}

func (d *markingDeduper) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[eventID] {
		return false, nil
	}
	d.seen[eventID] = true
	return true, nil
}

func (d *markingDeduper) Forget(ctx context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, eventID)
	return nil
}

// lostRaceOrderRepo reports every conditional transition as already taken,
// as if another caller moved the order between the read and the update.
type lostRaceOrderRepo struct {
	*mockOrderRepo
}

func (r *lostRaceOrderRepo) UpdateStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error) {
	return false, nil
}
