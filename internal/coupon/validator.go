package coupon

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/shopspring/decimal"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/models"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/repository"
)

// Result is the outcome of a validation pass. Exactly one of the checks may
// fail; Message carries the user-facing reason for the first failure.
type Result struct {
	Valid          bool
	CouponID       string
	Coupon         *models.Coupon
	DiscountAmount decimal.Decimal
	Message        string
}

// Validator applies the coupon business rules in order: existence/active,
// validity window, minimum purchase, per-customer uses, global uses. It is
// read-only; recording usage happens after payment confirmation.
type Validator struct {
	repo   repository.CouponRepository
	now    func() time.Time
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	loaded int
}

// NewValidator creates a validator over the coupon store.
func NewValidator(repo repository.CouponRepository) *Validator {
	return &Validator{
		repo: repo,
		now:  time.Now,
	}
}

// ReloadCodes rebuilds the quick-reject filter from the active coupon codes.
// Until the first successful reload every code goes to the database.
func (v *Validator) ReloadCodes(ctx context.Context) error {
	codes, err := v.repo.ActiveCodes(ctx)
	if err != nil {
		return fmt.Errorf("load active codes: %w", err)
	}

	n := uint(len(codes))
	if n < 64 {
		n = 64
	}
	filter := bloom.NewWithEstimates(n, 0.01)
	for _, code := range codes {
		filter.AddString(normalizeCode(code))
	}

	v.mu.Lock()
	v.filter = filter
	v.loaded = len(codes)
	v.mu.Unlock()

	return nil
}

// LoadedCodes returns how many active codes the filter was built from.
func (v *Validator) LoadedCodes() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

// Validate checks a coupon code against the cart total and customer. The
// discount amount is advisory: for hosted sessions the gateway-native
// promotion is the charge authority and this figure is display-only.
func (v *Validator) Validate(ctx context.Context, code string, cartTotal decimal.Decimal, customerEmail string) (*Result, error) {
	code = normalizeCode(code)
	if code == "" {
		return invalid("El cupón no es válido"), nil
	}

	v.mu.RLock()
	filter := v.filter
	v.mu.RUnlock()
	if filter != nil && !filter.TestString(code) {
		// Definitive negative: bloom filters have no false negatives.
		return invalid("El cupón no es válido"), nil
	}

	c, err := v.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c == nil || !c.Active {
		return invalid("El cupón no es válido"), nil
	}

	now := v.now()
	if !c.StartDate.IsZero() && now.Before(c.StartDate) {
		return invalid("El cupón no está vigente todavía"), nil
	}
	if !c.EndDate.IsZero() && now.After(c.EndDate) {
		return invalid("El cupón ha expirado"), nil
	}

	if cartTotal.LessThan(c.MinPurchaseAmount) {
		return invalid(fmt.Sprintf(
			"La compra mínima para este cupón es de %s €",
			c.MinPurchaseAmount.StringFixed(2),
		)), nil
	}

	if c.MaxUsesPerCustomer > 0 {
		used, err := v.repo.CountUsesByCustomer(ctx, c.ID, customerEmail)
		if err != nil {
			return nil, err
		}
		if used >= c.MaxUsesPerCustomer {
			return invalid("Ya has utilizado este cupón el máximo de veces"), nil
		}
	}

	if c.MaxUses > 0 {
		used, err := v.repo.CountUses(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if used >= c.MaxUses {
			return invalid("Este cupón ha alcanzado su límite de usos"), nil
		}
	}

	return &Result{
		Valid:          true,
		CouponID:       c.ID,
		Coupon:         c,
		DiscountAmount: Discount(c, cartTotal),
	}, nil
}

// Discount computes the discount a coupon yields on a cart total:
// percentage capped at MaxDiscountAmount when set, fixed capped at the total.
func Discount(c *models.Coupon, cartTotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.DiscountType {
	case models.DiscountPercentage:
		amount = cartTotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
		if c.MaxDiscountAmount.IsPositive() && amount.GreaterThan(c.MaxDiscountAmount) {
			amount = c.MaxDiscountAmount
		}
	case models.DiscountFixed:
		amount = c.DiscountValue
		if amount.GreaterThan(cartTotal) {
			amount = cartTotal
		}
	}
	return amount.Round(2)
}

func invalid(msg string) *Result {
	return &Result{Valid: false, Message: msg}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
