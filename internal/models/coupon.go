package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType distinguishes percentage coupons from fixed-amount ones.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is read-only from the checkout's perspective; usage is recorded
// separately after payment confirmation. Zero values on the Max* fields
// mean "no limit", a zero MaxDiscountAmount means "no cap".
type Coupon struct {
	ID                 string          `json:"id"`
	Code               string          `json:"code"`
	DiscountType       DiscountType    `json:"discountType"`
	DiscountValue      decimal.Decimal `json:"discountValue"`
	MinPurchaseAmount  decimal.Decimal `json:"minPurchaseAmount"`
	MaxDiscountAmount  decimal.Decimal `json:"maxDiscountAmount"`
	MaxUses            int             `json:"maxUses"`
	MaxUsesPerCustomer int             `json:"maxUsesPerCustomer"`
	StartDate          time.Time       `json:"startDate"`
	EndDate            time.Time       `json:"endDate"`
	Active             bool            `json:"active"`
}
