package pricing

import (
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// Policy holds the business pricing constants. They are injected from
// configuration so the engine stays testable and the policy swappable.
type Policy struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.RequireFromString("0.16"),
		FreeShippingThreshold: decimal.NewFromInt(1000),
		FlatShippingFee:       decimal.NewFromInt(50),
	}
}

type Engine struct {
	policy Policy
}

func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// ComputeTotals derives the totals breakdown from the line items and the
// caller-held coupon state. It is pure: no clock, no store, no mutation.
//
// The discount is clamped to >= 0 but deliberately not clamped against
// subtotal+shipping; a discount exceeding the order value is a caller error
// and may drive the total negative.
func (e *Engine) ComputeTotals(items []domain.LineItem, coupon domain.CouponState) domain.Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	// Free shipping strictly above the threshold; exactly at it still pays
	// the flat fee.
	shipping := e.policy.FlatShippingFee
	if subtotal.GreaterThan(e.policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(e.policy.TaxRate)

	discount := coupon.DiscountAmount
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return domain.Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal.Add(shipping).Add(tax).Sub(discount),
	}
}
