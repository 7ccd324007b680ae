package service

import (
	"errors"

	"storefront-hub/internal/model"
)

var (
	ErrNegativeSubtotal  = errors.New("subtotal must not be negative")
	ErrInvalidCouponKind = errors.New("unknown coupon kind")
	ErrInvalidCouponData = errors.New("coupon value out of range for its kind")
)

// PriceBreakdown is the result of a total computation. Total is always
// Subtotal - Discount and never goes below zero.
type PriceBreakdown struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
}

// ComputeTotal applies an optional coupon to a subtotal expressed in
// integral minor currency units. A nil coupon means no discount. PERCENT
// discounts truncate toward zero; FIXED_AMOUNT discounts clamp to the
// subtotal so the total never goes negative.
func ComputeTotal(subtotal int64, coupon *model.Coupon) (PriceBreakdown, error) {
	if subtotal < 0 {
		return PriceBreakdown{}, ErrNegativeSubtotal
	}

	breakdown := PriceBreakdown{Subtotal: subtotal, Total: subtotal}
	if coupon == nil {
		return breakdown, nil
	}
	if !coupon.ValidValue() {
		if coupon.Kind != model.CouponKindPercent && coupon.Kind != model.CouponKindFixedAmount {
			return PriceBreakdown{}, ErrInvalidCouponKind
		}
		return PriceBreakdown{}, ErrInvalidCouponData
	}

	var discount int64
	switch coupon.Kind {
	case model.CouponKindPercent:
		discount = subtotal * coupon.Value / 100
	case model.CouponKindFixedAmount:
		discount = coupon.Value
	}
	if discount > subtotal {
		discount = subtotal
	}

	breakdown.Discount = discount
	breakdown.Total = subtotal - discount
	return breakdown, nil
}
