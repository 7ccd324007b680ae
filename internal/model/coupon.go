package model

import (
	"time"

	"github.com/google/uuid"
)

type CouponKind string

const (
	CouponKindPercent     CouponKind = "PERCENT"
	CouponKindFixedAmount CouponKind = "FIXED_AMOUNT"
)

// Coupon is the reusable discount definition. Quantity below zero means
// unlimited issuance. Coupons are never hard-deleted once issued; admin
// deletion only clears IsActive so historical orders stay resolvable.
type Coupon struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description"`
	Kind        CouponKind `db:"kind" json:"kind"`
	Value       int64      `db:"value" json:"value"`
	Quantity    int64      `db:"quantity" json:"quantity"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// ValidValue reports whether the discount value fits the kind:
// percentages live in [0,100], fixed amounts are non-negative.
func (c *Coupon) ValidValue() bool {
	switch c.Kind {
	case CouponKindPercent:
		return c.Value >= 0 && c.Value <= 100
	case CouponKindFixedAmount:
		return c.Value >= 0
	default:
		return false
	}
}

// CouponIssue is a single grant of a coupon to one user. At most one
// unredeemed issue may exist per (coupon, user) pair.
type CouponIssue struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CouponID   uuid.UUID  `db:"coupon_id" json:"coupon_id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	IssuedAt   time.Time  `db:"issued_at" json:"issued_at"`
	RedeemedAt *time.Time `db:"redeemed_at" json:"redeemed_at,omitempty"`
}
