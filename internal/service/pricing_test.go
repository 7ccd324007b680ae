package service

import (
	"errors"
	"testing"

	"storefront-hub/internal/model"
)

func TestComputeTotal(t *testing.T) {
	t.Parallel()

	percent := func(v int64) *model.Coupon {
		return &model.Coupon{Kind: model.CouponKindPercent, Value: v}
	}
	fixed := func(v int64) *model.Coupon {
		return &model.Coupon{Kind: model.CouponKindFixedAmount, Value: v}
	}

	cases := []struct {
		name     string
		subtotal int64
		coupon   *model.Coupon
		discount int64
		total    int64
	}{
		{name: "no coupon", subtotal: 1500, coupon: nil, discount: 0, total: 1500},
		{name: "percent ten", subtotal: 2000, coupon: percent(10), discount: 200, total: 1800},
		{name: "percent truncates", subtotal: 999, coupon: percent(10), discount: 99, total: 900},
		{name: "percent hundred", subtotal: 2000, coupon: percent(100), discount: 2000, total: 0},
		{name: "percent zero", subtotal: 2000, coupon: percent(0), discount: 0, total: 2000},
		{name: "fixed under subtotal", subtotal: 2000, coupon: fixed(500), discount: 500, total: 1500},
		{name: "fixed clamps to subtotal", subtotal: 1000, coupon: fixed(1500), discount: 1000, total: 0},
		{name: "fixed equals subtotal", subtotal: 1000, coupon: fixed(1000), discount: 1000, total: 0},
		{name: "zero subtotal", subtotal: 0, coupon: fixed(500), discount: 0, total: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ComputeTotal(tc.subtotal, tc.coupon)
			if err != nil {
				t.Fatalf("ComputeTotal returned error: %v", err)
			}
			if got.Subtotal != tc.subtotal {
				t.Errorf("subtotal = %d, want %d", got.Subtotal, tc.subtotal)
			}
			if got.Discount != tc.discount {
				t.Errorf("discount = %d, want %d", got.Discount, tc.discount)
			}
			if got.Total != tc.total {
				t.Errorf("total = %d, want %d", got.Total, tc.total)
			}
			if got.Total != got.Subtotal-got.Discount {
				t.Errorf("total %d does not equal subtotal %d minus discount %d", got.Total, got.Subtotal, got.Discount)
			}
		})
	}
}

func TestComputeTotalRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := ComputeTotal(-1, nil); !errors.Is(err, ErrNegativeSubtotal) {
		t.Errorf("negative subtotal: got %v, want ErrNegativeSubtotal", err)
	}

	over := &model.Coupon{Kind: model.CouponKindPercent, Value: 101}
	if _, err := ComputeTotal(1000, over); !errors.Is(err, ErrInvalidCouponData) {
		t.Errorf("percent over 100: got %v, want ErrInvalidCouponData", err)
	}

	negative := &model.Coupon{Kind: model.CouponKindFixedAmount, Value: -5}
	if _, err := ComputeTotal(1000, negative); !errors.Is(err, ErrInvalidCouponData) {
		t.Errorf("negative fixed amount: got %v, want ErrInvalidCouponData", err)
	}

	unknown := &model.Coupon{Kind: "BOGOF", Value: 1}
	if _, err := ComputeTotal(1000, unknown); !errors.Is(err, ErrInvalidCouponKind) {
		t.Errorf("unknown kind: got %v, want ErrInvalidCouponKind", err)
	}
}
