package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"storefront-hub/internal/event"
	"storefront-hub/internal/model"
	"storefront-hub/internal/repository"
	"storefront-hub/internal/repository/postgres"
)

type fakeCouponRepo struct {
	findByIDFn           func(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	findByIDForUpdateFn  func(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Coupon, error)
	decrementQuantityFn  func(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	createIssueFn        func(ctx context.Context, tx pgx.Tx, issue *model.CouponIssue) error
	hasUnredeemedIssueFn func(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) (bool, error)
	findIssueByIDFn      func(ctx context.Context, id uuid.UUID) (*model.CouponIssue, error)
	markIssueRedeemedFn  func(ctx context.Context, tx pgx.Tx, issueID uuid.UUID, redeemedAt time.Time) error
	listIssuesByUserFn   func(ctx context.Context, userID uuid.UUID) ([]*model.CouponIssue, error)
}

var _ repository.CouponRepository = (*fakeCouponRepo)(nil)

func (f *fakeCouponRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	if f.findByIDFn == nil {
		return nil, errUnexpectedCall
	}
	return f.findByIDFn(ctx, id)
}

func (f *fakeCouponRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Coupon, error) {
	if f.findByIDForUpdateFn == nil {
		return nil, errUnexpectedCall
	}
	return f.findByIDForUpdateFn(ctx, tx, id)
}

func (f *fakeCouponRepo) Create(context.Context, *model.Coupon) error { return errUnexpectedCall }
func (f *fakeCouponRepo) Update(context.Context, *model.Coupon) error { return errUnexpectedCall }
func (f *fakeCouponRepo) Deactivate(context.Context, uuid.UUID) error { return errUnexpectedCall }

func (f *fakeCouponRepo) List(context.Context, repository.Pagination) ([]*model.Coupon, int64, error) {
	return nil, 0, errUnexpectedCall
}

func (f *fakeCouponRepo) DecrementQuantity(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if f.decrementQuantityFn == nil {
		return errUnexpectedCall
	}
	return f.decrementQuantityFn(ctx, tx, id)
}

func (f *fakeCouponRepo) CreateIssue(ctx context.Context, tx pgx.Tx, issue *model.CouponIssue) error {
	if f.createIssueFn == nil {
		return errUnexpectedCall
	}
	return f.createIssueFn(ctx, tx, issue)
}

func (f *fakeCouponRepo) FindIssueByID(ctx context.Context, id uuid.UUID) (*model.CouponIssue, error) {
	if f.findIssueByIDFn == nil {
		return nil, errUnexpectedCall
	}
	return f.findIssueByIDFn(ctx, id)
}

func (f *fakeCouponRepo) HasUnredeemedIssue(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) (bool, error) {
	if f.hasUnredeemedIssueFn == nil {
		return false, errUnexpectedCall
	}
	return f.hasUnredeemedIssueFn(ctx, tx, couponID, userID)
}

func (f *fakeCouponRepo) MarkIssueRedeemed(ctx context.Context, tx pgx.Tx, issueID uuid.UUID, redeemedAt time.Time) error {
	if f.markIssueRedeemedFn == nil {
		return errUnexpectedCall
	}
	return f.markIssueRedeemedFn(ctx, tx, issueID, redeemedAt)
}

func (f *fakeCouponRepo) ListIssuesByUser(ctx context.Context, userID uuid.UUID) ([]*model.CouponIssue, error) {
	if f.listIssuesByUserFn == nil {
		return nil, errUnexpectedCall
	}
	return f.listIssuesByUserFn(ctx, userID)
}

func newUnitCouponService(repo *fakeCouponRepo) *CouponService {
	svc := NewCouponService(repo, nil, event.NewBus(), zap.NewNop())
	svc.withTx = func(ctx context.Context, fn func(tx pgx.Tx) error) error {
		return fn(nil)
	}
	return svc
}

func activeCoupon() *model.Coupon {
	return &model.Coupon{
		ID:       uuid.New(),
		Name:     "welcome",
		Kind:     model.CouponKindFixedAmount,
		Value:    500,
		Quantity: 10,
		IsActive: true,
	}
}

func TestIssue_HappyPath(t *testing.T) {
	t.Parallel()

	coupon := activeCoupon()
	userID := uuid.New()

	var decremented bool
	repo := &fakeCouponRepo{
		findByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Coupon, error) {
			return coupon, nil
		},
		hasUnredeemedIssueFn: func(_ context.Context, _ pgx.Tx, _, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		decrementQuantityFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) error {
			decremented = true
			return nil
		},
		createIssueFn: func(_ context.Context, _ pgx.Tx, _ *model.CouponIssue) error {
			return nil
		},
	}

	svc := newUnitCouponService(repo)
	issue, err := svc.Issue(context.Background(), coupon.ID, userID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if !decremented {
		t.Error("quantity was not decremented")
	}
	if issue.CouponID != coupon.ID || issue.UserID != userID {
		t.Errorf("unexpected issue %+v", issue)
	}
	if issue.RedeemedAt != nil {
		t.Error("fresh issue must not be redeemed")
	}
}

func TestIssue_RejectsDuplicate(t *testing.T) {
	t.Parallel()

	coupon := activeCoupon()
	repo := &fakeCouponRepo{
		findByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Coupon, error) {
			return coupon, nil
		},
		hasUnredeemedIssueFn: func(_ context.Context, _ pgx.Tx, _, _ uuid.UUID) (bool, error) {
			return true, nil
		},
	}

	svc := newUnitCouponService(repo)
	if _, err := svc.Issue(context.Background(), coupon.ID, uuid.New()); !errors.Is(err, ErrCouponAlreadyIssued) {
		t.Errorf("got %v, want ErrCouponAlreadyIssued", err)
	}
}

func TestIssue_MapsUniqueViolationToDuplicate(t *testing.T) {
	t.Parallel()

	// Simulates losing the race to the partial unique index after the
	// EXISTS check passed.
	coupon := activeCoupon()
	repo := &fakeCouponRepo{
		findByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Coupon, error) {
			return coupon, nil
		},
		hasUnredeemedIssueFn: func(_ context.Context, _ pgx.Tx, _, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		decrementQuantityFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) error {
			return nil
		},
		createIssueFn: func(_ context.Context, _ pgx.Tx, _ *model.CouponIssue) error {
			return postgres.ErrUniqueViolation
		},
	}

	svc := newUnitCouponService(repo)
	if _, err := svc.Issue(context.Background(), coupon.ID, uuid.New()); !errors.Is(err, ErrCouponAlreadyIssued) {
		t.Errorf("got %v, want ErrCouponAlreadyIssued", err)
	}
}

func TestIssue_Guards(t *testing.T) {
	t.Parallel()

	expired := time.Now().UTC().Add(-time.Hour)

	cases := []struct {
		name    string
		mutate  func(c *model.Coupon)
		decErr  error
		wantErr error
	}{
		{name: "inactive", mutate: func(c *model.Coupon) { c.IsActive = false }, wantErr: ErrCouponInactive},
		{name: "expired", mutate: func(c *model.Coupon) { c.ExpiresAt = &expired }, wantErr: ErrCouponExpired},
		{name: "exhausted", mutate: func(*model.Coupon) {}, decErr: postgres.ErrQuantityExhausted, wantErr: ErrCouponExhausted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			coupon := activeCoupon()
			tc.mutate(coupon)

			repo := &fakeCouponRepo{
				findByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Coupon, error) {
					return coupon, nil
				},
				hasUnredeemedIssueFn: func(_ context.Context, _ pgx.Tx, _, _ uuid.UUID) (bool, error) {
					return false, nil
				},
				decrementQuantityFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) error {
					return tc.decErr
				},
			}

			svc := newUnitCouponService(repo)
			if _, err := svc.Issue(context.Background(), coupon.ID, uuid.New()); !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateCoupon_Validation(t *testing.T) {
	t.Parallel()

	svc := newUnitCouponService(&fakeCouponRepo{})

	if _, err := svc.Create(context.Background(), CreateCouponRequest{Name: "", Kind: model.CouponKindPercent, Value: 10}); !errors.Is(err, ErrInvalidCouponInput) {
		t.Errorf("empty name: got %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateCouponRequest{Name: "x", Kind: model.CouponKindPercent, Value: 101}); !errors.Is(err, ErrInvalidCouponInput) {
		t.Errorf("percent over 100: got %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateCouponRequest{Name: "x", Kind: "WEIRD", Value: 1}); !errors.Is(err, ErrInvalidCouponInput) {
		t.Errorf("unknown kind: got %v", err)
	}
}
