package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront-hub/internal/event"
	"storefront-hub/internal/metrics"
	"storefront-hub/internal/model"
	"storefront-hub/internal/repository"
	"storefront-hub/internal/repository/postgres"
)

var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponInactive      = errors.New("coupon is not active")
	ErrCouponExpired       = errors.New("coupon expired")
	ErrCouponExhausted     = errors.New("coupon supply exhausted")
	ErrCouponAlreadyIssued = errors.New("coupon already issued to user")
	ErrInvalidCouponInput  = errors.New("invalid coupon input")
)

type CreateCouponRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Kind        model.CouponKind `json:"kind"`
	Value       int64            `json:"value"`
	Quantity    int64            `json:"quantity"`
	ExpiresAt   *time.Time       `json:"expires_at"`
}

// IssuedCoupon pairs an issue row with its coupon definition for the
// my-coupons listing.
type IssuedCoupon struct {
	Issue  *model.CouponIssue `json:"issue"`
	Coupon *model.Coupon      `json:"coupon"`
}

type CouponService struct {
	couponRepo repository.CouponRepository
	pool       *pgxpool.Pool
	bus        *event.Bus
	logger     *zap.Logger

	withTx func(ctx context.Context, fn func(tx pgx.Tx) error) error
	now    func() time.Time
}

func NewCouponService(
	couponRepo repository.CouponRepository,
	pool *pgxpool.Pool,
	bus *event.Bus,
	logger *zap.Logger,
) *CouponService {
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := &CouponService{
		couponRepo: couponRepo,
		pool:       pool,
		bus:        bus,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	svc.withTx = func(ctx context.Context, fn func(tx pgx.Tx) error) error {
		tx, err := svc.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}
	return svc
}

func (s *CouponService) Create(ctx context.Context, req CreateCouponRequest) (*model.Coupon, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ErrInvalidCouponInput
	}

	coupon := &model.Coupon{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Kind:        req.Kind,
		Value:       req.Value,
		Quantity:    req.Quantity,
		ExpiresAt:   req.ExpiresAt,
		IsActive:    true,
	}
	if !coupon.ValidValue() {
		return nil, ErrInvalidCouponInput
	}

	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	s.logger.Info("coupon created",
		zap.String("coupon_id", coupon.ID.String()),
		zap.String("kind", string(coupon.Kind)),
		zap.Int64("value", coupon.Value))

	return coupon, nil
}

func (s *CouponService) Get(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	coupon, err := s.couponRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCouponNotFound
	}
	return coupon, err
}

func (s *CouponService) List(ctx context.Context, page repository.Pagination) ([]*model.Coupon, int64, error) {
	return s.couponRepo.List(ctx, page)
}

func (s *CouponService) Update(ctx context.Context, id uuid.UUID, req CreateCouponRequest) (*model.Coupon, error) {
	coupon, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ErrInvalidCouponInput
	}

	coupon.Name = req.Name
	coupon.Description = strings.TrimSpace(req.Description)
	coupon.Kind = req.Kind
	coupon.Value = req.Value
	coupon.Quantity = req.Quantity
	coupon.ExpiresAt = req.ExpiresAt
	if !coupon.ValidValue() {
		return nil, ErrInvalidCouponInput
	}

	if err := s.couponRepo.Update(ctx, coupon); err != nil {
		return nil, fmt.Errorf("update coupon: %w", err)
	}
	return coupon, nil
}

func (s *CouponService) Deactivate(ctx context.Context, id uuid.UUID) error {
	err := s.couponRepo.Deactivate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCouponNotFound
	}
	return err
}

// Issue grants one coupon to one user. The coupon row lock serializes
// concurrent grabs of the same coupon; the partial unique index on
// (coupon_id, user_id) backs up the unredeemed-issue check, so two
// concurrent requests by the same user cannot both succeed.
func (s *CouponService) Issue(ctx context.Context, couponID, userID uuid.UUID) (*model.CouponIssue, error) {
	var issue *model.CouponIssue
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		coupon, err := s.couponRepo.FindByIDForUpdate(ctx, tx, couponID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCouponNotFound
		}
		if err != nil {
			return err
		}

		if !coupon.IsActive {
			return ErrCouponInactive
		}
		if coupon.ExpiresAt != nil && s.now().After(*coupon.ExpiresAt) {
			return ErrCouponExpired
		}

		exists, err := s.couponRepo.HasUnredeemedIssue(ctx, tx, couponID, userID)
		if err != nil {
			return fmt.Errorf("check existing issue: %w", err)
		}
		if exists {
			return ErrCouponAlreadyIssued
		}

		if err := s.couponRepo.DecrementQuantity(ctx, tx, couponID); err != nil {
			if errors.Is(err, postgres.ErrQuantityExhausted) {
				return ErrCouponExhausted
			}
			return fmt.Errorf("decrement quantity: %w", err)
		}

		issue = &model.CouponIssue{
			ID:       uuid.New(),
			CouponID: couponID,
			UserID:   userID,
			IssuedAt: s.now(),
		}
		if err := s.couponRepo.CreateIssue(ctx, tx, issue); err != nil {
			if errors.Is(err, postgres.ErrUniqueViolation) {
				return ErrCouponAlreadyIssued
			}
			return fmt.Errorf("create issue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncCouponIssued()
	s.bus.Publish(event.EventCouponIssued, event.CouponIssuedPayload{
		CouponID: couponID.String(),
		IssueID:  issue.ID.String(),
		UserID:   userID.String(),
	})

	s.logger.Info("coupon issued",
		zap.String("coupon_id", couponID.String()),
		zap.String("user_id", userID.String()))

	return issue, nil
}

// ListMine returns the caller's issues together with the coupon
// definitions they point at.
func (s *CouponService) ListMine(ctx context.Context, userID uuid.UUID) ([]IssuedCoupon, error) {
	issues, err := s.couponRepo.ListIssuesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	coupons := make(map[uuid.UUID]*model.Coupon, len(issues))
	out := make([]IssuedCoupon, 0, len(issues))
	for _, issue := range issues {
		coupon, ok := coupons[issue.CouponID]
		if !ok {
			coupon, err = s.couponRepo.FindByID(ctx, issue.CouponID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			coupons[issue.CouponID] = coupon
		}
		out = append(out, IssuedCoupon{Issue: issue, Coupon: coupon})
	}
	return out, nil
}
