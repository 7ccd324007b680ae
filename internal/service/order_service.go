package service

import (
	"context"
	"errors"
	"fmt"
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
	ErrOrderNotFound           = errors.New("order not found")
	ErrCartEmpty               = errors.New("cart is empty")
	ErrStockExhausted          = errors.New("product stock exhausted")
	ErrCouponIssueNotFound     = errors.New("coupon issue not found")
	ErrCouponIssueNotOwned     = errors.New("coupon issue belongs to another user")
	ErrCouponAlreadyRedeemed   = errors.New("coupon issue already redeemed")
	ErrOrderAccessDenied       = errors.New("order belongs to another user")
)

type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	couponRepo  repository.CouponRepository
	cartRepo    repository.CartRepository
	pool        *pgxpool.Pool
	bus         *event.Bus
	logger      *zap.Logger

	withTx func(ctx context.Context, fn func(tx pgx.Tx) error) error
	now    func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	couponRepo repository.CouponRepository,
	cartRepo repository.CartRepository,
	pool *pgxpool.Pool,
	bus *event.Bus,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		couponRepo:  couponRepo,
		cartRepo:    cartRepo,
		pool:        pool,
		bus:         bus,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
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

// Checkout turns the user's cart into an order. Line items snapshot the
// product name and price, stock is decremented per line, the coupon issue
// (if any) is redeemed, and a PENDING payment is created, all in one
// transaction. The cart is cleared only after commit.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, couponIssueID *uuid.UUID) (*model.Order, *model.Payment, error) {
	items, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, nil, ErrCartEmpty
	}

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	var subtotal int64
	orderItems := make([]model.OrderItem, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok || !product.IsActive {
			return nil, nil, ErrProductUnavailable
		}
		subtotal += product.Price * int64(item.Quantity)
		orderItems = append(orderItems, model.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    item.Quantity,
		})
	}

	var order *model.Order
	var payment *model.Payment
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		var coupon *model.Coupon
		if couponIssueID != nil {
			issue, err := s.couponRepo.FindIssueByID(ctx, *couponIssueID)
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCouponIssueNotFound
			}
			if err != nil {
				return err
			}
			if issue.UserID != userID {
				return ErrCouponIssueNotOwned
			}
			if issue.RedeemedAt != nil {
				return ErrCouponAlreadyRedeemed
			}

			coupon, err = s.couponRepo.FindByID(ctx, issue.CouponID)
			if err != nil {
				return fmt.Errorf("load coupon: %w", err)
			}
			// An issue held since before the coupon was deactivated or
			// expired must not discount the order.
			if !coupon.IsActive {
				return ErrCouponInactive
			}
			if coupon.ExpiresAt != nil && s.now().After(*coupon.ExpiresAt) {
				return ErrCouponExpired
			}

			if err := s.couponRepo.MarkIssueRedeemed(ctx, tx, issue.ID, s.now()); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrCouponAlreadyRedeemed
				}
				return fmt.Errorf("redeem coupon: %w", err)
			}
		}

		breakdown, err := ComputeTotal(subtotal, coupon)
		if err != nil {
			return err
		}

		for _, item := range orderItems {
			if err := s.productRepo.AdjustStock(ctx, tx, item.ProductID, -item.Quantity); err != nil {
				if errors.Is(err, postgres.ErrInsufficientStock) {
					return ErrStockExhausted
				}
				return fmt.Errorf("reserve stock: %w", err)
			}
		}

		order = &model.Order{
			ID:            uuid.New(),
			UserID:        userID,
			Subtotal:      breakdown.Subtotal,
			Discount:      breakdown.Discount,
			Total:         breakdown.Total,
			CouponIssueID: couponIssueID,
			Status:        model.OrderStatusPending,
			Items:         orderItems,
		}
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		payment = &model.Payment{
			ID:      uuid.New(),
			OrderID: order.ID,
			UserID:  userID,
			Amount:  order.Total,
			Status:  model.PaymentStatusPending,
		}
		return s.orderRepo.CreatePayment(ctx, tx, payment)
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.cartRepo.Clear(ctx, userID); err != nil {
		// The order is committed; a stale cart is an annoyance, not a loss.
		s.logger.Warn("cart clear after checkout failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	metrics.IncOrderCreated(order.Total)
	s.bus.Publish(event.EventOrderCreated, event.OrderCreatedPayload{
		OrderID: order.ID.String(),
		UserID:  userID.String(),
		Total:   order.Total,
	})

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int64("subtotal", order.Subtotal),
		zap.Int64("discount", order.Discount),
		zap.Int64("total", order.Total))

	return order, payment, nil
}

func (s *OrderService) Get(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func (s *OrderService) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	page repository.Pagination,
) ([]*model.Order, int64, error) {
	return s.orderRepo.ListByUser(ctx, userID, page)
}
