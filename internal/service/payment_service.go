package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront-hub/internal/event"
	"storefront-hub/internal/metrics"
	"storefront-hub/internal/model"
	"storefront-hub/internal/repository"
)

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentNotPending   = errors.New("payment is not pending")
	ErrPaymentNotOwned     = errors.New("payment belongs to another user")
	ErrPaymentAmountWrong  = errors.New("payment amount does not match order total")
	ErrInvalidPaymentInput = errors.New("invalid payment input")
)

type ConfirmPaymentRequest struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	PaymentKey string    `json:"payment_key"`
	Amount     int64     `json:"amount"`
}

type PaymentService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	pool        *pgxpool.Pool
	bus         *event.Bus
	logger      *zap.Logger

	withTx func(ctx context.Context, fn func(tx pgx.Tx) error) error
}

func NewPaymentService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	pool *pgxpool.Pool,
	bus *event.Bus,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := &PaymentService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		pool:        pool,
		bus:         bus,
		logger:      logger,
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

// Confirm records a successful gateway callback. The payment row lock
// makes confirmation idempotent-conflicting: a second confirm of the same
// payment sees a non-PENDING status and fails without touching the order.
func (s *PaymentService) Confirm(ctx context.Context, userID uuid.UUID, req ConfirmPaymentRequest) (*model.Payment, error) {
	req.PaymentKey = strings.TrimSpace(req.PaymentKey)
	if req.PaymentKey == "" {
		return nil, ErrInvalidPaymentInput
	}

	var payment *model.Payment
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		payment, err = s.orderRepo.FindPaymentByIDForUpdate(ctx, tx, req.PaymentID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return err
		}

		if payment.UserID != userID {
			return ErrPaymentNotOwned
		}
		if payment.Status != model.PaymentStatusPending {
			return ErrPaymentNotPending
		}
		if payment.Amount != req.Amount {
			return ErrPaymentAmountWrong
		}

		payment.Status = model.PaymentStatusConfirmed
		payment.PaymentKey = &req.PaymentKey
		if err := s.orderRepo.UpdatePaymentTx(ctx, tx, payment); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		return s.orderRepo.UpdateStatusTx(ctx, tx, payment.OrderID, model.OrderStatusCompleted)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncPayment("confirmed")
	s.bus.Publish(event.EventPaymentConfirmed, event.PaymentConfirmedPayload{
		PaymentID: payment.ID.String(),
		OrderID:   payment.OrderID.String(),
		UserID:    userID.String(),
		Amount:    payment.Amount,
	})

	s.logger.Info("payment confirmed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID.String()),
		zap.Int64("amount", payment.Amount))

	return payment, nil
}

// Cancel voids a pending payment and returns the reserved stock. The
// order moves to CANCELLED; redeemed coupons stay redeemed.
func (s *PaymentService) Cancel(ctx context.Context, userID, paymentID uuid.UUID) (*model.Payment, error) {
	var payment *model.Payment
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		payment, err = s.orderRepo.FindPaymentByIDForUpdate(ctx, tx, paymentID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return err
		}

		if payment.UserID != userID {
			return ErrPaymentNotOwned
		}
		if payment.Status != model.PaymentStatusPending {
			return ErrPaymentNotPending
		}

		order, err := s.orderRepo.FindByID(ctx, payment.OrderID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		for _, item := range order.Items {
			if err := s.productRepo.AdjustStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("restore stock: %w", err)
			}
		}

		payment.Status = model.PaymentStatusCancelled
		if err := s.orderRepo.UpdatePaymentTx(ctx, tx, payment); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		return s.orderRepo.UpdateStatusTx(ctx, tx, payment.OrderID, model.OrderStatusCancelled)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncPayment("cancelled")
	s.logger.Info("payment cancelled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID.String()))

	return payment, nil
}

// Fail records a gateway failure callback, keeping the order so the user
// can retry payment later; stock stays reserved until cancel.
func (s *PaymentService) Fail(ctx context.Context, userID, paymentID uuid.UUID) (*model.Payment, error) {
	var payment *model.Payment
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		payment, err = s.orderRepo.FindPaymentByIDForUpdate(ctx, tx, paymentID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return err
		}

		if payment.UserID != userID {
			return ErrPaymentNotOwned
		}
		if payment.Status != model.PaymentStatusPending {
			return ErrPaymentNotPending
		}

		payment.Status = model.PaymentStatusFailed
		if err := s.orderRepo.UpdatePaymentTx(ctx, tx, payment); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		return s.orderRepo.UpdateStatusTx(ctx, tx, payment.OrderID, model.OrderStatusFailed)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncPayment("failed")
	s.logger.Warn("payment failed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID.String()))

	return payment, nil
}

func (s *PaymentService) Get(ctx context.Context, userID, paymentID uuid.UUID, isAdmin bool) (*model.Payment, error) {
	payment, err := s.orderRepo.FindPaymentByID(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if !isAdmin && payment.UserID != userID {
		return nil, ErrPaymentNotOwned
	}
	return payment, nil
}

func (s *PaymentService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Payment, error) {
	return s.orderRepo.ListPaymentsByUser(ctx, userID)
}
