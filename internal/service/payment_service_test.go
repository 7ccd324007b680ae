package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"storefront-hub/internal/event"
	"storefront-hub/internal/model"
)

func newUnitPaymentService(orderRepo *fakeOrderRepo, productRepo *fakeProductRepo) *PaymentService {
	svc := NewPaymentService(orderRepo, productRepo, nil, event.NewBus(), zap.NewNop())
	svc.withTx = func(ctx context.Context, fn func(tx pgx.Tx) error) error {
		return fn(nil)
	}
	return svc
}

func pendingPayment(userID uuid.UUID, amount int64) *model.Payment {
	return &model.Payment{
		ID:      uuid.New(),
		OrderID: uuid.New(),
		UserID:  userID,
		Amount:  amount,
		Status:  model.PaymentStatusPending,
	}
}

func TestConfirm_MarksPaymentAndCompletesOrder(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	payment := pendingPayment(userID, 9000)

	var savedPayment *model.Payment
	var orderStatus model.OrderStatus
	orderRepo := &fakeOrderRepo{
		findPaymentByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Payment, error) {
			return payment, nil
		},
		updatePaymentTxFn: func(_ context.Context, _ pgx.Tx, p *model.Payment) error {
			savedPayment = p
			return nil
		},
		updateStatusTxFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID, status model.OrderStatus) error {
			orderStatus = status
			return nil
		},
	}

	svc := newUnitPaymentService(orderRepo, &fakeProductRepo{})

	got, err := svc.Confirm(context.Background(), userID, ConfirmPaymentRequest{
		PaymentID:  payment.ID,
		PaymentKey: "pg-key-123",
		Amount:     9000,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if got.Status != model.PaymentStatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", got.Status)
	}
	if savedPayment == nil || savedPayment.PaymentKey == nil || *savedPayment.PaymentKey != "pg-key-123" {
		t.Fatalf("payment key not recorded: %+v", savedPayment)
	}
	if orderStatus != model.OrderStatusCompleted {
		t.Fatalf("order should be COMPLETED, got %s", orderStatus)
	}
}

func TestConfirm_SecondConfirmRejected(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	payment := pendingPayment(userID, 9000)
	payment.Status = model.PaymentStatusConfirmed

	orderRepo := &fakeOrderRepo{
		findPaymentByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Payment, error) {
			return payment, nil
		},
	}

	svc := newUnitPaymentService(orderRepo, &fakeProductRepo{})

	_, err := svc.Confirm(context.Background(), userID, ConfirmPaymentRequest{
		PaymentID:  payment.ID,
		PaymentKey: "pg-key-123",
		Amount:     9000,
	})
	if !errors.Is(err, ErrPaymentNotPending) {
		t.Fatalf("expected ErrPaymentNotPending, got %v", err)
	}
}

func TestConfirm_Guards(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	cases := []struct {
		name    string
		payment func() *model.Payment
		req     ConfirmPaymentRequest
		caller  uuid.UUID
		wantErr error
	}{
		{
			name:    "empty payment key",
			payment: func() *model.Payment { return pendingPayment(userID, 100) },
			req:     ConfirmPaymentRequest{PaymentKey: "   ", Amount: 100},
			caller:  userID,
			wantErr: ErrInvalidPaymentInput,
		},
		{
			name:    "foreign payment",
			payment: func() *model.Payment { return pendingPayment(uuid.New(), 100) },
			req:     ConfirmPaymentRequest{PaymentKey: "key", Amount: 100},
			caller:  userID,
			wantErr: ErrPaymentNotOwned,
		},
		{
			name:    "amount mismatch",
			payment: func() *model.Payment { return pendingPayment(userID, 100) },
			req:     ConfirmPaymentRequest{PaymentKey: "key", Amount: 99},
			caller:  userID,
			wantErr: ErrPaymentAmountWrong,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			payment := tc.payment()
			orderRepo := &fakeOrderRepo{
				findPaymentByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Payment, error) {
					return payment, nil
				},
			}
			svc := newUnitPaymentService(orderRepo, &fakeProductRepo{})

			req := tc.req
			req.PaymentID = payment.ID
			if _, err := svc.Confirm(context.Background(), tc.caller, req); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCancel_RestoresStockPerItem(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	payment := pendingPayment(userID, 4500)

	productA := uuid.New()
	productB := uuid.New()
	order := &model.Order{
		ID:     payment.OrderID,
		UserID: userID,
		Items: []model.OrderItem{
			{ProductID: productA, Quantity: 2},
			{ProductID: productB, Quantity: 1},
		},
	}

	restored := map[uuid.UUID]int{}
	var orderStatus model.OrderStatus
	orderRepo := &fakeOrderRepo{
		findPaymentByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Payment, error) {
			return payment, nil
		},
		findByIDFn: func(_ context.Context, _ uuid.UUID) (*model.Order, error) {
			return order, nil
		},
		updatePaymentTxFn: func(context.Context, pgx.Tx, *model.Payment) error { return nil },
		updateStatusTxFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID, status model.OrderStatus) error {
			orderStatus = status
			return nil
		},
	}
	productRepo := &fakeProductRepo{
		adjustStockFn: func(_ context.Context, _ pgx.Tx, id uuid.UUID, delta int) error {
			restored[id] += delta
			return nil
		},
	}

	svc := newUnitPaymentService(orderRepo, productRepo)

	got, err := svc.Cancel(context.Background(), userID, payment.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != model.PaymentStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", got.Status)
	}
	if restored[productA] != 2 || restored[productB] != 1 {
		t.Fatalf("stock not restored per line: %v", restored)
	}
	if orderStatus != model.OrderStatusCancelled {
		t.Fatalf("order should be CANCELLED, got %s", orderStatus)
	}
}

func TestFail_KeepsStockReserved(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	payment := pendingPayment(userID, 4500)

	var orderStatus model.OrderStatus
	orderRepo := &fakeOrderRepo{
		findPaymentByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Payment, error) {
			return payment, nil
		},
		updatePaymentTxFn: func(context.Context, pgx.Tx, *model.Payment) error { return nil },
		updateStatusTxFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID, status model.OrderStatus) error {
			orderStatus = status
			return nil
		},
	}

	// The product fake has no adjustStockFn wired; any stock touch fails
	// the test via errUnexpectedCall.
	svc := newUnitPaymentService(orderRepo, &fakeProductRepo{})

	got, err := svc.Fail(context.Background(), userID, payment.ID)
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if got.Status != model.PaymentStatusFailed {
		t.Fatalf("expected FAILED, got %s", got.Status)
	}
	if orderStatus != model.OrderStatusFailed {
		t.Fatalf("order should be FAILED, got %s", orderStatus)
	}
}
