package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"storefront-hub/internal/model"
)

var ErrNotFound = errors.New("record not found")

type Pagination struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

type ProductListFilter struct {
	Category   *model.ProductCategory `json:"category,omitempty"`
	IsActive   *bool                  `json:"is_active,omitempty"`
	Keyword    *string                `json:"keyword,omitempty"`
	Pagination Pagination             `json:"pagination"`
}

type RaffleListFilter struct {
	Status     *model.RaffleStatus `json:"status,omitempty"`
	Keyword    *string             `json:"keyword,omitempty"`
	Pagination Pagination          `json:"pagination"`
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
}

type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Product, error)
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	// AdjustStock atomically adds delta to the stock of the product inside
	// tx, failing when the result would go negative.
	AdjustStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ProductListFilter) ([]*model.Product, int64, error)
}

type CouponRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	// FindByIDForUpdate locks the coupon row inside tx so concurrent
	// issuance requests for the same coupon serialize.
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Coupon, error)
	Create(ctx context.Context, coupon *model.Coupon) error
	Update(ctx context.Context, coupon *model.Coupon) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, page Pagination) ([]*model.Coupon, int64, error)

	DecrementQuantity(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	CreateIssue(ctx context.Context, tx pgx.Tx, issue *model.CouponIssue) error
	FindIssueByID(ctx context.Context, id uuid.UUID) (*model.CouponIssue, error)
	HasUnredeemedIssue(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) (bool, error)
	MarkIssueRedeemed(ctx context.Context, tx pgx.Tx, issueID uuid.UUID, redeemedAt time.Time) error
	ListIssuesByUser(ctx context.Context, userID uuid.UUID) ([]*model.CouponIssue, error)
}

type RaffleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Raffle, error)
	// FindByIDForUpdate locks the raffle row inside tx; entry submission
	// and the draw both serialize on this lock.
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Raffle, error)
	Create(ctx context.Context, raffle *model.Raffle) error
	Update(ctx context.Context, raffle *model.Raffle) error
	// UpdateStatus moves the raffle from one status to another as a single
	// compare-and-swap; ErrNotFound means the row is gone or no longer in
	// the expected status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.RaffleStatus) error
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.RaffleStatus) error
	List(ctx context.Context, filter RaffleListFilter) ([]*model.Raffle, int64, error)
	// ListByStatusBefore returns raffles in the given status whose cutoff
	// column (entry_start_at, entry_end_at or draw_at) lies before ts.
	ListByStatusBefore(ctx context.Context, status model.RaffleStatus, column string, ts time.Time, limit int32) ([]*model.Raffle, error)

	CreateEntry(ctx context.Context, tx pgx.Tx, entry *model.RaffleEntry) error
	SumEntriesForUser(ctx context.Context, tx pgx.Tx, raffleID, userID uuid.UUID) (int, error)
	ListParticipants(ctx context.Context, raffleID uuid.UUID, page Pagination) ([]*model.Participant, int64, error)
	ListDistinctEntrants(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) ([]*model.Participant, error)
	ListEntriesByUser(ctx context.Context, userID uuid.UUID, page Pagination) ([]*model.RaffleEntry, int64, error)

	CreateWinners(ctx context.Context, tx pgx.Tx, winners []*model.RaffleWinner) error
	ListWinners(ctx context.Context, raffleID uuid.UUID) ([]*model.Participant, []*model.RaffleWinner, error)
}

type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) error
	ListByUser(ctx context.Context, userID uuid.UUID, page Pagination) ([]*model.Order, int64, error)

	CreatePayment(ctx context.Context, tx pgx.Tx, payment *model.Payment) error
	FindPaymentByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	FindPaymentByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Payment, error)
	UpdatePaymentTx(ctx context.Context, tx pgx.Tx, payment *model.Payment) error
	ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]*model.Payment, error)
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
}

// CartRepository is the per-user cart store. The backing implementation is
// Redis; quantities merge on add and drop out at zero.
type CartRepository interface {
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (int, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	Get(ctx context.Context, userID uuid.UUID) ([]model.CartItem, error)
	Remove(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// RefreshTokenStore keeps opaque refresh tokens with a TTL keyed by user.
type RefreshTokenStore interface {
	Save(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (uuid.UUID, error)
	Revoke(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}
