package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-hub/internal/model"
	"storefront-hub/internal/repository"
)

// ErrQuantityExhausted is returned by DecrementQuantity when a finite
// coupon supply has run out.
var ErrQuantityExhausted = errors.New("coupon quantity exhausted")

type couponRepository struct {
	pool *pgxpool.Pool
}

func NewCouponRepository(pool *pgxpool.Pool) repository.CouponRepository {
	return &couponRepository{pool: pool}
}

var _ repository.CouponRepository = (*couponRepository)(nil)

const couponColumns = `
	id,
	name,
	description,
	kind,
	value,
	quantity,
	expires_at,
	is_active,
	created_at,
	updated_at
`

const couponIssueColumns = `
	id,
	coupon_id,
	user_id,
	issued_at,
	redeemed_at
`

func (r *couponRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

func (r *couponRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 FOR UPDATE`
	coupon, err := scanCoupon(tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

func (r *couponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	now := time.Now().UTC()
	if coupon.CreatedAt.IsZero() {
		coupon.CreatedAt = now
	}
	coupon.UpdatedAt = now

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO coupons (id, name, description, kind, value, quantity, expires_at, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		coupon.ID,
		coupon.Name,
		coupon.Description,
		coupon.Kind,
		coupon.Value,
		coupon.Quantity,
		coupon.ExpiresAt,
		coupon.IsActive,
		coupon.CreatedAt,
		coupon.UpdatedAt,
	)
	return err
}

func (r *couponRepository) Update(ctx context.Context, coupon *model.Coupon) error {
	coupon.UpdatedAt = time.Now().UTC()

	tag, err := r.pool.Exec(
		ctx,
		`UPDATE coupons
		    SET name = $2,
		        description = $3,
		        kind = $4,
		        value = $5,
		        quantity = $6,
		        expires_at = $7,
		        is_active = $8,
		        updated_at = $9
		  WHERE id = $1`,
		coupon.ID,
		coupon.Name,
		coupon.Description,
		coupon.Kind,
		coupon.Value,
		coupon.Quantity,
		coupon.ExpiresAt,
		coupon.IsActive,
		coupon.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

// Deactivate soft-deletes the coupon. Issued coupons must stay resolvable
// for historical orders, so rows are never removed.
func (r *couponRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE coupons SET is_active = FALSE, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *couponRepository) List(ctx context.Context, page repository.Pagination) ([]*model.Coupon, int64, error) {
	limit, offset := normalizePagination(page)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons WHERE is_active = TRUE`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+couponColumns+`
		   FROM coupons
		  WHERE is_active = TRUE
		  ORDER BY created_at DESC
		  LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	coupons := make([]*model.Coupon, 0, limit)
	for rows.Next() {
		coupon, scanErr := scanCoupon(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		coupons = append(coupons, coupon)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return coupons, total, nil
}

func (r *couponRepository) DecrementQuantity(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	// Negative quantity means unlimited; only finite supplies decrement.
	tag, err := tx.Exec(
		ctx,
		`UPDATE coupons
		    SET quantity = quantity - 1,
		        updated_at = NOW()
		  WHERE id = $1
		    AND quantity > 0`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var quantity int64
		if scanErr := tx.QueryRow(ctx, `SELECT quantity FROM coupons WHERE id = $1`, id).Scan(&quantity); scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return scanErr
		}
		if quantity == 0 {
			return ErrQuantityExhausted
		}
	}
	return nil
}

func (r *couponRepository) CreateIssue(ctx context.Context, tx pgx.Tx, issue *model.CouponIssue) error {
	if issue.ID == uuid.Nil {
		issue.ID = uuid.New()
	}
	if issue.IssuedAt.IsZero() {
		issue.IssuedAt = time.Now().UTC()
	}

	_, err := tx.Exec(
		ctx,
		`INSERT INTO coupon_issues (id, coupon_id, user_id, issued_at, redeemed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		issue.ID,
		issue.CouponID,
		issue.UserID,
		issue.IssuedAt,
		issue.RedeemedAt,
	)
	return mapUniqueViolation(err)
}

func (r *couponRepository) FindIssueByID(ctx context.Context, id uuid.UUID) (*model.CouponIssue, error) {
	query := `SELECT ` + couponIssueColumns + ` FROM coupon_issues WHERE id = $1`
	issue, err := scanCouponIssue(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (r *couponRepository) HasUnredeemedIssue(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(
		ctx,
		`SELECT EXISTS(
		    SELECT 1 FROM coupon_issues
		     WHERE coupon_id = $1
		       AND user_id = $2
		       AND redeemed_at IS NULL
		 )`,
		couponID,
		userID,
	).Scan(&exists)
	return exists, err
}

func (r *couponRepository) MarkIssueRedeemed(ctx context.Context, tx pgx.Tx, issueID uuid.UUID, redeemedAt time.Time) error {
	tag, err := tx.Exec(
		ctx,
		`UPDATE coupon_issues
		    SET redeemed_at = $2
		  WHERE id = $1
		    AND redeemed_at IS NULL`,
		issueID,
		redeemedAt,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *couponRepository) ListIssuesByUser(ctx context.Context, userID uuid.UUID) ([]*model.CouponIssue, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+couponIssueColumns+`
		   FROM coupon_issues
		  WHERE user_id = $1
		  ORDER BY issued_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	issues := make([]*model.CouponIssue, 0, 8)
	for rows.Next() {
		issue, scanErr := scanCouponIssue(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func scanCoupon(src rowScanner) (*model.Coupon, error) {
	coupon := &model.Coupon{}
	if err := src.Scan(
		&coupon.ID,
		&coupon.Name,
		&coupon.Description,
		&coupon.Kind,
		&coupon.Value,
		&coupon.Quantity,
		&coupon.ExpiresAt,
		&coupon.IsActive,
		&coupon.CreatedAt,
		&coupon.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return coupon, nil
}

func scanCouponIssue(src rowScanner) (*model.CouponIssue, error) {
	issue := &model.CouponIssue{}
	if err := src.Scan(
		&issue.ID,
		&issue.CouponID,
		&issue.UserID,
		&issue.IssuedAt,
		&issue.RedeemedAt,
	); err != nil {
		return nil, err
	}
	return issue, nil
}
