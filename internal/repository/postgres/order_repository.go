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

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) repository.OrderRepository {
	return &orderRepository{pool: pool}
}

var _ repository.OrderRepository = (*orderRepository)(nil)

const orderColumns = `
	id,
	user_id,
	subtotal,
	discount,
	total,
	coupon_issue_id,
	status,
	created_at,
	updated_at
`

const paymentColumns = `
	id,
	order_id,
	user_id,
	amount,
	status,
	payment_key,
	created_at,
	updated_at
`

func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	_, err := tx.Exec(
		ctx,
		`INSERT INTO orders (id, user_id, subtotal, discount, total, coupon_issue_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		order.ID,
		order.UserID,
		order.Subtotal,
		order.Discount,
		order.Total,
		order.CouponIssueID,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.QueryRow(
			ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.UnitPrice,
			item.Quantity,
		).Scan(&item.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.loadItems(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return order, nil
}

func (r *orderRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) error {
	tag, err := tx.Exec(
		ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`,
		id,
		status,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *orderRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	page repository.Pagination,
) ([]*model.Order, int64, error) {
	limit, offset := normalizePagination(page)

	var total int64
	if err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1`,
		userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+orderColumns+`
		   FROM orders
		  WHERE user_id = $1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		userID,
		limit,
		offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]*model.Order, 0, limit)
	ids := make([]uuid.UUID, 0, limit)
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, order := range orders {
		order.Items = items[order.ID]
	}

	return orders, total, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]model.OrderItem, error) {
	result := make(map[uuid.UUID][]model.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, order_id, product_id, product_name, unit_price, quantity
		   FROM order_items
		  WHERE order_id = ANY($1)
		  ORDER BY id ASC`,
		orderIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if scanErr := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.UnitPrice,
			&item.Quantity,
		); scanErr != nil {
			return nil, scanErr
		}
		result[item.OrderID] = append(result[item.OrderID], item)
	}
	return result, rows.Err()
}

func (r *orderRepository) CreatePayment(ctx context.Context, tx pgx.Tx, payment *model.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	_, err := tx.Exec(
		ctx,
		`INSERT INTO payments (id, order_id, user_id, amount, status, payment_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		payment.ID,
		payment.OrderID,
		payment.UserID,
		payment.Amount,
		payment.Status,
		payment.PaymentKey,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	return mapUniqueViolation(err)
}

func (r *orderRepository) FindPaymentByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	payment, err := scanPayment(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *orderRepository) FindPaymentByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	payment, err := scanPayment(tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *orderRepository) UpdatePaymentTx(ctx context.Context, tx pgx.Tx, payment *model.Payment) error {
	payment.UpdatedAt = time.Now().UTC()

	tag, err := tx.Exec(
		ctx,
		`UPDATE payments
		    SET status = $2,
		        payment_key = $3,
		        updated_at = $4
		  WHERE id = $1`,
		payment.ID,
		payment.Status,
		payment.PaymentKey,
		payment.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *orderRepository) ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]*model.Payment, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+paymentColumns+`
		   FROM payments
		  WHERE user_id = $1
		  ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*model.Payment, 0, 8)
	for rows.Next() {
		payment, scanErr := scanPayment(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanOrder(src rowScanner) (*model.Order, error) {
	order := &model.Order{}
	if err := src.Scan(
		&order.ID,
		&order.UserID,
		&order.Subtotal,
		&order.Discount,
		&order.Total,
		&order.CouponIssueID,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return order, nil
}

func scanPayment(src rowScanner) (*model.Payment, error) {
	payment := &model.Payment{}
	if err := src.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.UserID,
		&payment.Amount,
		&payment.Status,
		&payment.PaymentKey,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return payment, nil
}
