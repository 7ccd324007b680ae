package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-hub/internal/model"
	"storefront-hub/internal/repository"
)

// ErrInsufficientStock is returned by AdjustStock when the decrement would
// drive the stock below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

type productRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) repository.ProductRepository {
	return &productRepository{pool: pool}
}

var _ repository.ProductRepository = (*productRepository)(nil)

const productColumns = `
	id,
	name,
	description,
	price,
	stock,
	category,
	is_active,
	created_at,
	updated_at
`

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]*model.Product, 0, len(ids))
	for rows.Next() {
		product, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO products (id, name, description, price, stock, category, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.Category,
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	)
	return err
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	product.UpdatedAt = time.Now().UTC()

	tag, err := r.pool.Exec(
		ctx,
		`UPDATE products
		    SET name = $2,
		        description = $3,
		        price = $4,
		        stock = $5,
		        category = $6,
		        is_active = $7,
		        updated_at = $8
		  WHERE id = $1`,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.Category,
		product.IsActive,
		product.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *productRepository) AdjustStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error {
	tag, err := tx.Exec(
		ctx,
		`UPDATE products
		    SET stock = stock + $2,
		        updated_at = NOW()
		  WHERE id = $1
		    AND stock + $2 >= 0`,
		id,
		delta,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the product is missing or the decrement would go negative.
		var exists bool
		if scanErr := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); scanErr != nil {
			return scanErr
		}
		if !exists {
			return ErrNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *productRepository) List(ctx context.Context, filter repository.ProductListFilter) ([]*model.Product, int64, error) {
	limit, offset := normalizePagination(filter.Pagination)

	args := make([]any, 0, 5)
	conditions := make([]string, 0, 3)

	if filter.Category != nil {
		args = append(args, *filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if filter.Keyword != nil {
		args = append(args, "%"+strings.TrimSpace(*filter.Keyword)+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := `SELECT COUNT(*) FROM products` + where
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := `SELECT ` + productColumns + ` FROM products` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]*model.Product, 0, limit)
	for rows.Next() {
		product, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func scanProduct(src rowScanner) (*model.Product, error) {
	product := &model.Product{}
	if err := src.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.Category,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return product, nil
}
