package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"storefront-hub/internal/repository"
)

var ErrNotFound = repository.ErrNotFound

// ErrUniqueViolation wraps Postgres error 23505 so services can map it to a
// domain conflict without importing pgconn.
var ErrUniqueViolation = errors.New("unique constraint violation")

type rowScanner interface {
	Scan(dest ...any) error
}

func normalizePagination(page repository.Pagination) (int32, int32) {
	limit := page.Limit
	offset := page.Offset

	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

func ensureAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUniqueViolation
	}
	return err
}
