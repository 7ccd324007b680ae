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

type raffleRepository struct {
	pool *pgxpool.Pool
}

func NewRaffleRepository(pool *pgxpool.Pool) repository.RaffleRepository {
	return &raffleRepository{pool: pool}
}

var _ repository.RaffleRepository = (*raffleRepository)(nil)

const raffleColumns = `
	id,
	title,
	description,
	status,
	ticket_product_id,
	prize_product_id,
	winners_count,
	max_entries_per_user,
	entry_start_at,
	entry_end_at,
	draw_at,
	created_at,
	updated_at
`

func (r *raffleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1`
	raffle, err := scanRaffle(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return raffle, nil
}

func (r *raffleRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1 FOR UPDATE`
	raffle, err := scanRaffle(tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return raffle, nil
}

func (r *raffleRepository) Create(ctx context.Context, raffle *model.Raffle) error {
	if raffle.ID == uuid.Nil {
		raffle.ID = uuid.New()
	}
	now := time.Now().UTC()
	if raffle.CreatedAt.IsZero() {
		raffle.CreatedAt = now
	}
	raffle.UpdatedAt = now

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO raffles (
			id, title, description, status, ticket_product_id, prize_product_id,
			winners_count, max_entries_per_user, entry_start_at, entry_end_at,
			draw_at, created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13
		)`,
		raffle.ID,
		raffle.Title,
		raffle.Description,
		raffle.Status,
		raffle.TicketProductID,
		raffle.PrizeProductID,
		raffle.WinnersCount,
		raffle.MaxEntriesPerUser,
		raffle.EntryStartAt,
		raffle.EntryEndAt,
		raffle.DrawAt,
		raffle.CreatedAt,
		raffle.UpdatedAt,
	)
	return mapUniqueViolation(err)
}

func (r *raffleRepository) Update(ctx context.Context, raffle *model.Raffle) error {
	raffle.UpdatedAt = time.Now().UTC()

	tag, err := r.pool.Exec(
		ctx,
		`UPDATE raffles
		    SET title = $2,
		        description = $3,
		        ticket_product_id = $4,
		        prize_product_id = $5,
		        winners_count = $6,
		        max_entries_per_user = $7,
		        entry_start_at = $8,
		        entry_end_at = $9,
		        draw_at = $10,
		        updated_at = $11
		  WHERE id = $1`,
		raffle.ID,
		raffle.Title,
		raffle.Description,
		raffle.TicketProductID,
		raffle.PrizeProductID,
		raffle.WinnersCount,
		raffle.MaxEntriesPerUser,
		raffle.EntryStartAt,
		raffle.EntryEndAt,
		raffle.DrawAt,
		raffle.UpdatedAt,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return ensureAffected(tag)
}

func (r *raffleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.RaffleStatus) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE raffles SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id,
		from,
		to,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *raffleRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.RaffleStatus) error {
	tag, err := tx.Exec(
		ctx,
		`UPDATE raffles SET status = $2, updated_at = NOW() WHERE id = $1`,
		id,
		status,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *raffleRepository) List(ctx context.Context, filter repository.RaffleListFilter) ([]*model.Raffle, int64, error) {
	limit, offset := normalizePagination(filter.Pagination)

	args := make([]any, 0, 4)
	conditions := make([]string, 0, 2)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Keyword != nil {
		args = append(args, "%"+strings.TrimSpace(*filter.Keyword)+"%")
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM raffles`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := `SELECT ` + raffleColumns + ` FROM raffles` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	raffles := make([]*model.Raffle, 0, limit)
	for rows.Next() {
		raffle, scanErr := scanRaffle(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		raffles = append(raffles, raffle)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return raffles, total, nil
}

var lifecycleColumns = map[string]struct{}{
	"entry_start_at": {},
	"entry_end_at":   {},
	"draw_at":        {},
}

func (r *raffleRepository) ListByStatusBefore(
	ctx context.Context,
	status model.RaffleStatus,
	column string,
	ts time.Time,
	limit int32,
) ([]*model.Raffle, error) {
	if _, ok := lifecycleColumns[column]; !ok {
		return nil, fmt.Errorf("unsupported lifecycle column %q", column)
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+raffleColumns+`
		   FROM raffles
		  WHERE status = $1
		    AND `+column+` <= $2
		  ORDER BY `+column+` ASC
		  LIMIT $3`,
		status,
		ts,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	raffles := make([]*model.Raffle, 0, limit)
	for rows.Next() {
		raffle, scanErr := scanRaffle(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		raffles = append(raffles, raffle)
	}
	return raffles, rows.Err()
}

func (r *raffleRepository) CreateEntry(ctx context.Context, tx pgx.Tx, entry *model.RaffleEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	return tx.QueryRow(
		ctx,
		`INSERT INTO raffle_entries (raffle_id, user_id, count, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		entry.RaffleID,
		entry.UserID,
		entry.Count,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *raffleRepository) SumEntriesForUser(ctx context.Context, tx pgx.Tx, raffleID, userID uuid.UUID) (int, error) {
	var total int
	err := tx.QueryRow(
		ctx,
		`SELECT COALESCE(SUM(count), 0)
		   FROM raffle_entries
		  WHERE raffle_id = $1
		    AND user_id = $2`,
		raffleID,
		userID,
	).Scan(&total)
	return total, err
}

const participantProjection = `
	SELECT e.user_id,
	       u.name,
	       u.email,
	       SUM(e.count)::int AS total_count,
	       MIN(e.created_at) AS first_entry_at
	  FROM raffle_entries e
	  JOIN users u ON u.id = e.user_id
	 WHERE e.raffle_id = $1
	 GROUP BY e.user_id, u.name, u.email
`

func (r *raffleRepository) ListParticipants(
	ctx context.Context,
	raffleID uuid.UUID,
	page repository.Pagination,
) ([]*model.Participant, int64, error) {
	limit, offset := normalizePagination(page)

	var total int64
	if err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(DISTINCT user_id) FROM raffle_entries WHERE raffle_id = $1`,
		raffleID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(
		ctx,
		participantProjection+` ORDER BY first_entry_at ASC, e.user_id ASC LIMIT $2 OFFSET $3`,
		raffleID,
		limit,
		offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	participants, err := collectParticipants(rows, int(limit))
	if err != nil {
		return nil, 0, err
	}
	return participants, total, nil
}

// ListDistinctEntrants loads every distinct entrant inside the draw
// transaction, ordered by first entry time then user id so the
// all-entrants-win path assigns ranks deterministically.
func (r *raffleRepository) ListDistinctEntrants(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) ([]*model.Participant, error) {
	rows, err := tx.Query(
		ctx,
		participantProjection+` ORDER BY first_entry_at ASC, e.user_id ASC`,
		raffleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectParticipants(rows, 64)
}

func (r *raffleRepository) ListEntriesByUser(
	ctx context.Context,
	userID uuid.UUID,
	page repository.Pagination,
) ([]*model.RaffleEntry, int64, error) {
	limit, offset := normalizePagination(page)

	var total int64
	if err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM raffle_entries WHERE user_id = $1`,
		userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, raffle_id, user_id, count, created_at
		   FROM raffle_entries
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

	entries := make([]*model.RaffleEntry, 0, limit)
	for rows.Next() {
		entry := &model.RaffleEntry{}
		if scanErr := rows.Scan(&entry.ID, &entry.RaffleID, &entry.UserID, &entry.Count, &entry.CreatedAt); scanErr != nil {
			return nil, 0, scanErr
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *raffleRepository) CreateWinners(ctx context.Context, tx pgx.Tx, winners []*model.RaffleWinner) error {
	if len(winners) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, winner := range winners {
		batch.Queue(
			`INSERT INTO raffle_winners (raffle_id, user_id, rank, drawn_at)
			 VALUES ($1, $2, $3, $4)`,
			winner.RaffleID,
			winner.UserID,
			winner.Rank,
			winner.DrawnAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close() //nolint:errcheck

	for range winners {
		if _, err := results.Exec(); err != nil {
			return mapUniqueViolation(err)
		}
	}
	return nil
}

func (r *raffleRepository) ListWinners(
	ctx context.Context,
	raffleID uuid.UUID,
) ([]*model.Participant, []*model.RaffleWinner, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT w.raffle_id,
		        w.user_id,
		        w.rank,
		        w.drawn_at,
		        u.name,
		        u.email
		   FROM raffle_winners w
		   JOIN users u ON u.id = w.user_id
		  WHERE w.raffle_id = $1
		  ORDER BY w.rank ASC`,
		raffleID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	participants := make([]*model.Participant, 0, 8)
	winners := make([]*model.RaffleWinner, 0, 8)
	for rows.Next() {
		winner := &model.RaffleWinner{}
		participant := &model.Participant{}
		if scanErr := rows.Scan(
			&winner.RaffleID,
			&winner.UserID,
			&winner.Rank,
			&winner.DrawnAt,
			&participant.Name,
			&participant.Email,
		); scanErr != nil {
			return nil, nil, scanErr
		}
		participant.UserID = winner.UserID
		participants = append(participants, participant)
		winners = append(winners, winner)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return participants, winners, nil
}

func collectParticipants(rows pgx.Rows, hint int) ([]*model.Participant, error) {
	participants := make([]*model.Participant, 0, hint)
	for rows.Next() {
		participant := &model.Participant{}
		if err := rows.Scan(
			&participant.UserID,
			&participant.Name,
			&participant.Email,
			&participant.TotalCount,
			&participant.FirstEntryAt,
		); err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	return participants, rows.Err()
}

func scanRaffle(src rowScanner) (*model.Raffle, error) {
	raffle := &model.Raffle{}
	if err := src.Scan(
		&raffle.ID,
		&raffle.Title,
		&raffle.Description,
		&raffle.Status,
		&raffle.TicketProductID,
		&raffle.PrizeProductID,
		&raffle.WinnersCount,
		&raffle.MaxEntriesPerUser,
		&raffle.EntryStartAt,
		&raffle.EntryEndAt,
		&raffle.DrawAt,
		&raffle.CreatedAt,
		&raffle.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return raffle, nil
}
