package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
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
	"storefront-hub/internal/sse"
)

var (
	ErrRaffleNotFound        = errors.New("raffle not found")
	ErrInvalidRaffleInput    = errors.New("invalid raffle input")
	ErrInvalidTransition     = errors.New("status transition not allowed")
	ErrRaffleNotActive       = errors.New("raffle is not accepting entries")
	ErrEntryWindowClosed     = errors.New("entry window is closed")
	ErrEntryLimitExceeded    = errors.New("entry limit exceeded")
	ErrTicketStockExhausted  = errors.New("ticket stock exhausted")
	ErrRaffleNotClosed       = errors.New("raffle must be closed before drawing")
	ErrRaffleAlreadyDrawn    = errors.New("raffle already drawn")
	ErrNoEntrants            = errors.New("raffle has no entrants")
	ErrRaffleNotDrawn        = errors.New("raffle has not been drawn")
	ErrRaffleNotEditable     = errors.New("raffle can only be edited while in draft")
	ErrInvalidRaffleSchedule = errors.New("raffle schedule out of order")
)

type CreateRaffleRequest struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	TicketProductID   *uuid.UUID `json:"ticket_product_id"`
	PrizeProductID    *uuid.UUID `json:"prize_product_id"`
	WinnersCount      int        `json:"winners_count"`
	MaxEntriesPerUser int        `json:"max_entries_per_user"`
	EntryStartAt      time.Time  `json:"entry_start_at"`
	EntryEndAt        time.Time  `json:"entry_end_at"`
	DrawAt            time.Time  `json:"draw_at"`
}

type RaffleService struct {
	raffleRepo  repository.RaffleRepository
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	pool        *pgxpool.Pool
	bus         *event.Bus
	sseHub      *sse.SSEHub
	logger      *zap.Logger

	// shuffle and withTx are swapped out in tests for deterministic draws
	// without a live pool.
	shuffle func(n int, swap func(i, j int))
	withTx  func(ctx context.Context, fn func(tx pgx.Tx) error) error
	now     func() time.Time
}

func NewRaffleService(
	raffleRepo repository.RaffleRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	pool *pgxpool.Pool,
	bus *event.Bus,
	sseHub *sse.SSEHub,
	logger *zap.Logger,
) *RaffleService {
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := &RaffleService{
		raffleRepo:  raffleRepo,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		pool:        pool,
		bus:         bus,
		sseHub:      sseHub,
		logger:      logger,
		shuffle:     rand.Shuffle,
		now:         func() time.Time { return time.Now().UTC() },
	}
	svc.withTx = svc.poolTx
	return svc
}

func (s *RaffleService) poolTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *RaffleService) Create(ctx context.Context, req CreateRaffleRequest) (*model.Raffle, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.WinnersCount <= 0 || req.MaxEntriesPerUser <= 0 {
		return nil, ErrInvalidRaffleInput
	}
	if !req.EntryStartAt.Before(req.EntryEndAt) || req.DrawAt.Before(req.EntryEndAt) {
		return nil, ErrInvalidRaffleSchedule
	}

	raffle := &model.Raffle{
		ID:                uuid.New(),
		Title:             req.Title,
		Description:       strings.TrimSpace(req.Description),
		Status:            model.RaffleStatusDraft,
		TicketProductID:   req.TicketProductID,
		PrizeProductID:    req.PrizeProductID,
		WinnersCount:      req.WinnersCount,
		MaxEntriesPerUser: req.MaxEntriesPerUser,
		EntryStartAt:      req.EntryStartAt.UTC(),
		EntryEndAt:        req.EntryEndAt.UTC(),
		DrawAt:            req.DrawAt.UTC(),
	}

	if err := s.raffleRepo.Create(ctx, raffle); err != nil {
		return nil, fmt.Errorf("create raffle: %w", err)
	}

	s.logger.Info("raffle created",
		zap.String("raffle_id", raffle.ID.String()),
		zap.String("title", raffle.Title))

	return raffle, nil
}

func (s *RaffleService) Get(ctx context.Context, id uuid.UUID) (*model.Raffle, error) {
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRaffleNotFound
	}
	return raffle, err
}

func (s *RaffleService) List(ctx context.Context, filter repository.RaffleListFilter) ([]*model.Raffle, int64, error) {
	return s.raffleRepo.List(ctx, filter)
}

// Update edits raffle parameters. Only DRAFT raffles are editable; once a
// raffle is published the schedule and limits are frozen.
func (s *RaffleService) Update(ctx context.Context, id uuid.UUID, req CreateRaffleRequest) (*model.Raffle, error) {
	raffle, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if raffle.Status != model.RaffleStatusDraft {
		return nil, ErrRaffleNotEditable
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.WinnersCount <= 0 || req.MaxEntriesPerUser <= 0 {
		return nil, ErrInvalidRaffleInput
	}
	if !req.EntryStartAt.Before(req.EntryEndAt) || req.DrawAt.Before(req.EntryEndAt) {
		return nil, ErrInvalidRaffleSchedule
	}

	raffle.Title = req.Title
	raffle.Description = strings.TrimSpace(req.Description)
	raffle.TicketProductID = req.TicketProductID
	raffle.PrizeProductID = req.PrizeProductID
	raffle.WinnersCount = req.WinnersCount
	raffle.MaxEntriesPerUser = req.MaxEntriesPerUser
	raffle.EntryStartAt = req.EntryStartAt.UTC()
	raffle.EntryEndAt = req.EntryEndAt.UTC()
	raffle.DrawAt = req.DrawAt.UTC()

	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("update raffle: %w", err)
	}
	return raffle, nil
}

// UpdateStatus applies an admin status transition. The transition table
// lives on the model; DRAWN is rejected here because only ExecuteDraw may
// set it.
func (s *RaffleService) UpdateStatus(ctx context.Context, id uuid.UUID, target model.RaffleStatus, operatorID *uuid.UUID) (*model.Raffle, error) {
	if !model.ValidRaffleStatus(target) {
		return nil, ErrInvalidRaffleInput
	}
	if target == model.RaffleStatusDrawn {
		return nil, ErrInvalidTransition
	}

	raffle, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !raffle.CanTransition(target) {
		return nil, ErrInvalidTransition
	}

	from := raffle.Status
	if err := s.raffleRepo.UpdateStatus(ctx, id, from, target); err != nil {
		// Zero rows means the status moved underneath us (a concurrent
		// draw or sweep committed first); never overwrite that outcome.
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update raffle status: %w", err)
	}
	raffle.Status = target

	metrics.IncRaffleTransition(string(target))
	s.recordAudit(ctx, operatorID, "raffle.status.update", raffle.ID,
		map[string]interface{}{"status": string(from)},
		map[string]interface{}{"status": string(target)})

	s.bus.Publish(event.EventRaffleStatusMoved, event.RaffleStatusMovedPayload{
		RaffleID: raffle.ID.String(),
		From:     string(from),
		To:       string(target),
	})

	s.logger.Info("raffle status moved",
		zap.String("raffle_id", raffle.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)))

	return raffle, nil
}

// SubmitEntry appends an entry for the user. The raffle row lock makes the
// limit check and the insert a single unit, so concurrent submissions for
// one user cannot oversubscribe. When the raffle sells entry through a
// ticket product, each entry consumes that much ticket stock.
func (s *RaffleService) SubmitEntry(ctx context.Context, raffleID, userID uuid.UUID, count int) (*model.RaffleEntry, error) {
	if count <= 0 {
		return nil, ErrInvalidRaffleInput
	}

	var entry *model.RaffleEntry
	var used int
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		raffle, err := s.raffleRepo.FindByIDForUpdate(ctx, tx, raffleID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRaffleNotFound
		}
		if err != nil {
			return err
		}

		if raffle.Status != model.RaffleStatusActive {
			return ErrRaffleNotActive
		}
		if !raffle.EntryWindowOpen(s.now()) {
			return ErrEntryWindowClosed
		}

		used, err = s.raffleRepo.SumEntriesForUser(ctx, tx, raffleID, userID)
		if err != nil {
			return fmt.Errorf("sum entries: %w", err)
		}
		if used+count > raffle.MaxEntriesPerUser {
			return ErrEntryLimitExceeded
		}

		if raffle.TicketProductID != nil {
			if err := s.productRepo.AdjustStock(ctx, tx, *raffle.TicketProductID, -count); err != nil {
				if errors.Is(err, postgres.ErrInsufficientStock) {
					return ErrTicketStockExhausted
				}
				return fmt.Errorf("consume ticket stock: %w", err)
			}
		}

		entry = &model.RaffleEntry{
			RaffleID:  raffleID,
			UserID:    userID,
			Count:     count,
			CreatedAt: s.now(),
		}
		if err := s.raffleRepo.CreateEntry(ctx, tx, entry); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncRaffleEntry()
	s.logger.Info("raffle entry accepted",
		zap.String("raffle_id", raffleID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("count", count),
		zap.Int("total", used+count))

	return entry, nil
}

// ExecuteDraw picks winners for a CLOSED raffle exactly once. The whole
// draw runs inside one transaction behind the raffle row lock, so a
// concurrent second call observes DRAWN and fails without side effects.
func (s *RaffleService) ExecuteDraw(ctx context.Context, raffleID uuid.UUID, operatorID *uuid.UUID) ([]*model.RaffleWinner, error) {
	var raffle *model.Raffle
	var winners []*model.RaffleWinner
	var entrantCount int
	drawnAt := s.now()

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		raffle, err = s.raffleRepo.FindByIDForUpdate(ctx, tx, raffleID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRaffleNotFound
		}
		if err != nil {
			return err
		}

		switch raffle.Status {
		case model.RaffleStatusDrawn:
			return ErrRaffleAlreadyDrawn
		case model.RaffleStatusClosed:
		default:
			return ErrRaffleNotClosed
		}

		entrants, err := s.raffleRepo.ListDistinctEntrants(ctx, tx, raffleID)
		if err != nil {
			return fmt.Errorf("list entrants: %w", err)
		}
		if len(entrants) == 0 {
			return ErrNoEntrants
		}
		entrantCount = len(entrants)

		winners = s.pickWinners(raffle, entrants, drawnAt)

		if err := s.raffleRepo.CreateWinners(ctx, tx, winners); err != nil {
			return fmt.Errorf("persist winners: %w", err)
		}

		if raffle.PrizeProductID != nil {
			if err := s.productRepo.AdjustStock(ctx, tx, *raffle.PrizeProductID, -len(winners)); err != nil {
				return fmt.Errorf("reserve prize stock: %w", err)
			}
		}

		return s.raffleRepo.UpdateStatusTx(ctx, tx, raffleID, model.RaffleStatusDrawn)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncRaffleTransition(string(model.RaffleStatusDrawn))
	metrics.ObserveRaffleDrawDuration(s.now().Sub(drawnAt))

	winnerIDs := make([]string, len(winners))
	for i, w := range winners {
		winnerIDs[i] = w.UserID.String()
	}

	s.recordAudit(ctx, operatorID, "raffle.draw", raffleID,
		map[string]interface{}{"status": string(model.RaffleStatusClosed)},
		map[string]interface{}{"status": string(model.RaffleStatusDrawn), "winners": winnerIDs})

	s.bus.Publish(event.EventRaffleWinnersDrawn, event.WinnersDrawnPayload{
		RaffleID:  raffleID.String(),
		WinnerIDs: winnerIDs,
		DrawnAt:   drawnAt,
	})
	if s.sseHub != nil {
		s.sseHub.SendToUsers(winnerIDs, sse.NewEvent(sse.EventRaffleWon, map[string]any{
			"raffle_id": raffleID.String(),
			"title":     raffle.Title,
		}))
	}

	s.logger.Info("raffle drawn",
		zap.String("raffle_id", raffleID.String()),
		zap.Int("entrants", entrantCount),
		zap.Int("winners", len(winners)))

	return winners, nil
}

// pickWinners draws unweighted over distinct entrants. When the entrant
// pool does not exceed WinnersCount everyone wins, ranked by first entry
// time; otherwise a partial shuffle selects WinnersCount entrants.
func (s *RaffleService) pickWinners(raffle *model.Raffle, entrants []*model.Participant, drawnAt time.Time) []*model.RaffleWinner {
	selected := entrants
	if len(entrants) > raffle.WinnersCount {
		shuffled := make([]*model.Participant, len(entrants))
		copy(shuffled, entrants)
		s.shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		selected = shuffled[:raffle.WinnersCount]
	}

	winners := make([]*model.RaffleWinner, len(selected))
	for i, entrant := range selected {
		winners[i] = &model.RaffleWinner{
			RaffleID: raffle.ID,
			UserID:   entrant.UserID,
			Rank:     i + 1,
			DrawnAt:  drawnAt,
		}
	}
	return winners
}

// GetResult returns the winners of a drawn raffle.
func (s *RaffleService) GetResult(ctx context.Context, raffleID uuid.UUID) ([]*model.Participant, []*model.RaffleWinner, error) {
	raffle, err := s.Get(ctx, raffleID)
	if err != nil {
		return nil, nil, err
	}
	if raffle.Status != model.RaffleStatusDrawn {
		return nil, nil, ErrRaffleNotDrawn
	}
	return s.raffleRepo.ListWinners(ctx, raffleID)
}

func (s *RaffleService) ListParticipants(
	ctx context.Context,
	raffleID uuid.UUID,
	page repository.Pagination,
) ([]*model.Participant, int64, error) {
	if _, err := s.Get(ctx, raffleID); err != nil {
		return nil, 0, err
	}
	return s.raffleRepo.ListParticipants(ctx, raffleID, page)
}

func (s *RaffleService) ListEntriesByUser(
	ctx context.Context,
	userID uuid.UUID,
	page repository.Pagination,
) ([]*model.RaffleEntry, int64, error) {
	return s.raffleRepo.ListEntriesByUser(ctx, userID, page)
}

// ActivateDue moves READY raffles whose entry window has opened to ACTIVE.
// Called by the scheduler; each raffle is re-checked against the
// transition table so manual admin moves never race it.
func (s *RaffleService) ActivateDue(ctx context.Context) int {
	return s.sweep(ctx, model.RaffleStatusReady, "entry_start_at", model.RaffleStatusActive)
}

// CloseDue moves ACTIVE raffles whose entry window has ended to CLOSED.
func (s *RaffleService) CloseDue(ctx context.Context) int {
	return s.sweep(ctx, model.RaffleStatusActive, "entry_end_at", model.RaffleStatusClosed)
}

// DrawDue executes the draw for CLOSED raffles past their draw time.
// Raffles with no entrants are left CLOSED for manual handling.
func (s *RaffleService) DrawDue(ctx context.Context) int {
	raffles, err := s.raffleRepo.ListByStatusBefore(ctx, model.RaffleStatusClosed, "draw_at", s.now(), 100)
	if err != nil {
		s.logger.Error("list raffles due for draw", zap.Error(err))
		return 0
	}

	drawn := 0
	for _, raffle := range raffles {
		if _, err := s.ExecuteDraw(ctx, raffle.ID, nil); err != nil {
			if errors.Is(err, ErrNoEntrants) {
				s.logger.Warn("raffle due for draw has no entrants",
					zap.String("raffle_id", raffle.ID.String()))
				continue
			}
			if errors.Is(err, ErrRaffleAlreadyDrawn) {
				continue
			}
			s.logger.Error("scheduled draw failed",
				zap.String("raffle_id", raffle.ID.String()),
				zap.Error(err))
			continue
		}
		drawn++
	}
	return drawn
}

func (s *RaffleService) sweep(ctx context.Context, from model.RaffleStatus, column string, to model.RaffleStatus) int {
	raffles, err := s.raffleRepo.ListByStatusBefore(ctx, from, column, s.now(), 100)
	if err != nil {
		s.logger.Error("list raffles for lifecycle sweep",
			zap.String("from", string(from)),
			zap.Error(err))
		return 0
	}

	moved := 0
	for _, raffle := range raffles {
		if _, err := s.UpdateStatus(ctx, raffle.ID, to, nil); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			s.logger.Error("lifecycle sweep transition failed",
				zap.String("raffle_id", raffle.ID.String()),
				zap.String("to", string(to)),
				zap.Error(err))
			continue
		}
		moved++
	}
	return moved
}

func (s *RaffleService) recordAudit(ctx context.Context, operatorID *uuid.UUID, action string, resourceID uuid.UUID, oldValue, newValue map[string]interface{}) {
	if s.auditRepo == nil {
		return
	}

	resourceType := "raffle"
	id := resourceID.String()
	if err := s.auditRepo.Create(ctx, &model.AuditLog{
		UserID:       operatorID,
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &id,
		OldValue:     oldValue,
		NewValue:     newValue,
	}); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}
