package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"storefront-hub/internal/event"
	"storefront-hub/internal/model"
	"storefront-hub/internal/repository"
)

var errUnexpectedCall = errors.New("unexpected repository call")

type fakeRaffleRepo struct {
	findByIDFn             func(ctx context.Context, id uuid.UUID) (*model.Raffle, error)
	findByIDForUpdateFn    func(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Raffle, error)
	updateStatusFn         func(ctx context.Context, id uuid.UUID, from, to model.RaffleStatus) error
	updateStatusTxFn       func(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.RaffleStatus) error
	createEntryFn          func(ctx context.Context, tx pgx.Tx, entry *model.RaffleEntry) error
	sumEntriesForUserFn    func(ctx context.Context, tx pgx.Tx, raffleID, userID uuid.UUID) (int, error)
	listDistinctEntrantsFn func(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) ([]*model.Participant, error)
	createWinnersFn        func(ctx context.Context, tx pgx.Tx, winners []*model.RaffleWinner) error
}

var _ repository.RaffleRepository = (*fakeRaffleRepo)(nil)

func (f *fakeRaffleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Raffle, error) {
	if f.findByIDFn == nil {
		return nil, errUnexpectedCall
	}
	return f.findByIDFn(ctx, id)
}

func (f *fakeRaffleRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Raffle, error) {
	if f.findByIDForUpdateFn == nil {
		return nil, errUnexpectedCall
	}
	return f.findByIDForUpdateFn(ctx, tx, id)
}

func (f *fakeRaffleRepo) Create(context.Context, *model.Raffle) error { return errUnexpectedCall }
func (f *fakeRaffleRepo) Update(context.Context, *model.Raffle) error { return errUnexpectedCall }

func (f *fakeRaffleRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.RaffleStatus) error {
	if f.updateStatusFn == nil {
		return errUnexpectedCall
	}
	return f.updateStatusFn(ctx, id, from, to)
}

func (f *fakeRaffleRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.RaffleStatus) error {
	if f.updateStatusTxFn == nil {
		return errUnexpectedCall
	}
	return f.updateStatusTxFn(ctx, tx, id, status)
}

func (f *fakeRaffleRepo) List(context.Context, repository.RaffleListFilter) ([]*model.Raffle, int64, error) {
	return nil, 0, errUnexpectedCall
}

func (f *fakeRaffleRepo) ListByStatusBefore(context.Context, model.RaffleStatus, string, time.Time, int32) ([]*model.Raffle, error) {
	return nil, errUnexpectedCall
}

func (f *fakeRaffleRepo) CreateEntry(ctx context.Context, tx pgx.Tx, entry *model.RaffleEntry) error {
	if f.createEntryFn == nil {
		return errUnexpectedCall
	}
	return f.createEntryFn(ctx, tx, entry)
}

func (f *fakeRaffleRepo) SumEntriesForUser(ctx context.Context, tx pgx.Tx, raffleID, userID uuid.UUID) (int, error) {
	if f.sumEntriesForUserFn == nil {
		return 0, errUnexpectedCall
	}
	return f.sumEntriesForUserFn(ctx, tx, raffleID, userID)
}

func (f *fakeRaffleRepo) ListParticipants(context.Context, uuid.UUID, repository.Pagination) ([]*model.Participant, int64, error) {
	return nil, 0, errUnexpectedCall
}

func (f *fakeRaffleRepo) ListDistinctEntrants(ctx context.Context, tx pgx.Tx, raffleID uuid.UUID) ([]*model.Participant, error) {
	if f.listDistinctEntrantsFn == nil {
		return nil, errUnexpectedCall
	}
	return f.listDistinctEntrantsFn(ctx, tx, raffleID)
}

func (f *fakeRaffleRepo) ListEntriesByUser(context.Context, uuid.UUID, repository.Pagination) ([]*model.RaffleEntry, int64, error) {
	return nil, 0, errUnexpectedCall
}

func (f *fakeRaffleRepo) CreateWinners(ctx context.Context, tx pgx.Tx, winners []*model.RaffleWinner) error {
	if f.createWinnersFn == nil {
		return errUnexpectedCall
	}
	return f.createWinnersFn(ctx, tx, winners)
}

func (f *fakeRaffleRepo) ListWinners(context.Context, uuid.UUID) ([]*model.Participant, []*model.RaffleWinner, error) {
	return nil, nil, errUnexpectedCall
}

func newUnitRaffleService(repo *fakeRaffleRepo) *RaffleService {
	svc := NewRaffleService(repo, nil, nil, nil, event.NewBus(), nil, zap.NewNop())
	svc.withTx = func(ctx context.Context, fn func(tx pgx.Tx) error) error {
		return fn(nil)
	}
	return svc
}

func closedRaffle(winnersCount int) *model.Raffle {
	now := time.Now().UTC()
	return &model.Raffle{
		ID:                uuid.New(),
		Title:             "launch giveaway",
		Status:            model.RaffleStatusClosed,
		WinnersCount:      winnersCount,
		MaxEntriesPerUser: 10,
		EntryStartAt:      now.Add(-2 * time.Hour),
		EntryEndAt:        now.Add(-time.Hour),
		DrawAt:            now,
	}
}

func entrants(n int) []*model.Participant {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]*model.Participant, n)
	for i := range out {
		out[i] = &model.Participant{
			UserID:       uuid.New(),
			TotalCount:   1,
			FirstEntryAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestExecuteDraw_AllWinOnShortfall(t *testing.T) {
	t.Parallel()

	raffle := closedRaffle(5)
	pool := entrants(3)

	var persisted []*model.RaffleWinner
	var finalStatus model.RaffleStatus
	repo := &fakeRaffleRepo{
		findByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Raffle, error) {
			return raffle, nil
		},
		listDistinctEntrantsFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) ([]*model.Participant, error) {
			return pool, nil
		},
		createWinnersFn: func(_ context.Context, _ pgx.Tx, winners []*model.RaffleWinner) error {
			persisted = winners
			return nil
		},
		updateStatusTxFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID, status model.RaffleStatus) error {
			finalStatus = status
			return nil
		},
	}

	svc := newUnitRaffleService(repo)
	winners, err := svc.ExecuteDraw(context.Background(), raffle.ID, nil)
	if err != nil {
		t.Fatalf("ExecuteDraw returned error: %v", err)
	}

	if len(winners) != 3 {
		t.Fatalf("expected all 3 entrants to win, got %d", len(winners))
	}
	for i, w := range winners {
		if w.UserID != pool[i].UserID {
			t.Errorf("winner %d = %s, want first-entry order %s", i, w.UserID, pool[i].UserID)
		}
		if w.Rank != i+1 {
			t.Errorf("winner %d rank = %d, want %d", i, w.Rank, i+1)
		}
	}
	if len(persisted) != 3 {
		t.Errorf("persisted %d winners, want 3", len(persisted))
	}
	if finalStatus != model.RaffleStatusDrawn {
		t.Errorf("final status = %s, want DRAWN", finalStatus)
	}
}

func TestExecuteDraw_SelectsWinnersCount(t *testing.T) {
	t.Parallel()

	raffle := closedRaffle(2)
	pool := entrants(5)

	repo := &fakeRaffleRepo{
		findByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Raffle, error) {
			return raffle, nil
		},
		listDistinctEntrantsFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) ([]*model.Participant, error) {
			return pool, nil
		},
		createWinnersFn: func(_ context.Context, _ pgx.Tx, _ []*model.RaffleWinner) error {
			return nil
		},
		updateStatusTxFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID, _ model.RaffleStatus) error {
			return nil
		},
	}

	svc := newUnitRaffleService(repo)
	// Reverse the pool so selection order is predictable.
	svc.shuffle = func(n int, swap func(i, j int)) {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			swap(i, j)
		}
	}

	winners, err := svc.ExecuteDraw(context.Background(), raffle.ID, nil)
	if err != nil {
		t.Fatalf("ExecuteDraw returned error: %v", err)
	}
	if len(winners) != 2 {
		t.Fatalf("expected 2 winners, got %d", len(winners))
	}
	if winners[0].UserID != pool[4].UserID || winners[1].UserID != pool[3].UserID {
		t.Errorf("unexpected winner selection after reverse shuffle")
	}
	if winners[0].Rank != 1 || winners[1].Rank != 2 {
		t.Errorf("ranks = %d,%d, want 1,2", winners[0].Rank, winners[1].Rank)
	}

	seen := map[uuid.UUID]bool{}
	for _, w := range winners {
		if seen[w.UserID] {
			t.Errorf("duplicate winner %s", w.UserID)
		}
		seen[w.UserID] = true
	}
}

func TestExecuteDraw_Guards(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		status  model.RaffleStatus
		wantErr error
	}{
		{name: "already drawn", status: model.RaffleStatusDrawn, wantErr: ErrRaffleAlreadyDrawn},
		{name: "still active", status: model.RaffleStatusActive, wantErr: ErrRaffleNotClosed},
		{name: "still draft", status: model.RaffleStatusDraft, wantErr: ErrRaffleNotClosed},
		{name: "cancelled", status: model.RaffleStatusCancelled, wantErr: ErrRaffleNotClosed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			raffle := closedRaffle(2)
			raffle.Status = tc.status
			repo := &fakeRaffleRepo{
				findByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Raffle, error) {
					return raffle, nil
				},
			}

			svc := newUnitRaffleService(repo)
			if _, err := svc.ExecuteDraw(context.Background(), raffle.ID, nil); !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestExecuteDraw_NoEntrants(t *testing.T) {
	t.Parallel()

	raffle := closedRaffle(2)
	repo := &fakeRaffleRepo{
		findByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Raffle, error) {
			return raffle, nil
		},
		listDistinctEntrantsFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) ([]*model.Participant, error) {
			return nil, nil
		},
	}

	svc := newUnitRaffleService(repo)
	if _, err := svc.ExecuteDraw(context.Background(), raffle.ID, nil); !errors.Is(err, ErrNoEntrants) {
		t.Errorf("got %v, want ErrNoEntrants", err)
	}
}

func TestSubmitEntry_EnforcesLimit(t *testing.T) {
	t.Parallel()

	raffle := closedRaffle(2)
	raffle.Status = model.RaffleStatusActive
	raffle.MaxEntriesPerUser = 5
	now := raffle.EntryStartAt.Add(30 * time.Minute)

	var created *model.RaffleEntry
	repo := &fakeRaffleRepo{
		findByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Raffle, error) {
			return raffle, nil
		},
		sumEntriesForUserFn: func(_ context.Context, _ pgx.Tx, _, _ uuid.UUID) (int, error) {
			return 3, nil
		},
		createEntryFn: func(_ context.Context, _ pgx.Tx, entry *model.RaffleEntry) error {
			created = entry
			return nil
		},
	}

	svc := newUnitRaffleService(repo)
	svc.now = func() time.Time { return now }

	userID := uuid.New()
	if _, err := svc.SubmitEntry(context.Background(), raffle.ID, userID, 3); !errors.Is(err, ErrEntryLimitExceeded) {
		t.Fatalf("3+3 over limit 5: got %v, want ErrEntryLimitExceeded", err)
	}
	if created != nil {
		t.Fatal("entry persisted despite limit violation")
	}

	entry, err := svc.SubmitEntry(context.Background(), raffle.ID, userID, 2)
	if err != nil {
		t.Fatalf("3+2 at limit 5: %v", err)
	}
	if entry.Count != 2 || entry.UserID != userID {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestSubmitEntry_WindowAndStatusGuards(t *testing.T) {
	t.Parallel()

	raffle := closedRaffle(2)
	raffle.Status = model.RaffleStatusActive
	repo := &fakeRaffleRepo{
		findByIDForUpdateFn: func(_ context.Context, _ pgx.Tx, _ uuid.UUID) (*model.Raffle, error) {
			return raffle, nil
		},
	}
	svc := newUnitRaffleService(repo)

	// Window already over.
	svc.now = func() time.Time { return raffle.EntryEndAt.Add(time.Second) }
	if _, err := svc.SubmitEntry(context.Background(), raffle.ID, uuid.New(), 1); !errors.Is(err, ErrEntryWindowClosed) {
		t.Errorf("past window: got %v, want ErrEntryWindowClosed", err)
	}

	// Wrong status.
	raffle.Status = model.RaffleStatusReady
	if _, err := svc.SubmitEntry(context.Background(), raffle.ID, uuid.New(), 1); !errors.Is(err, ErrRaffleNotActive) {
		t.Errorf("READY raffle: got %v, want ErrRaffleNotActive", err)
	}

	if _, err := svc.SubmitEntry(context.Background(), raffle.ID, uuid.New(), 0); !errors.Is(err, ErrInvalidRaffleInput) {
		t.Errorf("zero count: got %v, want ErrInvalidRaffleInput", err)
	}
}

func TestUpdateStatus_RejectsInvalidMoves(t *testing.T) {
	t.Parallel()

	raffle := closedRaffle(2)
	raffle.Status = model.RaffleStatusDraft
	repo := &fakeRaffleRepo{
		findByIDFn: func(_ context.Context, _ uuid.UUID) (*model.Raffle, error) {
			return raffle, nil
		},
	}
	svc := newUnitRaffleService(repo)

	if _, err := svc.UpdateStatus(context.Background(), raffle.ID, model.RaffleStatusActive, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("DRAFT to ACTIVE: got %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), raffle.ID, model.RaffleStatusDrawn, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("explicit DRAWN: got %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), raffle.ID, "BOGUS", nil); !errors.Is(err, ErrInvalidRaffleInput) {
		t.Errorf("unknown status: got %v, want ErrInvalidRaffleInput", err)
	}
}

func TestUpdateStatus_LosesRaceToConcurrentMove(t *testing.T) {
	t.Parallel()

	// The snapshot read says CLOSED, but by the time the write lands the
	// draw has committed and flipped the row to DRAWN. The conditional
	// write must miss instead of overwriting the terminal state.
	raffle := closedRaffle(2)
	stale := *raffle
	repo := &fakeRaffleRepo{
		findByIDFn: func(_ context.Context, _ uuid.UUID) (*model.Raffle, error) {
			copied := stale
			return &copied, nil
		},
		updateStatusFn: func(_ context.Context, _ uuid.UUID, from, _ model.RaffleStatus) error {
			if raffle.Status != from {
				return repository.ErrNotFound
			}
			return errUnexpectedCall
		},
	}
	svc := newUnitRaffleService(repo)

	raffle.Status = model.RaffleStatusDrawn
	if _, err := svc.UpdateStatus(context.Background(), raffle.ID, model.RaffleStatusCancelled, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("stale cancel: got %v, want ErrInvalidTransition", err)
	}
	if raffle.Status != model.RaffleStatusDrawn {
		t.Fatalf("status = %s, want DRAWN untouched", raffle.Status)
	}
}

func TestUpdateStatus_PublishesEvent(t *testing.T) {
	t.Parallel()

	raffle := closedRaffle(2)
	raffle.Status = model.RaffleStatusReady
	repo := &fakeRaffleRepo{
		findByIDFn: func(_ context.Context, _ uuid.UUID) (*model.Raffle, error) {
			return raffle, nil
		},
		updateStatusFn: func(_ context.Context, _ uuid.UUID, from, to model.RaffleStatus) error {
			if from != model.RaffleStatusReady || to != model.RaffleStatusActive {
				return errUnexpectedCall
			}
			return nil
		},
	}

	bus := event.NewBus()
	moved := make(chan event.RaffleStatusMovedPayload, 1)
	bus.Subscribe(event.EventRaffleStatusMoved, func(payload any) {
		if p, ok := payload.(event.RaffleStatusMovedPayload); ok {
			select {
			case moved <- p:
			default:
			}
		}
	})

	svc := NewRaffleService(repo, nil, nil, nil, bus, nil, zap.NewNop())
	updated, err := svc.UpdateStatus(context.Background(), raffle.ID, model.RaffleStatusActive, nil)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if updated.Status != model.RaffleStatusActive {
		t.Errorf("status = %s, want ACTIVE", updated.Status)
	}

	select {
	case p := <-moved:
		if p.From != "READY" || p.To != "ACTIVE" {
			t.Errorf("payload %+v, want READY to ACTIVE", p)
		}
	case <-time.After(time.Second):
		t.Fatal("no status event published")
	}
}
