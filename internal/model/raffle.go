package model

import (
	"time"

	"github.com/google/uuid"
)

type RaffleStatus string

const (
	RaffleStatusDraft     RaffleStatus = "DRAFT"
	RaffleStatusReady     RaffleStatus = "READY"
	RaffleStatusActive    RaffleStatus = "ACTIVE"
	RaffleStatusClosed    RaffleStatus = "CLOSED"
	RaffleStatusDrawn     RaffleStatus = "DRAWN"
	RaffleStatusCancelled RaffleStatus = "CANCELLED"
)

// raffleTransitions is the admin-facing transition table. DRAWN is only
// reachable through the draw operation, never through a status update.
var raffleTransitions = map[RaffleStatus][]RaffleStatus{
	RaffleStatusDraft:     {RaffleStatusReady, RaffleStatusCancelled},
	RaffleStatusReady:     {RaffleStatusDraft, RaffleStatusActive, RaffleStatusCancelled},
	RaffleStatusActive:    {RaffleStatusClosed, RaffleStatusCancelled},
	RaffleStatusClosed:    {RaffleStatusCancelled},
	RaffleStatusDrawn:     nil,
	RaffleStatusCancelled: nil,
}

func ValidRaffleStatus(s RaffleStatus) bool {
	_, ok := raffleTransitions[s]
	return ok
}

type Raffle struct {
	ID                uuid.UUID    `db:"id" json:"id"`
	Title             string       `db:"title" json:"title"`
	Description       string       `db:"description" json:"description"`
	Status            RaffleStatus `db:"status" json:"status"`
	TicketProductID   *uuid.UUID   `db:"ticket_product_id" json:"ticket_product_id,omitempty"`
	PrizeProductID    *uuid.UUID   `db:"prize_product_id" json:"prize_product_id,omitempty"`
	WinnersCount      int          `db:"winners_count" json:"winners_count"`
	MaxEntriesPerUser int          `db:"max_entries_per_user" json:"max_entries_per_user"`
	EntryStartAt      time.Time    `db:"entry_start_at" json:"entry_start_at"`
	EntryEndAt        time.Time    `db:"entry_end_at" json:"entry_end_at"`
	DrawAt            time.Time    `db:"draw_at" json:"draw_at"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}

// CanTransition reports whether an admin status update from the current
// status to target is allowed.
func (r *Raffle) CanTransition(target RaffleStatus) bool {
	for _, allowed := range raffleTransitions[r.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// EntryWindowOpen reports whether now falls inside [EntryStartAt, EntryEndAt].
func (r *Raffle) EntryWindowOpen(now time.Time) bool {
	return !now.Before(r.EntryStartAt) && !now.After(r.EntryEndAt)
}

// RaffleEntry is one append-only entry submission; a user may hold several
// rows for the same raffle as long as the summed count stays within
// MaxEntriesPerUser.
type RaffleEntry struct {
	ID        int64     `db:"id" json:"id"`
	RaffleID  uuid.UUID `db:"raffle_id" json:"raffle_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Count     int       `db:"count" json:"count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RaffleWinner is one ranked winner row, written exactly once per raffle
// inside the draw transaction.
type RaffleWinner struct {
	RaffleID uuid.UUID `db:"raffle_id" json:"raffle_id"`
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	Rank     int       `db:"rank" json:"rank"`
	DrawnAt  time.Time `db:"drawn_at" json:"drawn_at"`
}

// Participant is the deduplicated projection of a raffle's entrants used by
// the admin participants listing and by the draw.
type Participant struct {
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	TotalCount   int       `db:"total_count" json:"total_count"`
	FirstEntryAt time.Time `db:"first_entry_at" json:"first_entry_at"`
}
