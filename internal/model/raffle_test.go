package model

import (
	"testing"
	"time"
)

func TestCanTransition_FullTable(t *testing.T) {
	t.Parallel()

	allowed := map[RaffleStatus]map[RaffleStatus]bool{
		RaffleStatusDraft:     {RaffleStatusReady: true, RaffleStatusCancelled: true},
		RaffleStatusReady:     {RaffleStatusDraft: true, RaffleStatusActive: true, RaffleStatusCancelled: true},
		RaffleStatusActive:    {RaffleStatusClosed: true, RaffleStatusCancelled: true},
		RaffleStatusClosed:    {RaffleStatusCancelled: true},
		RaffleStatusDrawn:     {},
		RaffleStatusCancelled: {},
	}

	statuses := []RaffleStatus{
		RaffleStatusDraft,
		RaffleStatusReady,
		RaffleStatusActive,
		RaffleStatusClosed,
		RaffleStatusDrawn,
		RaffleStatusCancelled,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			raffle := &Raffle{Status: from}
			got := raffle.CanTransition(to)
			want := allowed[from][to]
			if got != want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransition_DrawnNeverReachableDirectly(t *testing.T) {
	t.Parallel()

	for _, from := range []RaffleStatus{
		RaffleStatusDraft,
		RaffleStatusReady,
		RaffleStatusActive,
		RaffleStatusClosed,
	} {
		raffle := &Raffle{Status: from}
		if raffle.CanTransition(RaffleStatusDrawn) {
			t.Errorf("status update %s -> DRAWN must be rejected; only the draw operation may set DRAWN", from)
		}
	}
}

func TestEntryWindowOpen(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)
	raffle := &Raffle{EntryStartAt: start, EntryEndAt: end}

	if raffle.EntryWindowOpen(start.Add(-time.Second)) {
		t.Error("window open before entry_start_at")
	}
	if !raffle.EntryWindowOpen(start) {
		t.Error("window closed at entry_start_at")
	}
	if !raffle.EntryWindowOpen(end) {
		t.Error("window closed at entry_end_at")
	}
	if raffle.EntryWindowOpen(end.Add(time.Second)) {
		t.Error("window open after entry_end_at")
	}
}

func TestCouponValidValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind  CouponKind
		value int64
		want  bool
	}{
		{CouponKindPercent, 0, true},
		{CouponKindPercent, 100, true},
		{CouponKindPercent, 101, false},
		{CouponKindPercent, -1, false},
		{CouponKindFixedAmount, 0, true},
		{CouponKindFixedAmount, 5000, true},
		{CouponKindFixedAmount, -1, false},
		{CouponKind("UNKNOWN"), 10, false},
	}

	for _, tc := range cases {
		c := &Coupon{Kind: tc.kind, Value: tc.value}
		if got := c.ValidValue(); got != tc.want {
			t.Errorf("ValidValue(kind=%s value=%d) = %v, want %v", tc.kind, tc.value, got, tc.want)
		}
	}
}
