package logger

import (
	"io"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func captureEntry(store *SystemLogStore, level zapcore.Level, msg string, fields ...zap.Field) {
	store.add(zapcore.Entry{
		Time:    time.Now().UTC(),
		Level:   level,
		Message: msg,
	}, fields)
}

func TestSystemLogStore_QueryFiltersAndPages(t *testing.T) {
	t.Parallel()

	store := NewSystemLogStore(10)
	captureEntry(store, zapcore.InfoLevel, "order created", zap.String("order_id", "o-1"))
	captureEntry(store, zapcore.WarnLevel, "cart clear after checkout failed")
	captureEntry(store, zapcore.InfoLevel, "raffle status moved")

	entries, total := store.Query(LogQuery{Level: "info"})
	if total != 2 || len(entries) != 2 {
		t.Fatalf("level filter: got %d/%d entries, want 2", len(entries), total)
	}
	if entries[0].Message != "raffle status moved" {
		t.Fatalf("entries not newest first: %+v", entries[0])
	}

	entries, total = store.Query(LogQuery{Keyword: "checkout"})
	if total != 1 || entries[0].Level != "warn" {
		t.Fatalf("keyword filter: got total=%d entries=%+v", total, entries)
	}

	entries, total = store.Query(LogQuery{Page: 2, PageSize: 2})
	if total != 3 || len(entries) != 1 {
		t.Fatalf("page 2 of size 2: got %d/%d, want 1 of 3", len(entries), total)
	}
	if entries[0].Message != "order created" {
		t.Fatalf("pagination order wrong: %+v", entries[0])
	}
}

func TestSystemLogStore_EvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	store := NewSystemLogStore(2)
	captureEntry(store, zapcore.InfoLevel, "first")
	captureEntry(store, zapcore.InfoLevel, "second")
	captureEntry(store, zapcore.InfoLevel, "third")

	entries, total := store.Query(LogQuery{})
	if total != 2 {
		t.Fatalf("expected capacity 2, got %d", total)
	}
	if entries[0].Message != "third" || entries[1].Message != "second" {
		t.Fatalf("oldest entry not evicted: %+v", entries)
	}
}

func TestSystemLogStore_RedactsSensitiveFields(t *testing.T) {
	t.Parallel()

	store := NewSystemLogStore(4)
	captureEntry(store, zapcore.InfoLevel, "payment confirmed",
		zap.String("payment_key", "pg-key-123"),
		zap.String("order_id", "o-1"))

	entries, _ := store.Query(LogQuery{})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].Fields["payment_key"]; got != "***" {
		t.Fatalf("payment_key = %v, want masked", got)
	}
	if got := entries[0].Fields["order_id"]; got != "o-1" {
		t.Fatalf("order_id = %v, want passthrough", got)
	}
}

func TestWrapZapLogger_TeesIntoStore(t *testing.T) {
	t.Parallel()

	store := NewSystemLogStore(4)
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(io.Discard),
		zapcore.InfoLevel,
	)
	logger := WrapZapLogger(zap.New(core), store)

	logger.Info("coupon issued", zap.String("coupon_id", "c-1"))

	entries, total := store.Query(LogQuery{Keyword: "coupon"})
	if total != 1 || entries[0].Fields["coupon_id"] != "c-1" {
		t.Fatalf("wrapped logger did not capture entry: total=%d entries=%+v", total, entries)
	}
}
