package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Payment is created in PENDING state together with its order. The external
// gateway callback confirms or fails it; this service only records the
// outcome and moves the order accordingly.
type Payment struct {
	ID         uuid.UUID     `db:"id" json:"id"`
	OrderID    uuid.UUID     `db:"order_id" json:"order_id"`
	UserID     uuid.UUID     `db:"user_id" json:"user_id"`
	Amount     int64         `db:"amount" json:"amount"`
	Status     PaymentStatus `db:"status" json:"status"`
	PaymentKey *string       `db:"payment_key" json:"payment_key,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}
