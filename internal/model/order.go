package model

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusFailed    OrderStatus = "FAILED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is created from a cart snapshot at checkout time. Line items copy
// the product name and price, so later catalog edits never alter a
// historical order.
type Order struct {
	ID            uuid.UUID   `db:"id" json:"id"`
	UserID        uuid.UUID   `db:"user_id" json:"user_id"`
	Subtotal      int64       `db:"subtotal" json:"subtotal"`
	Discount      int64       `db:"discount" json:"discount"`
	Total         int64       `db:"total" json:"total"`
	CouponIssueID *uuid.UUID  `db:"coupon_issue_id" json:"coupon_issue_id,omitempty"`
	Status        OrderStatus `db:"status" json:"status"`
	Items         []OrderItem `db:"-" json:"items"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

type OrderItem struct {
	ID          int64     `db:"id" json:"id"`
	OrderID     uuid.UUID `db:"order_id" json:"order_id"`
	ProductID   uuid.UUID `db:"product_id" json:"product_id"`
	ProductName string    `db:"product_name" json:"product_name"`
	UnitPrice   int64     `db:"unit_price" json:"unit_price"`
	Quantity    int       `db:"quantity" json:"quantity"`
}
