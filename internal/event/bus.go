package event

import (
	"strings"
	"sync"
	"time"
)

const (
	EventRaffleWinnersDrawn = "raffle.winners.drawn"
	EventRaffleStatusMoved  = "raffle.status.moved"
	EventOrderCreated       = "order.created"
	EventPaymentConfirmed   = "payment.confirmed"
	EventCouponIssued       = "coupon.issued"
)

type WinnersDrawnPayload struct {
	RaffleID  string    `json:"raffle_id"`
	WinnerIDs []string  `json:"winner_ids"`
	DrawnAt   time.Time `json:"drawn_at"`
}

type RaffleStatusMovedPayload struct {
	RaffleID string `json:"raffle_id"`
	From     string `json:"from"`
	To       string `json:"to"`
}

type OrderCreatedPayload struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Total   int64  `json:"total"`
}

type PaymentConfirmedPayload struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
}

type CouponIssuedPayload struct {
	CouponID string `json:"coupon_id"`
	IssueID  string `json:"issue_id"`
	UserID   string `json:"user_id"`
}

type Bus struct {
	handlers sync.Map
	mu       sync.Mutex
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(event string, handler func(payload any)) {
	if b == nil || handler == nil {
		return
	}

	eventName := strings.TrimSpace(event)
	if eventName == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := make([]func(payload any), 0, 1)
	if current, ok := b.handlers.Load(eventName); ok {
		if casted, valid := current.([]func(payload any)); valid {
			handlers = append(handlers, casted...)
		}
	}
	handlers = append(handlers, handler)
	b.handlers.Store(eventName, handlers)
}

func (b *Bus) Publish(event string, payload any) {
	if b == nil {
		return
	}

	eventName := strings.TrimSpace(event)
	if eventName == "" {
		return
	}

	current, ok := b.handlers.Load(eventName)
	if !ok {
		return
	}

	handlers, ok := current.([]func(payload any))
	if !ok || len(handlers) == 0 {
		return
	}

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		go handler(payload)
	}
}
