package model

import (
	"time"

	"github.com/google/uuid"
)

type ProductCategory string

const (
	ProductCategoryGeneral ProductCategory = "GENERAL"
	// Ticket products are purchased to enter a raffle.
	ProductCategoryTicket ProductCategory = "TICKET"
	// Raffle products are prizes granted to winners.
	ProductCategoryRaffle ProductCategory = "RAFFLE"
)

type Product struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       int64           `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	Category    ProductCategory `db:"category" json:"category"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}
