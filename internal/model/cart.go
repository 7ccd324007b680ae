package model

import "github.com/google/uuid"

// CartItem is one line of a user's cart. Quantities merge when the same
// product is added twice; decrementing to zero removes the line.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}
