package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront-hub/internal/model"
	"storefront-hub/internal/repository"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrProductUnavailable = errors.New("product is not available")
)

// CartLine is a cart item joined with its current catalog entry. LineTotal
// uses the live price; the snapshot happens at checkout, not here.
type CartLine struct {
	Product   *model.Product `json:"product"`
	Quantity  int            `json:"quantity"`
	LineTotal int64          `json:"line_total"`
}

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	logger      *zap.Logger
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	logger *zap.Logger,
) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, logger: logger}
}

func (s *CartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, err
	}
	if !product.IsActive {
		return 0, ErrProductUnavailable
	}

	return s.cartRepo.Add(ctx, userID, productID, quantity)
}

func (s *CartService) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.cartRepo.Remove(ctx, userID, []uuid.UUID{productID})
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}
	if !product.IsActive {
		return ErrProductUnavailable
	}
	return s.cartRepo.SetQuantity(ctx, userID, productID, quantity)
}

// Get returns the cart joined with live product rows. Items whose product
// has since been deactivated or deleted are dropped from the view; they
// still live in Redis until removed or checked out.
func (s *CartService) Get(ctx context.Context, userID uuid.UUID) ([]CartLine, int64, error) {
	items, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return nil, 0, nil
	}

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[uuid.UUID]*model.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	lines := make([]CartLine, 0, len(items))
	var subtotal int64
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok || !product.IsActive {
			continue
		}
		lineTotal := product.Price * int64(item.Quantity)
		subtotal += lineTotal
		lines = append(lines, CartLine{Product: product, Quantity: item.Quantity, LineTotal: lineTotal})
	}
	return lines, subtotal, nil
}

func (s *CartService) Remove(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) error {
	return s.cartRepo.Remove(ctx, userID, productIDs)
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.cartRepo.Clear(ctx, userID)
}
