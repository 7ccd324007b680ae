package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront-hub/internal/model"
	"storefront-hub/internal/repository"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidProductData = errors.New("invalid product data")
)

type CreateProductRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Price       int64                 `json:"price"`
	Stock       int                   `json:"stock"`
	Category    model.ProductCategory `json:"category"`
}

type ProductService struct {
	productRepo repository.ProductRepository
	logger      *zap.Logger
}

func NewProductService(productRepo repository.ProductRepository, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{productRepo: productRepo, logger: logger}
}

func validProductCategory(c model.ProductCategory) bool {
	switch c {
	case model.ProductCategoryGeneral, model.ProductCategoryTicket, model.ProductCategoryRaffle:
		return true
	default:
		return false
	}
}

func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*model.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price < 0 || req.Stock < 0 || !validProductCategory(req.Category) {
		return nil, ErrInvalidProductData
	}

	product := &model.Product{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		IsActive:    true,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.String("category", string(product.Category)))

	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return product, err
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req CreateProductRequest) (*model.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price < 0 || req.Stock < 0 || !validProductCategory(req.Category) {
		return nil, ErrInvalidProductData
	}

	product.Name = req.Name
	product.Description = strings.TrimSpace(req.Description)
	product.Price = req.Price
	product.Stock = req.Stock
	product.Category = req.Category

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.productRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProductNotFound
	}
	return err
}

func (s *ProductService) List(ctx context.Context, filter repository.ProductListFilter) ([]*model.Product, int64, error) {
	return s.productRepo.List(ctx, filter)
}
