package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/pkg/logger"
	"github.com/ak/oms/internal/pkg/metrics"
	"go.uber.org/zap"
)

// ProductService handles the product catalogue and stock
type ProductService interface {
	List(ctx context.Context, activeOnly bool, page, limit int) ([]*models.Product, int64, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, req ProductRequest) (*models.Product, error)
	Update(ctx context.Context, id string, req ProductRequest) (*models.Product, error)
	Delete(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, req StockAdjustment, adminID string) (*models.Product, error)
}

type ProductRequest struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Price    int    `json:"price"`
	Stock    int    `json:"stock"` // initial stock, ignored on update
	LowStock int    `json:"low_stock"`
	Active   *bool  `json:"active"`
}

type StockAdjustment struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type productService struct {
	productRepo repositories.ProductRepository
	metrics     *metrics.Registry
	logger      *logger.Logger
}

func NewProductService(productRepo repositories.ProductRepository, m *metrics.Registry, log *logger.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		metrics:     m,
		logger:      log.WithComponent("product-service"),
	}
}

func (s *productService) List(ctx context.Context, activeOnly bool, page, limit int) ([]*models.Product, int64, error) {
	return s.productRepo.List(ctx, activeOnly, page, limit)
}

func (s *productService) Get(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func validateProduct(req ProductRequest) error {
	if strings.TrimSpace(req.SKU) == "" {
		return fmt.Errorf("%w: sku is required", ErrValidation)
	}
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if req.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if req.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	if req.LowStock < 0 {
		return fmt.Errorf("%w: low_stock cannot be negative", ErrValidation)
	}
	return nil
}

func (s *productService) Create(ctx context.Context, req ProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	product := &models.Product{
		SKU:      strings.TrimSpace(req.SKU),
		Name:     strings.TrimSpace(req.Name),
		Price:    req.Price,
		Stock:    req.Stock,
		LowStock: req.LowStock,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrProductExists
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, id string, req ProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	product.SKU = strings.TrimSpace(req.SKU)
	product.Name = strings.TrimSpace(req.Name)
	product.Price = req.Price
	product.LowStock = req.LowStock
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrProductExists
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.productRepo.Delete(ctx, id)
}

func (s *productService) AdjustStock(ctx context.Context, id string, req StockAdjustment, adminID string) (*models.Product, error) {
	if req.Delta == 0 {
		return nil, fmt.Errorf("%w: delta must not be zero", ErrValidation)
	}

	product, err := s.productRepo.AdjustStock(ctx, id, req.Delta)
	if err != nil {
		if errors.Is(err, repositories.ErrInsufficientStock) {
			s.metrics.ObserveStockAdjustment("rejected")
			return nil, ErrInsufficientStock
		}
		s.metrics.ObserveStockAdjustment("failed")
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	s.metrics.ObserveStockAdjustment("applied")

	movement := &models.StockMovement{
		ProductID: product.ID,
		Delta:     req.Delta,
		Reason:    strings.TrimSpace(req.Reason),
		StockNow:  product.Stock,
		AdminID:   adminID,
	}
	if err := s.productRepo.RecordMovement(ctx, movement); err != nil {
		// stock already changed; the audit row is best effort
		s.logger.Error("Failed to record stock movement",
			zap.String("product_id", product.ID),
			zap.Int("delta", req.Delta),
			zap.Error(err),
		)
	}

	if product.IsLowStock() {
		s.logger.Warn("Product stock is low",
			zap.String("sku", product.SKU),
			zap.Int("stock", product.Stock),
			zap.Int("threshold", product.LowStock),
		)
	}
	return product, nil
}
