package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ak/oms/internal/domain/models"
)

// ErrInsufficientStock is returned when a stock decrement would go negative
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrDuplicateKey is returned when a unique field already exists
var ErrDuplicateKey = errors.New("duplicate key")

// OrderRepository defines operations for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter OrderFilter) ([]*models.Order, int64, error)
}

// OrderFilter narrows order listings. Zero values mean "any".
type OrderFilter struct {
	Status         models.OrderStatus
	PaymentStatus  models.PaymentStatus
	DeliveryMethod models.DeliveryMethod
	From           *time.Time
	To             *time.Time
	Query          string
	Page           int
	Limit          int
}

// OrderSource yields the full order list for whole-list computations
// (duplicate detection, customers, exports). Orders come back oldest first.
type OrderSource interface {
	Name() string
	FetchOrders(ctx context.Context, window TimeWindow) ([]*models.Order, error)
}

// TimeWindow bounds CreatedAt; nil ends are open
type TimeWindow struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t falls inside the window
func (w TimeWindow) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}

// ProductRepository defines operations for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetBySKU(ctx context.Context, sku string) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error // soft delete (active=false)
	List(ctx context.Context, activeOnly bool, page, limit int) ([]*models.Product, int64, error)
	// AdjustStock applies delta atomically and returns the updated product.
	// It fails with ErrInsufficientStock instead of going below zero.
	AdjustStock(ctx context.Context, id string, delta int) (*models.Product, error)
	RecordMovement(ctx context.Context, movement *models.StockMovement) error
}

// AdminRepository defines operations for admin accounts
type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByID(ctx context.Context, id string) (*models.Admin, error)
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}
