package repositories

import (
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/infrastructure/database"
)

// Provider holds all repository instances
type Provider struct {
	Order   OrderStore
	Product repositories.ProductRepository
	Admin   repositories.AdminRepository
}

// NewProvider creates a new repository provider
func NewProvider(db *database.MongoDB) *Provider {
	return &Provider{
		Order:   NewOrderRepository(db),
		Product: NewProductRepository(db),
		Admin:   NewAdminRepository(db),
	}
}
