package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/repositories"
)

// MockOrderRepo is an in-memory OrderRepository for testing
type MockOrderRepo struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
	seq    int

	CreateFunc func(ctx context.Context, order *models.Order) error
	UpdateFunc func(ctx context.Context, order *models.Order) error
}

func NewMockOrderRepo(orders ...*models.Order) *MockOrderRepo {
	m := &MockOrderRepo{orders: make(map[string]*models.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *MockOrderRepo) Create(ctx context.Context, order *models.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	order.ID = fmt.Sprintf("order-%d", m.seq)
	m.orders[order.ID] = order
	return nil
}

func (m *MockOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (m *MockOrderRepo) Update(ctx context.Context, order *models.Order) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *MockOrderRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	return nil
}

func (m *MockOrderRepo) List(ctx context.Context, filter repositories.OrderFilter) ([]*models.Order, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Order
	for _, o := range m.orders {
		if filter.Status == "" || o.Status == filter.Status {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

// MockOrderSource serves a fixed order list and counts fetches
type MockOrderSource struct {
	mu     sync.Mutex
	Orders []*models.Order
	Err    error
	Calls  int

	FetchFunc func(ctx context.Context, window repositories.TimeWindow) ([]*models.Order, error)
}

func (m *MockOrderSource) Name() string { return "mock" }

func (m *MockOrderSource) FetchOrders(ctx context.Context, window repositories.TimeWindow) ([]*models.Order, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, window)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Orders, nil
}

// MockProductRepo is an in-memory ProductRepository for testing
type MockProductRepo struct {
	mu        sync.Mutex
	products  map[string]*models.Product
	Movements []*models.StockMovement

	CreateFunc         func(ctx context.Context, product *models.Product) error
	RecordMovementFunc func(ctx context.Context, movement *models.StockMovement) error
}

func NewMockProductRepo(products ...*models.Product) *MockProductRepo {
	m := &MockProductRepo{products: make(map[string]*models.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *MockProductRepo) Create(ctx context.Context, product *models.Product) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, product)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	product.ID = fmt.Sprintf("product-%d", len(m.products)+1)
	product.Active = true
	m.products[product.ID] = product
	return nil
}

func (m *MockProductRepo) GetByID(ctx context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (m *MockProductRepo) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.SKU == sku {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockProductRepo) Update(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = product
	return nil
}

func (m *MockProductRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		p.Active = false
	}
	return nil
}

func (m *MockProductRepo) List(ctx context.Context, activeOnly bool, page, limit int) ([]*models.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Product
	for _, p := range m.products {
		if !activeOnly || p.Active {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (m *MockProductRepo) AdjustStock(ctx context.Context, id string, delta int) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	if p.Stock+delta < 0 {
		return nil, repositories.ErrInsufficientStock
	}
	p.Stock += delta
	copied := *p
	return &copied, nil
}

func (m *MockProductRepo) RecordMovement(ctx context.Context, movement *models.StockMovement) error {
	if m.RecordMovementFunc != nil {
		return m.RecordMovementFunc(ctx, movement)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Movements = append(m.Movements, movement)
	return nil
}

// MockAdminRepo is an in-memory AdminRepository for testing
type MockAdminRepo struct {
	mu      sync.Mutex
	admins  map[string]*models.Admin
	Touched map[string]time.Time
}

func NewMockAdminRepo(admins ...*models.Admin) *MockAdminRepo {
	m := &MockAdminRepo{admins: make(map[string]*models.Admin), Touched: make(map[string]time.Time)}
	for _, a := range admins {
		m.admins[a.ID] = a
	}
	return m
}

func (m *MockAdminRepo) Create(ctx context.Context, admin *models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.Username == admin.Username {
			return repositories.ErrDuplicateKey
		}
	}
	admin.ID = fmt.Sprintf("admin-%d", len(m.admins)+1)
	m.admins[admin.ID] = admin
	return nil
}

func (m *MockAdminRepo) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.admins[id], nil
}

func (m *MockAdminRepo) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.Username == username {
			return a, nil
		}
	}
	return nil, nil
}

func (m *MockAdminRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Touched[id] = at
	return nil
}

// MockKeycloakService returns a canned identity
type MockKeycloakService struct {
	AuthenticateFunc func(ctx context.Context, username, password string) (*KeycloakIdentity, error)
}

func (m *MockKeycloakService) Authenticate(ctx context.Context, username, password string) (*KeycloakIdentity, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, username, password)
	}
	return nil, ErrInvalidCredentials
}
