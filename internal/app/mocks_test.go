package app

import (
	"context"
	"io"
	"strings"

	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/phone"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/domain/services"
	"github.com/ak/oms/internal/infrastructure/export"
)

// MockOrderService is a function-field OrderService
type MockOrderService struct {
	ListFunc           func(ctx context.Context, filter repositories.OrderFilter) ([]*models.Order, int64, error)
	GetFunc            func(ctx context.Context, id string) (*models.Order, error)
	CreateFunc         func(ctx context.Context, req services.CreateOrderRequest, adminID string) (*models.Order, error)
	UpdateStatusFunc   func(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	UpdatePaymentFunc  func(ctx context.Context, id string, payment models.PaymentStatus) (*models.Order, error)
	DeleteFunc         func(ctx context.Context, id string) error
	FindDuplicatesFunc func(ctx context.Context, window repositories.TimeWindow) ([]models.DuplicateGroup, error)
	SnapshotFunc       func(ctx context.Context) ([]*models.Order, error)

	Invalidated int
}

func (m *MockOrderService) List(ctx context.Context, filter repositories.OrderFilter) ([]*models.Order, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *MockOrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, services.ErrOrderNotFound
}

func (m *MockOrderService) Create(ctx context.Context, req services.CreateOrderRequest, adminID string) (*models.Order, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req, adminID)
	}
	return &models.Order{ID: "new", CustomerName: req.CustomerName, CreatedBy: adminID}, nil
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return &models.Order{ID: id, Status: status}, nil
}

func (m *MockOrderService) UpdatePayment(ctx context.Context, id string, payment models.PaymentStatus) (*models.Order, error) {
	if m.UpdatePaymentFunc != nil {
		return m.UpdatePaymentFunc(ctx, id, payment)
	}
	return &models.Order{ID: id, PaymentStatus: payment}, nil
}

func (m *MockOrderService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockOrderService) FindDuplicates(ctx context.Context, window repositories.TimeWindow) ([]models.DuplicateGroup, error) {
	if m.FindDuplicatesFunc != nil {
		return m.FindDuplicatesFunc(ctx, window)
	}
	return nil, nil
}

func (m *MockOrderService) Snapshot(ctx context.Context) ([]*models.Order, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx)
	}
	return nil, nil
}

func (m *MockOrderService) Fetch(ctx context.Context, window repositories.TimeWindow) ([]*models.Order, error) {
	return m.Snapshot(ctx)
}

func (m *MockOrderService) Invalidate() { m.Invalidated++ }

func (m *MockOrderService) Normalizer() *phone.Normalizer {
	return phone.NewNormalizer(phone.DefaultPolicy())
}

// MockProductService is a function-field ProductService
type MockProductService struct {
	GetFunc         func(ctx context.Context, id string) (*models.Product, error)
	AdjustStockFunc func(ctx context.Context, id string, req services.StockAdjustment, adminID string) (*models.Product, error)
}

func (m *MockProductService) List(ctx context.Context, activeOnly bool, page, limit int) ([]*models.Product, int64, error) {
	return []*models.Product{{ID: "p1", Active: true}}, 1, nil
}

func (m *MockProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, services.ErrProductNotFound
}

func (m *MockProductService) Create(ctx context.Context, req services.ProductRequest) (*models.Product, error) {
	return &models.Product{ID: "p-new", SKU: req.SKU, Name: req.Name, Active: true}, nil
}

func (m *MockProductService) Update(ctx context.Context, id string, req services.ProductRequest) (*models.Product, error) {
	return &models.Product{ID: id, SKU: req.SKU, Name: req.Name}, nil
}

func (m *MockProductService) Delete(ctx context.Context, id string) error { return nil }

func (m *MockProductService) AdjustStock(ctx context.Context, id string, req services.StockAdjustment, adminID string) (*models.Product, error) {
	if m.AdjustStockFunc != nil {
		return m.AdjustStockFunc(ctx, id, req, adminID)
	}
	return &models.Product{ID: id, Stock: req.Delta}, nil
}

// MockCustomerService returns a fixed customer page
type MockCustomerService struct {
	Customers []models.Customer
	Err       error
}

func (m *MockCustomerService) List(ctx context.Context, query string, page, limit int) ([]models.Customer, int64, error) {
	return m.Customers, int64(len(m.Customers)), m.Err
}

// MockAuthService authenticates from a username/password map
type MockAuthService struct {
	Admins    map[string]*models.Admin
	Passwords map[string]string
	Err       error
}

func (m *MockAuthService) Authenticate(ctx context.Context, username, password string) (*models.Admin, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	admin, ok := m.Admins[username]
	if !ok || m.Passwords[username] != password {
		return nil, services.ErrInvalidCredentials
	}
	return admin, nil
}

func (m *MockAuthService) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	for _, a := range m.Admins {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, services.ErrAdminNotFound
}

func (m *MockAuthService) Reload(ctx context.Context, current *models.Admin) (*models.Admin, error) {
	if strings.HasPrefix(current.ID, "kc:") {
		return current, nil
	}
	for _, a := range m.Admins {
		if a.ID == current.ID {
			if !a.Active {
				return nil, services.ErrAccountRevoked
			}
			return a, nil
		}
	}
	return nil, services.ErrAccountRevoked
}

func (m *MockAuthService) CreateAdmin(ctx context.Context, req services.CreateAdminRequest) (*models.Admin, error) {
	return &models.Admin{ID: "new", Username: req.Username}, nil
}

// MockExportService writes a fixed payload
type MockExportService struct {
	ManifestFunc func(ctx context.Context, req services.ManifestRequest, w io.Writer) (export.Result, error)
	LastRequest  services.ManifestRequest
}

func (m *MockExportService) Manifest(ctx context.Context, req services.ManifestRequest, w io.Writer) (export.Result, error) {
	m.LastRequest = req
	if m.ManifestFunc != nil {
		return m.ManifestFunc(ctx, req, w)
	}
	io.WriteString(w, "訂單號碼\r\n")
	return export.Result{
		Courier:     req.Courier,
		BatchID:     "0123456789abcdef",
		Rows:        0,
		ContentType: "text/csv; charset=utf-8",
		Extension:   "csv",
		Encoding:    "utf-8",
	}, nil
}

// stubStore is a HealthChecker with a canned answer
type stubStore struct{ err error }

func (s stubStore) Health(ctx context.Context) error { return s.err }
