package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ak/oms/internal/domain/duplicates"
	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/phone"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/pkg/logger"
	"github.com/ak/oms/internal/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService handles order business logic
type OrderService interface {
	List(ctx context.Context, filter repositories.OrderFilter) ([]*models.Order, int64, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	Create(ctx context.Context, req CreateOrderRequest, adminID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	UpdatePayment(ctx context.Context, id string, payment models.PaymentStatus) (*models.Order, error)
	Delete(ctx context.Context, id string) error
	// FindDuplicates always fetches a fresh list from the order source
	FindDuplicates(ctx context.Context, window repositories.TimeWindow) ([]models.DuplicateGroup, error)
	// Snapshot returns the cached full order list, refetching once it is stale
	Snapshot(ctx context.Context) ([]*models.Order, error)
	// Fetch reads the source directly, bypassing the snapshot
	Fetch(ctx context.Context, window repositories.TimeWindow) ([]*models.Order, error)
	Invalidate()
	Normalizer() *phone.Normalizer
}

type CreateOrderRequest struct {
	OrderNumber    string            `json:"order_number"`
	CustomerName   string            `json:"customer_name"`
	CustomerPhone  string            `json:"customer_phone"`
	CustomerEmail  string            `json:"customer_email"`
	Address        string            `json:"address"`
	Items          models.OrderItems `json:"items"`
	Total          *int              `json:"total"`
	PaymentStatus  string            `json:"payment_status"`
	DeliveryMethod string            `json:"delivery_method"`
	DeliveryDate   *time.Time        `json:"delivery_date"`
	Note           string            `json:"note"`
	Source         string            `json:"source"`
}

// OrderPolicy carries the business rules that come from configuration
type OrderPolicy struct {
	ExcludedDeliveryDays []time.Weekday
	PhoneRegion          string
	CacheTTL             time.Duration
	Location             *time.Location
}

type orderService struct {
	orderRepo  repositories.OrderRepository
	source     repositories.OrderSource
	normalizer *phone.Normalizer
	policy     OrderPolicy
	metrics    *metrics.Registry
	logger     *logger.Logger

	mu        sync.RWMutex
	snapshot  []*models.Order
	fetchedAt time.Time
	gen       uint64 // bumped by Invalidate; a fetch started under an older gen is not stored
	now       func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo repositories.OrderRepository,
	source repositories.OrderSource,
	normalizer *phone.Normalizer,
	policy OrderPolicy,
	m *metrics.Registry,
	log *logger.Logger,
) OrderService {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &orderService{
		orderRepo:  orderRepo,
		source:     source,
		normalizer: normalizer,
		policy:     policy,
		metrics:    m,
		logger:     log.WithComponent("order-service"),
		now:        time.Now,
	}
}

func (s *orderService) Normalizer() *phone.Normalizer { return s.normalizer }

func (s *orderService) List(ctx context.Context, filter repositories.OrderFilter) ([]*models.Order, int64, error) {
	return s.orderRepo.List(ctx, filter)
}

func (s *orderService) Get(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) Create(ctx context.Context, req CreateOrderRequest, adminID string) (*models.Order, error) {
	order, err := s.buildOrder(req)
	if err != nil {
		return nil, err
	}
	order.CreatedBy = adminID

	// Plausibility only. The duplicate key never depends on this check.
	if err := phone.Validate(order.CustomerPhone, s.policy.PhoneRegion); err != nil {
		s.logger.Warn("Customer phone looks implausible",
			zap.String("order_number", order.OrderNumber),
			zap.String("phone", order.CustomerPhone),
			zap.Error(err),
		)
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrOrderExists
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.Invalidate()
	s.logger.WithOrder(order.ID).Info("Order created",
		zap.String("order_number", order.OrderNumber),
		zap.String("created_by", adminID),
	)
	return order, nil
}

func (s *orderService) buildOrder(req CreateOrderRequest) (*models.Order, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, fmt.Errorf("%w: customer_name is required", ErrValidation)
	}
	if phone.Digits(req.CustomerPhone) == "" {
		return nil, fmt.Errorf("%w: customer_phone must contain digits", ErrValidation)
	}

	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("%w: item %d has no name", ErrValidation, i+1)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %q needs a positive quantity", ErrValidation, item.Name)
		}
		if item.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: item %q has a negative price", ErrValidation, item.Name)
		}
	}

	method, err := models.ParseDeliveryMethod(req.DeliveryMethod)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	payment := models.PaymentStatusUnpaid
	if req.PaymentStatus != "" {
		if payment, err = models.ParsePaymentStatus(req.PaymentStatus); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	if method == models.DeliveryMethodHome {
		if strings.TrimSpace(req.Address) == "" {
			return nil, fmt.Errorf("%w: address is required for home delivery", ErrValidation)
		}
		if req.DeliveryDate != nil {
			day := req.DeliveryDate.In(s.policy.Location).Weekday()
			if slices.Contains(s.policy.ExcludedDeliveryDays, day) {
				return nil, fmt.Errorf("%w: no home delivery on %s", ErrValidation, day)
			}
		}
	}

	source := models.OrderSourceDashboard
	if req.Source != "" {
		if source, err = models.ParseOrderSource(req.Source); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	order := &models.Order{
		OrderNumber:    strings.TrimSpace(req.OrderNumber),
		CustomerName:   name,
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
		Address:        strings.TrimSpace(req.Address),
		Items:          req.Items,
		Status:         models.OrderStatusPending,
		PaymentStatus:  payment,
		DeliveryMethod: method,
		DeliveryDate:   req.DeliveryDate,
		Note:           strings.TrimSpace(req.Note),
		Source:         source,
	}

	order.Total = order.ItemsTotal()
	if req.Total != nil {
		if *req.Total < 0 {
			return nil, fmt.Errorf("%w: total cannot be negative", ErrValidation)
		}
		order.Total = *req.Total
	}

	if order.OrderNumber == "" {
		order.OrderNumber = s.newOrderNumber()
	}
	return order, nil
}

func (s *orderService) newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", s.now().In(s.policy.Location).Format("20060102"), suffix)
}

func (s *orderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status == status {
		return order, nil
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, status)
	}

	previous := order.Status
	order.Status = status
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.Invalidate()
	s.logger.WithOrder(order.ID).Info("Order status changed",
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
	)
	return order, nil
}

func (s *orderService) UpdatePayment(ctx context.Context, id string, payment models.PaymentStatus) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == payment {
		return order, nil
	}
	// refunds only make sense for money that was received
	if payment == models.PaymentStatusRefunded && order.PaymentStatus != models.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.PaymentStatus, payment)
	}

	order.PaymentStatus = payment
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.Invalidate()
	return order, nil
}

func (s *orderService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	s.Invalidate()
	return nil
}

func (s *orderService) Fetch(ctx context.Context, window repositories.TimeWindow) ([]*models.Order, error) {
	orders, err := s.source.FetchOrders(ctx, window)
	if err != nil {
		s.metrics.ObserveSourceError(s.source.Name())
		s.logger.Error("Order source fetch failed",
			zap.String("driver", s.source.Name()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return orders, nil
}

func (s *orderService) FindDuplicates(ctx context.Context, window repositories.TimeWindow) ([]models.DuplicateGroup, error) {
	gen := s.generation()
	orders, err := s.Fetch(ctx, window)
	if err != nil {
		return nil, err
	}

	if window.From == nil && window.To == nil {
		s.store(orders, gen)
	}

	groups := duplicates.Detect(orders, s.normalizer)
	flagged := duplicates.OrderCount(groups)
	s.metrics.ObserveDetection(len(groups), flagged)

	s.logger.Debug("Duplicate detection finished",
		zap.String("driver", s.source.Name()),
		zap.Int("orders", len(orders)),
		zap.Int("groups", len(groups)),
		zap.Int("flagged", flagged),
	)
	return groups, nil
}

func (s *orderService) Snapshot(ctx context.Context) ([]*models.Order, error) {
	s.mu.RLock()
	if s.snapshot != nil && s.now().Sub(s.fetchedAt) < s.policy.CacheTTL {
		orders := s.snapshot
		s.mu.RUnlock()
		return orders, nil
	}
	gen := s.gen
	s.mu.RUnlock()

	orders, err := s.Fetch(ctx, repositories.TimeWindow{})
	if err != nil {
		return nil, err
	}
	s.store(orders, gen)
	return orders, nil
}

func (s *orderService) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// store caches orders unless the snapshot was invalidated after gen was read
func (s *orderService) store(orders []*models.Order, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.snapshot = orders
	s.fetchedAt = s.now()
}

func (s *orderService) Invalidate() {
	s.mu.Lock()
	s.gen++
	s.snapshot = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}
