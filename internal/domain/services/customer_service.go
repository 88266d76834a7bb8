package services

import (
	"context"
	"sort"
	"strings"

	"github.com/ak/oms/internal/domain/duplicates"
	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/phone"
)

// CustomerService exposes the customer view derived from orders
type CustomerService interface {
	List(ctx context.Context, query string, page, limit int) ([]models.Customer, int64, error)
}

type customerService struct {
	orders OrderService
}

func NewCustomerService(orders OrderService) CustomerService {
	return &customerService{orders: orders}
}

func (s *customerService) List(ctx context.Context, query string, page, limit int) ([]models.Customer, int64, error) {
	orders, err := s.orders.Snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}

	customers := filterCustomers(AggregateCustomers(orders, s.orders.Normalizer()), query)
	total := int64(len(customers))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(customers) {
		return []models.Customer{}, total, nil
	}
	end := min(start+limit, len(customers))
	return customers[start:end], total, nil
}

// AggregateCustomers folds orders into one customer per normalized phone.
// Name and phone come from the most recent order. Cancelled and refunded
// orders count towards OrderCount but not TotalSpent. The result is sorted by
// LastOrderAt, newest first.
func AggregateCustomers(orders []*models.Order, n duplicates.Normalizer) []models.Customer {
	byKey := make(map[string]*models.Customer)
	for _, o := range orders {
		if o == nil {
			continue
		}
		key := n.Normalize(o.CustomerPhone)
		if key == phone.Unnormalizable {
			continue
		}

		c, ok := byKey[key]
		if !ok {
			c = &models.Customer{NormalizedPhone: key}
			byKey[key] = c
		}

		c.OrderCount++
		if o.Status != models.OrderStatusCancelled && o.PaymentStatus != models.PaymentStatusRefunded {
			c.TotalSpent += o.Total
		}
		if c.OrderCount == 1 || !o.CreatedAt.Before(c.LastOrderAt) {
			c.LastOrderAt = o.CreatedAt
			c.Name = o.CustomerName
			c.Phone = o.CustomerPhone
			if o.CustomerEmail != "" {
				c.Email = o.CustomerEmail
			}
		}
		if c.Email == "" {
			c.Email = o.CustomerEmail
		}
	}

	customers := make([]models.Customer, 0, len(byKey))
	for _, c := range byKey {
		customers = append(customers, *c)
	}
	sort.Slice(customers, func(i, j int) bool {
		if !customers[i].LastOrderAt.Equal(customers[j].LastOrderAt) {
			return customers[i].LastOrderAt.After(customers[j].LastOrderAt)
		}
		return customers[i].NormalizedPhone < customers[j].NormalizedPhone
	})
	return customers
}

func filterCustomers(customers []models.Customer, query string) []models.Customer {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return customers
	}
	digits := phone.Digits(query)

	filtered := make([]models.Customer, 0)
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), query) ||
			strings.Contains(strings.ToLower(c.Email), query) ||
			(digits != "" && strings.Contains(phone.Digits(c.Phone), digits)) ||
			(digits != "" && strings.Contains(c.NormalizedPhone, digits)) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
