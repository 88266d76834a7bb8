package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ak/oms/internal/domain/models"
)

// rawOrder is an order row as external sources hand it over: loosely typed
// text. toOrder converts it, reporting every field it could not read.
type rawOrder struct {
	ID             string
	OrderNumber    string
	CustomerName   string
	CustomerPhone  string
	CustomerEmail  string
	Address        string
	Items          string
	Total          string
	Status         string
	PaymentStatus  string
	DeliveryMethod string
	DeliveryDate   string
	Note           string
	CreatedAt      string
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
}

// toOrder always returns an order. Unreadable fields stay at their zero value
// and are reported in the returned error so the caller can log them; the
// phone and identity fields are passed through untouched.
func (r rawOrder) toOrder(source models.OrderSource, loc *time.Location) (*models.Order, error) {
	order := &models.Order{
		ID:            strings.TrimSpace(r.ID),
		OrderNumber:   strings.TrimSpace(r.OrderNumber),
		CustomerName:  strings.TrimSpace(r.CustomerName),
		CustomerPhone: r.CustomerPhone,
		CustomerEmail: strings.TrimSpace(r.CustomerEmail),
		Address:       strings.TrimSpace(r.Address),
		Note:          strings.TrimSpace(r.Note),
		Source:        source,
	}
	if order.ID == "" {
		order.ID = order.OrderNumber
	}

	var errs []error

	items, err := parseItems(r.Items)
	if err != nil {
		errs = append(errs, fmt.Errorf("items: %w", err))
	}
	order.Items = items

	if total := strings.TrimSpace(r.Total); total != "" {
		n, err := parseAmount(total)
		if err != nil {
			errs = append(errs, fmt.Errorf("total: %w", err))
		}
		order.Total = n
	} else {
		order.Total = order.ItemsTotal()
	}

	if s := strings.TrimSpace(r.Status); s != "" {
		status, err := models.ParseOrderStatus(s)
		if err != nil {
			errs = append(errs, err)
		}
		order.Status = status
	} else {
		order.Status = models.OrderStatusPending
	}

	if s := strings.TrimSpace(r.PaymentStatus); s != "" {
		payment, err := models.ParsePaymentStatus(s)
		if err != nil {
			errs = append(errs, err)
		}
		order.PaymentStatus = payment
	} else {
		order.PaymentStatus = models.PaymentStatusUnpaid
	}

	if s := strings.TrimSpace(r.DeliveryMethod); s != "" {
		method, err := models.ParseDeliveryMethod(s)
		if err != nil {
			errs = append(errs, err)
		}
		order.DeliveryMethod = method
	}

	if s := strings.TrimSpace(r.DeliveryDate); s != "" {
		d, err := parseTime(s, loc)
		if err != nil {
			errs = append(errs, fmt.Errorf("delivery date: %w", err))
		} else {
			order.DeliveryDate = &d
		}
	}

	if s := strings.TrimSpace(r.CreatedAt); s != "" {
		t, err := parseTime(s, loc)
		if err != nil {
			errs = append(errs, fmt.Errorf("created at: %w", err))
		}
		order.CreatedAt = t
		order.UpdatedAt = t
	}

	return order, errors.Join(errs...)
}

// parseItems accepts a JSON item list or the legacy delimited text
func parseItems(s string) (models.OrderItems, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.OrderItems{}, nil
	}
	if strings.HasPrefix(s, "[") {
		var items models.OrderItems
		if err := json.Unmarshal([]byte(s), &items); err != nil {
			return models.OrderItems{}, err
		}
		return items, nil
	}
	items, err := models.ParseItemsText(s)
	if err != nil {
		return models.OrderItems{}, err
	}
	return items, nil
}

// parseAmount reads "1,280", "NT$1280" or "1280.00" as whole dollars
func parseAmount(s string) (int, error) {
	cleaned := strings.NewReplacer(",", "", "NT$", "", "$", "", "元", "", " ", "").Replace(s)
	if n, err := strconv.Atoi(cleaned); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return int(f), nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	// Google Forms timestamps carry a 12-hour marker in Chinese
	s = normalizeMeridiem(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{"2006/1/2 PM 3:04:05", "2006-01-02 PM 3:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

func normalizeMeridiem(s string) string {
	s = strings.Replace(s, "上午", "AM", 1)
	return strings.Replace(s, "下午", "PM", 1)
}
