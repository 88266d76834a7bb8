package models

import (
	"fmt"
	"strings"
	"time"
)

// Order is a customer order as the dashboard sees it. ID is opaque: it is a
// hex ObjectID for orders stored in MongoDB and whatever key the external
// source uses otherwise.
type Order struct {
	ID             string         `bson:"_id,omitempty" json:"id"`
	OrderNumber    string         `bson:"order_number" json:"order_number"`
	CustomerName   string         `bson:"customer_name" json:"customer_name"`
	CustomerPhone  string         `bson:"customer_phone" json:"customer_phone"`
	CustomerEmail  string         `bson:"customer_email,omitempty" json:"customer_email,omitempty"`
	Address        string         `bson:"address,omitempty" json:"address,omitempty"`
	Items          OrderItems     `bson:"items" json:"items"`
	Total          int            `bson:"total" json:"total"` // NT$, no minor unit
	Status         OrderStatus    `bson:"status" json:"status"`
	PaymentStatus  PaymentStatus  `bson:"payment_status" json:"payment_status"`
	DeliveryMethod DeliveryMethod `bson:"delivery_method" json:"delivery_method"`
	DeliveryDate   *time.Time     `bson:"delivery_date,omitempty" json:"delivery_date,omitempty"`
	Note           string         `bson:"note,omitempty" json:"note,omitempty"`
	Source         OrderSource    `bson:"source" json:"source"`
	CreatedBy      string         `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt      time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `bson:"updated_at" json:"updated_at"`
}

// ItemsTotal sums quantity times unit price over all items
func (o *Order) ItemsTotal() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity * item.UnitPrice
	}
	return total
}

// CODAmount is the amount the courier collects on delivery
func (o *Order) CODAmount() int {
	if o.PaymentStatus == PaymentStatusUnpaid {
		return o.Total
	}
	return 0
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:   "待處理",
	OrderStatusConfirmed: "已確認",
	OrderStatusShipped:   "已出貨",
	OrderStatusCompleted: "已完成",
	OrderStatusCancelled: "已取消",
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusCompleted},
}

// Label returns the dashboard display string
func (s OrderStatus) Label() string { return orderStatusLabels[s] }

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// CanTransitionTo reports whether an order may move from s to next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus accepts a tag or its display label
func ParseOrderStatus(s string) (OrderStatus, error) {
	tag, ok := parseTag(s, orderStatusLabels)
	if !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return tag, nil
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentStatusLabels = map[PaymentStatus]string{
	PaymentStatusUnpaid:   "未付款",
	PaymentStatusPaid:     "已付款",
	PaymentStatusRefunded: "已退款",
}

func (s PaymentStatus) Label() string { return paymentStatusLabels[s] }

func (s PaymentStatus) Valid() bool {
	_, ok := paymentStatusLabels[s]
	return ok
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	tag, ok := parseTag(s, paymentStatusLabels)
	if !ok {
		return "", fmt.Errorf("unknown payment status %q", s)
	}
	return tag, nil
}

type DeliveryMethod string

const (
	DeliveryMethodHome   DeliveryMethod = "home_delivery"
	DeliveryMethodPickup DeliveryMethod = "store_pickup"
)

var deliveryMethodLabels = map[DeliveryMethod]string{
	DeliveryMethodHome:   "宅配",
	DeliveryMethodPickup: "自取",
}

func (m DeliveryMethod) Label() string { return deliveryMethodLabels[m] }

func (m DeliveryMethod) Valid() bool {
	_, ok := deliveryMethodLabels[m]
	return ok
}

func ParseDeliveryMethod(s string) (DeliveryMethod, error) {
	tag, ok := parseTag(s, deliveryMethodLabels)
	if !ok {
		return "", fmt.Errorf("unknown delivery method %q", s)
	}
	return tag, nil
}

type OrderSource string

const (
	OrderSourceDashboard OrderSource = "dashboard"
	OrderSourceAPI       OrderSource = "api"
	OrderSourceSupabase  OrderSource = "supabase"
	OrderSourceSheets    OrderSource = "sheets"
)

var orderSourceLabels = map[OrderSource]string{
	OrderSourceDashboard: "後台",
	OrderSourceAPI:       "API",
	OrderSourceSupabase:  "Supabase",
	OrderSourceSheets:    "試算表",
}

func (s OrderSource) Label() string { return orderSourceLabels[s] }

func (s OrderSource) Valid() bool {
	_, ok := orderSourceLabels[s]
	return ok
}

func ParseOrderSource(s string) (OrderSource, error) {
	tag, ok := parseTag(s, orderSourceLabels)
	if !ok {
		return "", fmt.Errorf("unknown order source %q", s)
	}
	return tag, nil
}

// parseTag is the single translation point between display strings and tags
func parseTag[T ~string](s string, labels map[T]string) (T, bool) {
	s = strings.TrimSpace(s)
	for tag, label := range labels {
		if strings.EqualFold(s, string(tag)) || s == label {
			return tag, true
		}
	}
	var zero T
	return zero, false
}
