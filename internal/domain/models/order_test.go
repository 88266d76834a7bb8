package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      OrderStatus
		expectErr bool
	}{
		{name: "tag", input: "confirmed", want: OrderStatusConfirmed},
		{name: "tagUpperCase", input: " SHIPPED ", want: OrderStatusShipped},
		{name: "displayLabel", input: "已取消", want: OrderStatusCancelled},
		{name: "typo", input: "comfirmed", expectErr: true},
		{name: "empty", input: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrderStatus(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("ParseOrderStatus(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOrderStatus(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseOrderStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePaymentAndDelivery(t *testing.T) {
	if got, err := ParsePaymentStatus("已付款"); err != nil || got != PaymentStatusPaid {
		t.Errorf("ParsePaymentStatus(已付款) = %q, %v", got, err)
	}
	if _, err := ParsePaymentStatus("maybe"); err == nil {
		t.Error("ParsePaymentStatus(maybe) expected error")
	}
	if got, err := ParseDeliveryMethod("宅配"); err != nil || got != DeliveryMethodHome {
		t.Errorf("ParseDeliveryMethod(宅配) = %q, %v", got, err)
	}
	if got, err := ParseDeliveryMethod("store_pickup"); err != nil || got != DeliveryMethodPickup {
		t.Errorf("ParseDeliveryMethod(store_pickup) = %q, %v", got, err)
	}
}

func TestParseOrderSource(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      OrderSource
		expectErr bool
	}{
		{name: "tag", input: "sheets", want: OrderSourceSheets},
		{name: "displayLabel", input: "後台", want: OrderSourceDashboard},
		{name: "typo", input: "dashbaord", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrderSource(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("ParseOrderSource(%q) expected error", tt.input)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseOrderSource(%q) = %q, %v, want %q", tt.input, got, err, tt.want)
			}
		})
	}
	if OrderSource("dashbaord").Valid() {
		t.Error("unknown source should not be valid")
	}
}

func TestOrderStatusLabel(t *testing.T) {
	if got := OrderStatusPending.Label(); got != "待處理" {
		t.Errorf("Label() = %q", got)
	}
	if OrderStatus("bogus").Valid() {
		t.Error("bogus status should be invalid")
	}
}

func TestOrderStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{name: "pendingToConfirmed", from: OrderStatusPending, to: OrderStatusConfirmed, want: true},
		{name: "pendingToCancelled", from: OrderStatusPending, to: OrderStatusCancelled, want: true},
		{name: "pendingToShipped", from: OrderStatusPending, to: OrderStatusShipped, want: false},
		{name: "confirmedToShipped", from: OrderStatusConfirmed, to: OrderStatusShipped, want: true},
		{name: "shippedToCompleted", from: OrderStatusShipped, to: OrderStatusCompleted, want: true},
		{name: "shippedToCancelled", from: OrderStatusShipped, to: OrderStatusCancelled, want: false},
		{name: "completedIsFinal", from: OrderStatusCompleted, to: OrderStatusPending, want: false},
		{name: "cancelledIsFinal", from: OrderStatusCancelled, to: OrderStatusConfirmed, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestOrderCODAmount(t *testing.T) {
	unpaid := &Order{Total: 520, PaymentStatus: PaymentStatusUnpaid}
	paid := &Order{Total: 520, PaymentStatus: PaymentStatusPaid}

	if got := unpaid.CODAmount(); got != 520 {
		t.Errorf("unpaid CODAmount() = %d, want 520", got)
	}
	if got := paid.CODAmount(); got != 0 {
		t.Errorf("paid CODAmount() = %d, want 0", got)
	}
}

func TestOrderItemsTotal(t *testing.T) {
	o := &Order{Items: OrderItems{{Quantity: 2, UnitPrice: 150}, {Quantity: 1, UnitPrice: 80}}}
	if got := o.ItemsTotal(); got != 380 {
		t.Errorf("ItemsTotal() = %d, want 380", got)
	}
}

func TestDuplicateGroupMarshalJSON(t *testing.T) {
	g := DuplicateGroup{
		NormalizedPhone: "0912345678",
		Phone:           "0912-345-678",
		Orders:          []*Order{{ID: "a"}, {ID: "b"}},
	}

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out := string(data)

	for _, want := range []string{`"normalized_phone":"0912345678"`, `"phone":"0912-345-678"`, `"count":2`} {
		if !strings.Contains(out, want) {
			t.Errorf("marshalled group missing %s: %s", want, out)
		}
	}
}

func TestProductIsLowStock(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    bool
	}{
		{name: "belowThreshold", product: Product{Stock: 2, LowStock: 5}, want: true},
		{name: "atThreshold", product: Product{Stock: 5, LowStock: 5}, want: true},
		{name: "aboveThreshold", product: Product{Stock: 6, LowStock: 5}, want: false},
		{name: "noThreshold", product: Product{Stock: 0}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.product.IsLowStock(); got != tt.want {
				t.Errorf("IsLowStock() = %v, want %v", got, tt.want)
			}
		})
	}
}
