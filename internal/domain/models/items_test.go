package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseItemsText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		want      OrderItems
		expectErr bool
	}{
		{
			name: "commaSeparatedWithX",
			text: "雞胸肉 x2, 牛肉 x1",
			want: OrderItems{{Name: "雞胸肉", Quantity: 2}, {Name: "牛肉", Quantity: 1}},
		},
		{
			name: "mixedSeparatorsAndMarkers",
			text: "雞胸肉*3、鮭魚×2；豆腐 X 10\n滷蛋",
			want: OrderItems{
				{Name: "雞胸肉", Quantity: 3},
				{Name: "鮭魚", Quantity: 2},
				{Name: "豆腐", Quantity: 10},
				{Name: "滷蛋", Quantity: 1},
			},
		},
		{
			name: "cjkNameWithLetterMarker",
			text: "雞胸肉x4",
			want: OrderItems{{Name: "雞胸肉", Quantity: 4}},
		},
		{
			name: "trailingNumberIsPartOfName",
			text: "Box 12",
			want: OrderItems{{Name: "Box 12", Quantity: 1}},
		},
		{
			name: "emptyPartsSkipped",
			text: " , 牛肉 x1,, ",
			want: OrderItems{{Name: "牛肉", Quantity: 1}},
		},
		{
			name: "emptyString",
			text: "",
			want: nil,
		},
		{
			name:      "zeroQuantity",
			text:      "牛肉 x0",
			expectErr: true,
		},
		{
			name:      "markerWithoutName",
			text:      "x2",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseItemsText(tt.text)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("ParseItemsText(%q) expected error, got %v", tt.text, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseItemsText(%q) error = %v", tt.text, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseItemsText(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestOrderItemsUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want OrderItems
	}{
		{
			name: "structuredList",
			body: `{"items":[{"name":"牛肉","quantity":2,"unit_price":150}]}`,
			want: OrderItems{{Name: "牛肉", Quantity: 2, UnitPrice: 150}},
		},
		{
			name: "legacyString",
			body: `{"items":"牛肉 x2, 豆腐 x1"}`,
			want: OrderItems{{Name: "牛肉", Quantity: 2}, {Name: "豆腐", Quantity: 1}},
		},
		{
			name: "null",
			body: `{"items":null}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var order Order
			if err := json.Unmarshal([]byte(tt.body), &order); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !reflect.DeepEqual(order.Items, tt.want) {
				t.Errorf("Items = %+v, want %+v", order.Items, tt.want)
			}
		})
	}
}

func TestOrderItemsUnmarshalJSONRejectsObjects(t *testing.T) {
	var order Order
	if err := json.Unmarshal([]byte(`{"items":{"name":"牛肉"}}`), &order); err == nil {
		t.Error("expected error for object-shaped items")
	}
}

func TestOrderItemsSummaryAndQuantity(t *testing.T) {
	items := OrderItems{{Name: "牛肉", Quantity: 2}, {Name: "豆腐", Quantity: 1}}

	if got, want := items.Summary(), "牛肉 x2; 豆腐 x1"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
	if got := items.Quantity(); got != 3 {
		t.Errorf("Quantity() = %d, want 3", got)
	}
}
