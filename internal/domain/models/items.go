package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// OrderItem is one line of an order
type OrderItem struct {
	ProductID string `bson:"product_id,omitempty" json:"product_id,omitempty"`
	Name      string `bson:"name" json:"name"`
	Quantity  int    `bson:"quantity" json:"quantity"`
	UnitPrice int    `bson:"unit_price" json:"unit_price"`
}

// OrderItems accepts both the structured list and the legacy delimited
// string ("雞胸肉 x2, 牛肉 x1") when decoded from JSON. Everything past
// ingestion sees the list form only.
type OrderItems []OrderItem

func (items *OrderItems) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*items = nil
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		parsed, err := ParseItemsText(text)
		if err != nil {
			return err
		}
		*items = parsed
		return nil
	}

	var list []OrderItem
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("items must be a list or a delimited string: %w", err)
	}
	*items = list
	return nil
}

// Summary renders items for manifests and CSV cells: "雞胸肉 x2; 牛肉 x1"
func (items OrderItems) Summary() string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}
	return strings.Join(parts, "; ")
}

// Quantity is the total number of units across all lines
func (items OrderItems) Quantity() int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

var itemSeparators = []string{"\n", ";", "；", ",", "，", "、"}

var quantityMarkers = []rune{'x', 'X', '*', '×', '＊'}

// ParseItemsText converts the legacy delimited item string into items.
// A line without a quantity marker counts as one unit.
func ParseItemsText(text string) (OrderItems, error) {
	normalized := text
	for _, sep := range itemSeparators[1:] {
		normalized = strings.ReplaceAll(normalized, sep, itemSeparators[0])
	}

	var items OrderItems
	for _, part := range strings.Split(normalized, itemSeparators[0]) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, qty, err := splitQuantity(part)
		if err != nil {
			return nil, err
		}
		items = append(items, OrderItem{Name: name, Quantity: qty})
	}
	return items, nil
}

func splitQuantity(part string) (string, int, error) {
	runes := []rune(part)

	end := len(runes)
	start := end
	for start > 0 && unicode.IsDigit(runes[start-1]) {
		start--
	}
	if start == end || start == 0 {
		return part, 1, nil
	}

	marker := start - 1
	for marker > 0 && unicode.IsSpace(runes[marker]) {
		marker--
	}
	if !isQuantityMarker(runes[marker]) {
		return part, 1, nil
	}
	// "Box 12" is a name, "Milk x2" and "雞胸肉x2" carry a quantity
	if unicode.IsLetter(runes[marker]) && marker > 0 && runes[marker-1] < unicode.MaxASCII && unicode.IsLetter(runes[marker-1]) {
		return part, 1, nil
	}

	name := strings.TrimSpace(string(runes[:marker]))
	if name == "" {
		return "", 0, fmt.Errorf("item %q has no name", part)
	}
	qty, err := strconv.Atoi(string(runes[start:end]))
	if err != nil || qty <= 0 {
		return "", 0, fmt.Errorf("item %q has invalid quantity", part)
	}
	return name, qty, nil
}

func isQuantityMarker(r rune) bool {
	for _, m := range quantityMarkers {
		if r == m {
			return true
		}
	}
	return false
}
