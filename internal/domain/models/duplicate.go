package models

import "encoding/json"

// DuplicateGroup is a set of two or more orders whose phones normalize to the
// same key. Groups are rebuilt on every detection run and never stored.
type DuplicateGroup struct {
	NormalizedPhone string
	// Phone is the raw phone of the first member, for display
	Phone  string
	Orders []*Order
}

// Count is the number of member orders
func (g DuplicateGroup) Count() int { return len(g.Orders) }

func (g DuplicateGroup) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		NormalizedPhone string   `json:"normalized_phone"`
		Phone           string   `json:"phone"`
		Orders          []*Order `json:"orders"`
		Count           int      `json:"count"`
	}{
		NormalizedPhone: g.NormalizedPhone,
		Phone:           g.Phone,
		Orders:          g.Orders,
		Count:           g.Count(),
	})
}
