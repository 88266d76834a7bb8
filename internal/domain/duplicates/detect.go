// Package duplicates finds orders placed with the same phone number.
package duplicates

import (
	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/phone"
)

// Normalizer produces the comparison key for a raw phone
type Normalizer interface {
	Normalize(raw string) string
}

// Detect groups orders by normalized customer phone and returns every group
// with two or more members. Groups appear in the order their phone was first
// seen in orders, and members keep their input order. Orders with an
// unnormalizable phone and nil entries are skipped. The input is not modified.
func Detect(orders []*models.Order, n Normalizer) []models.DuplicateGroup {
	buckets := make(map[string][]*models.Order)
	var keys []string

	for _, order := range orders {
		if order == nil {
			continue
		}
		key := n.Normalize(order.CustomerPhone)
		if key == phone.Unnormalizable {
			continue
		}
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], order)
	}

	groups := make([]models.DuplicateGroup, 0)
	for _, key := range keys {
		members := buckets[key]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, models.DuplicateGroup{
			NormalizedPhone: key,
			Phone:           members[0].CustomerPhone,
			Orders:          members,
		})
	}
	return groups
}

// OrderCount is the number of orders across all groups
func OrderCount(groups []models.DuplicateGroup) int {
	n := 0
	for _, g := range groups {
		n += g.Count()
	}
	return n
}
