package models

import "time"

// Customer is derived from orders sharing a normalized phone; it is never stored.
type Customer struct {
	NormalizedPhone string    `json:"normalized_phone"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email,omitempty"`
	OrderCount      int       `json:"order_count"`
	TotalSpent      int       `json:"total_spent"`
	LastOrderAt     time.Time `json:"last_order_at"`
}
