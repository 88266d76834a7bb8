package models

import "time"

// Product is a sellable item with tracked stock
type Product struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	SKU       string    `bson:"sku" json:"sku"`
	Name      string    `bson:"name" json:"name"`
	Price     int       `bson:"price" json:"price"`
	Stock     int       `bson:"stock" json:"stock"`
	LowStock  int       `bson:"low_stock" json:"low_stock"` // warning threshold
	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsLowStock reports whether stock has reached the warning threshold
func (p *Product) IsLowStock() bool {
	return p.LowStock > 0 && p.Stock <= p.LowStock
}

// StockMovement records one stock adjustment
type StockMovement struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	ProductID string    `bson:"product_id" json:"product_id"`
	Delta     int       `bson:"delta" json:"delta"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	StockNow  int       `bson:"stock_now" json:"stock_now"`
	AdminID   string    `bson:"admin_id,omitempty" json:"admin_id,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
