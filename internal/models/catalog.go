package models

import "time"

// Product represents a storefront catalog product. Only active products are
// ever returned by the recommendation engine.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Image     *string   `json:"image,omitempty"`
	Price     float64   `json:"price"`
	Category  *string   `json:"category,omitempty"`
	Stock     int       `json:"stock"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Order represents a placed customer order
type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderItem represents a line item within an order. Co-occurrence analysis
// cares about presence only; Quantity is carried for the catalog importer.
type OrderItem struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ProductCount is a grouped-count row returned by the store's aggregate
// queries (co-occurrence counts, global popularity counts).
type ProductCount struct {
	ProductID string `json:"product_id"`
	Count     int    `json:"count"`
}
