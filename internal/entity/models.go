package entity

import (
	"time"
)

// Product represents a product in the store catalog. Rating and ReviewCount
// are derived from the verified review set and never written directly by
// request input.
type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	ImageURL      string  `json:"image_url"`
	Category      string  `json:"category"`
	StockQuantity int     `json:"stock_quantity"`
	Rating        float64 `json:"rating"`
	ReviewCount   int     `json:"review_count"`
}

// OrderItem is a line item within an order. Price is the unit price frozen at
// order-creation time, not a live reference to the product's current price.
type OrderItem struct {
	ID        string  `json:"id"`
	OrderID   string  `json:"order_id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Order represents a customer order.
type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Items         []OrderItem   `json:"items"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TotalAmount   float64       `json:"total_amount"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Review is a customer review of a product, tied to exactly one order item.
// IsVerified is derived from the owning order's status and forward-fixed when
// the order completes.
type Review struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ProductID   string    `json:"product_id"`
	OrderItemID string    `json:"order_item_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
