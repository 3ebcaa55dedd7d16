package entity

import "time"

// Event is a domain event emitted after the owning transaction commits.
type Event interface {
	EventType() string
}

// OrderCreated is emitted when an order is persisted with its reservations.
type OrderCreated struct {
	OrderID     string      `json:"order_id"`
	UserID      string      `json:"user_id"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"total_amount"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (e OrderCreated) EventType() string { return "OrderCreated" }

// OrderCanceled is emitted when an order is canceled and its stock released.
type OrderCanceled struct {
	OrderID    string    `json:"order_id"`
	CanceledBy string    `json:"canceled_by"`
	CanceledAt time.Time `json:"canceled_at"`
}

func (e OrderCanceled) EventType() string { return "OrderCanceled" }

// OrderStatusChanged is emitted on any administrative status transition.
type OrderStatusChanged struct {
	OrderID string      `json:"order_id"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}

func (e OrderStatusChanged) EventType() string { return "OrderStatusChanged" }

// OrderPaid is emitted when the payment collaborator confirms payment.
type OrderPaid struct {
	OrderID string    `json:"order_id"`
	PaidAt  time.Time `json:"paid_at"`
}

func (e OrderPaid) EventType() string { return "OrderPaid" }

// OrderDeleted is emitted when an order is administratively removed.
type OrderDeleted struct {
	OrderID string `json:"order_id"`
}

func (e OrderDeleted) EventType() string { return "OrderDeleted" }

// ReviewChanged is emitted when a review is created, updated, deleted, or has
// its verification flag flipped.
type ReviewChanged struct {
	ReviewID  string `json:"review_id"`
	ProductID string `json:"product_id"`
	Action    string `json:"action"` // "created", "updated", "deleted", "verified", "unverified"
}

func (e ReviewChanged) EventType() string { return "ReviewChanged" }

// ProductRatingChanged is emitted after a rating recompute changes a product's
// displayed rating or review count.
type ProductRatingChanged struct {
	ProductID   string  `json:"product_id"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

func (e ProductRatingChanged) EventType() string { return "ProductRatingChanged" }
