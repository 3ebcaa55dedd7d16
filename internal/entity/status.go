package entity

import "fmt"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusShipped   OrderStatus = "shipped"
	StatusCompleted OrderStatus = "completed"
	StatusCanceled  OrderStatus = "canceled"
)

// orderTransitions is the exhaustive table of legal status transitions.
// completed and canceled are terminal and have no outgoing edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusShipped, StatusCanceled},
	StatusShipped: {StatusCompleted, StatusCanceled},
}

// Terminal reports whether no further transition is permitted out of s.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// CanTransitionTo reports whether s → next is a legal transition.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus validates a raw status string.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch s := OrderStatus(raw); s {
	case StatusPending, StatusShipped, StatusCompleted, StatusCanceled:
		return s, nil
	}
	return "", fmt.Errorf("unknown order status %q", raw)
}

// PaymentStatus tracks payment independently of the order lifecycle.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Actor identifies who requested an operation, for permission checks on
// cancellation and administrative transitions.
type Actor struct {
	UserID string
	Admin  bool
}
