package entity

import (
	"errors"
	"fmt"
)

// ErrConcurrencyConflict indicates a lost race on a locked row. The caller may
// retry the whole operation.
var ErrConcurrencyConflict = errors.New("concurrent modification conflict")

// ErrPaymentRequired indicates a transition gated on payment while the order
// is still unpaid (see the payment-gating policy flag).
var ErrPaymentRequired = errors.New("order must be paid before this transition")

// ValidationError indicates malformed request input (bad quantity, rating out
// of range, wrong owner).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError indicates a missing product, order, order item, or review.
type NotFoundError struct {
	Kind string // "product", "order", "order item", "review"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InsufficientStockError is returned when a reservation would exceed the
// product's available stock. It always names the offending product.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d, available %d)",
		e.ProductID, e.Requested, e.Available)
}

// InvalidTransitionError is returned for an illegal order-status change,
// including cancellation from a non-cancelable state.
type InvalidTransitionError struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: invalid transition %s -> %s", e.OrderID, e.From, e.To)
}

// DuplicateReviewError is returned when a second review targets an order item
// that already has one.
type DuplicateReviewError struct {
	OrderItemID string
}

func (e *DuplicateReviewError) Error() string {
	return fmt.Sprintf("order item %s already has a review", e.OrderItemID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
