package repository

import (
	"context"

	"github.com/shopforge/storefront/internal/entity"
)

// Tx exposes the row-level primitives available inside one atomic transaction.
// Every read-then-write against shared product or order state goes through a
// Tx so that the store can serialize it against concurrent transactions
// touching the same rows.
type Tx interface {
	// GetProductForUpdate loads a product and locks its row for the rest of
	// the transaction.
	GetProductForUpdate(ctx context.Context, productID string) (*entity.Product, error)
	// ReserveStock atomically decrements stock_quantity if at least qty is
	// available; it returns InsufficientStockError otherwise and mutates
	// nothing. Stock never goes negative.
	ReserveStock(ctx context.Context, productID string, qty int) error
	// ReleaseStock increments stock_quantity by qty.
	ReleaseStock(ctx context.Context, productID string, qty int) error
	// SetProductRating writes the derived rating and verified-review count.
	SetProductRating(ctx context.Context, productID string, rating float64, count int) error
	// VerifiedRatings returns the rating values of the product's currently
	// verified reviews.
	VerifiedRatings(ctx context.Context, productID string) ([]int, error)

	// InsertOrder persists an order and its items as one unit.
	InsertOrder(ctx context.Context, order *entity.Order) error
	// GetOrderForUpdate loads an order with its items and locks the order row.
	GetOrderForUpdate(ctx context.Context, orderID string) (*entity.Order, error)
	SetOrderStatus(ctx context.Context, orderID string, status entity.OrderStatus) error
	SetPaymentStatus(ctx context.Context, orderID string, status entity.PaymentStatus) error
	// DeleteOrder removes the order, its items, and any reviews attached to
	// them.
	DeleteOrder(ctx context.Context, orderID string) error

	// GetOrderItem loads a single order item.
	GetOrderItem(ctx context.Context, orderItemID string) (*entity.OrderItem, error)

	// InsertReview persists a review; a second review for the same order item
	// fails with DuplicateReviewError.
	InsertReview(ctx context.Context, review *entity.Review) error
	GetReviewForUpdate(ctx context.Context, reviewID string) (*entity.Review, error)
	UpdateReview(ctx context.Context, review *entity.Review) error
	DeleteReview(ctx context.Context, reviewID string) error
	SetReviewVerified(ctx context.Context, reviewID string, verified bool) error
	// MarkOrderReviewsVerified flags every review attached to the order's
	// items as verified and returns the distinct product ids affected.
	MarkOrderReviewsVerified(ctx context.Context, orderID string) ([]string, error)
}

// Store is the persistence boundary for the consistency engine. WithinTx runs
// fn inside a single atomic transaction: fn's effects commit together or not
// at all, and conflicts with concurrent transactions surface as
// ErrConcurrencyConflict.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// Plain reads outside any transaction.
	FindProduct(ctx context.Context, productID string) (*entity.Product, error)
	FindProducts(ctx context.Context) ([]entity.Product, error)
	FindOrder(ctx context.Context, orderID string) (*entity.Order, error)
	FindRecentOrders(ctx context.Context, limit int) ([]entity.Order, error)
	FindReview(ctx context.Context, reviewID string) (*entity.Review, error)
	FindReviewsByProduct(ctx context.Context, productID string) ([]entity.Review, error)

	// SeedProducts inserts initial products if the catalog is empty.
	SeedProducts(ctx context.Context, products []entity.Product) error
}
