package service

import (
	"context"
	"log/slog"

	"github.com/shopforge/storefront/internal/entity"
	"github.com/shopforge/storefront/internal/messaging"
)

// ProductCache is a read-through cache for product summaries. Entries are
// invalidated after any committed transaction that touched the product's
// stock or rating.
type ProductCache interface {
	Get(ctx context.Context, productID string) (*entity.Product, bool)
	Set(ctx context.Context, product *entity.Product)
	Invalidate(ctx context.Context, productID string)
}

// NopCache satisfies ProductCache when caching is disabled.
type NopCache struct{}

func (NopCache) Get(ctx context.Context, productID string) (*entity.Product, bool) { return nil, false }
func (NopCache) Set(ctx context.Context, product *entity.Product)                  {}
func (NopCache) Invalidate(ctx context.Context, productID string)                  {}

// sideEffects accumulates work that must run strictly after the owning
// transaction commits: domain events and cache invalidations. Nothing here
// ever runs while a stock or order row is locked.
type sideEffects struct {
	events        []entity.Event
	staleProducts []string
}

func (fx *sideEffects) emit(e entity.Event) {
	fx.events = append(fx.events, e)
}

func (fx *sideEffects) invalidate(productID string) {
	for _, id := range fx.staleProducts {
		if id == productID {
			return
		}
	}
	fx.staleProducts = append(fx.staleProducts, productID)
}

// notifier flushes side effects post-commit. Publish failures are logged and
// never surfaced: committed state is the source of truth, events are
// best-effort notifications.
type notifier struct {
	publisher messaging.Publisher
	cache     ProductCache
}

func (n *notifier) flush(ctx context.Context, fx *sideEffects) {
	for _, id := range fx.staleProducts {
		n.cache.Invalidate(ctx, id)
	}
	for _, e := range fx.events {
		topic, key := routeEvent(e)
		if err := n.publisher.PublishEvent(ctx, topic, key, e); err != nil {
			slog.Error("Failed to publish event", "topic", topic, "event", e.EventType(), "err", err)
		}
	}
}

func routeEvent(e entity.Event) (topic, key string) {
	switch e := e.(type) {
	case entity.OrderCreated:
		return "orders.created", e.OrderID
	case entity.OrderCanceled:
		return "orders.canceled", e.OrderID
	case entity.OrderStatusChanged:
		return "orders.status_changed", e.OrderID
	case entity.OrderPaid:
		return "orders.paid", e.OrderID
	case entity.OrderDeleted:
		return "orders.deleted", e.OrderID
	case entity.ReviewChanged:
		return "reviews.changed", e.ReviewID
	case entity.ProductRatingChanged:
		return "products.rating_changed", e.ProductID
	}
	return "events", ""
}
