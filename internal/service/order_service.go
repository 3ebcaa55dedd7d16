package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shopforge/storefront/internal/entity"
	"github.com/shopforge/storefront/internal/messaging"
	"github.com/shopforge/storefront/internal/repository"
)

// Policy holds the deployment's explicit lifecycle coupling choices.
type Policy struct {
	// RequirePaymentForShipment gates the shipped and completed transitions
	// on payment_status = paid. Payment never gates cancellation.
	RequirePaymentForShipment bool
}

// NewOrderItem is a requested line item at order creation.
type NewOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderService is the order state machine. Every mutation runs inside a
// single store transaction; stock reservation, release, review verification,
// and rating recompute all commit with the status change that triggered them.
type OrderService struct {
	store    repository.Store
	ledger   Ledger
	verifier Verifier
	notify   notifier
	policy   Policy
}

func NewOrderService(store repository.Store, publisher messaging.Publisher, cache ProductCache, policy Policy) *OrderService {
	return &OrderService{
		store:  store,
		notify: notifier{publisher: publisher, cache: cache},
		policy: policy,
	}
}

// GetProducts returns the full catalog.
func (s *OrderService) GetProducts(ctx context.Context) ([]entity.Product, error) {
	return s.store.FindProducts(ctx)
}

// GetProduct returns one product, read through the cache.
func (s *OrderService) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	if p, ok := s.notify.cache.Get(ctx, productID); ok {
		return p, nil
	}
	p, err := s.store.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	s.notify.cache.Set(ctx, p)
	return p, nil
}

// GetOrder returns one order with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	return s.store.FindOrder(ctx, orderID)
}

// GetRecentOrders returns the latest orders.
func (s *OrderService) GetRecentOrders(ctx context.Context, limit int) ([]entity.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.FindRecentOrders(ctx, limit)
}

// CreateOrder validates and reserves stock for every line item, then persists
// the order and its items as one unit. If any reservation fails the whole
// transaction rolls back, so reservations already taken for earlier items are
// undone and no partial order is ever observable. Unit prices are frozen from
// the product's current price at this moment.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, items []NewOrderItem) (*entity.Order, error) {
	if userID == "" {
		return nil, &entity.ValidationError{Msg: "user id is required"}
	}
	if len(items) == 0 {
		return nil, &entity.ValidationError{Msg: "order must have at least one item"}
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &entity.ValidationError{Msg: "quantity must be positive"}
		}
	}

	// Lock products in a stable order so two multi-item orders cannot
	// deadlock on each other's rows.
	sorted := append([]NewOrderItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	order := &entity.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		Status:        entity.StatusPending,
		PaymentStatus: entity.PaymentUnpaid,
		CreatedAt:     time.Now(),
	}

	var fx sideEffects
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		for _, item := range sorted {
			product, err := tx.GetProductForUpdate(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if err := s.ledger.Reserve(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			order.Items = append(order.Items, entity.OrderItem{
				ID:        uuid.NewString(),
				OrderID:   order.ID,
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  item.Quantity,
			})
			order.TotalAmount += product.Price * float64(item.Quantity)
			fx.invalidate(product.ID)
		}
		return tx.InsertOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	fx.emit(entity.OrderCreated{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Items:       order.Items,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
	})
	s.notify.flush(ctx, &fx)

	slog.Info("Order created", "order_id", order.ID, "user_id", userID, "total", order.TotalAmount)
	return order, nil
}

// CancelOrder cancels an order and returns its reserved stock. Self-service
// cancellation is permitted only from pending; an administrator may also
// cancel a shipped order. The pre-transition status is checked before any
// mutation, inside the same transaction as the status write, so a duplicate
// cancel request finds the order already canceled and fails with
// InvalidTransition instead of double-crediting stock.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string, by entity.Actor) error {
	var fx sideEffects
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !by.Admin && order.UserID != by.UserID {
			return &entity.NotFoundError{Kind: "order", ID: orderID}
		}

		allowed := order.Status == entity.StatusPending ||
			(by.Admin && order.Status == entity.StatusShipped)
		if !allowed {
			return &entity.InvalidTransitionError{OrderID: orderID, From: order.Status, To: entity.StatusCanceled}
		}

		if err := s.releaseOrderStock(ctx, tx, order, &fx); err != nil {
			return err
		}
		return tx.SetOrderStatus(ctx, orderID, entity.StatusCanceled)
	})
	if err != nil {
		return err
	}

	fx.emit(entity.OrderCanceled{OrderID: orderID, CanceledBy: by.UserID, CanceledAt: time.Now()})
	s.notify.flush(ctx, &fx)

	slog.Info("Order canceled", "order_id", orderID, "by", by.UserID)
	return nil
}

// UpdateStatus performs an administrative status transition. Moving into
// canceled releases the order's stock exactly once; moving into completed
// retroactively verifies every review attached to the order's items and
// recomputes the affected product ratings, all before the transaction
// commits.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, next entity.OrderStatus) error {
	var fx sideEffects
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return &entity.InvalidTransitionError{OrderID: orderID, From: order.Status, To: next}
		}
		if s.policy.RequirePaymentForShipment &&
			(next == entity.StatusShipped || next == entity.StatusCompleted) &&
			order.PaymentStatus != entity.PaymentPaid {
			return entity.ErrPaymentRequired
		}

		// The transition table already rules out leaving a terminal state,
		// so a release here can never double-credit.
		if next == entity.StatusCanceled {
			if err := s.releaseOrderStock(ctx, tx, order, &fx); err != nil {
				return err
			}
		}

		if err := tx.SetOrderStatus(ctx, orderID, next); err != nil {
			return err
		}

		if next == entity.StatusCompleted {
			if err := s.verifier.OnOrderCompleted(ctx, tx, orderID, &fx); err != nil {
				return err
			}
		}

		fx.emit(entity.OrderStatusChanged{OrderID: orderID, From: order.Status, To: next})
		return nil
	})
	if err != nil {
		return err
	}

	s.notify.flush(ctx, &fx)
	slog.Info("Order status updated", "order_id", orderID, "status", next)
	return nil
}

// MarkPaid records the payment collaborator's confirmation. Marking an
// already-paid order is a no-op.
func (s *OrderService) MarkPaid(ctx context.Context, orderID string) error {
	var fx sideEffects
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.PaymentStatus == entity.PaymentPaid {
			return nil
		}
		fx.emit(entity.OrderPaid{OrderID: orderID, PaidAt: time.Now()})
		return tx.SetPaymentStatus(ctx, orderID, entity.PaymentPaid)
	})
	if err != nil {
		return err
	}

	s.notify.flush(ctx, &fx)
	return nil
}

// DeleteOrder administratively removes an order, its items, and any reviews
// attached to them. Stock is released only when the order was still holding
// it: canceled orders released theirs already, completed orders consumed it.
// Product ratings are recomputed for every product the deleted reviews
// touched.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID string) error {
	var fx sideEffects
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if !order.Status.Terminal() {
			if err := s.releaseOrderStock(ctx, tx, order, &fx); err != nil {
				return err
			}
		}

		if err := tx.DeleteOrder(ctx, orderID); err != nil {
			return err
		}

		agg := Aggregator{}
		seen := map[string]bool{}
		for _, item := range order.Items {
			if seen[item.ProductID] {
				continue
			}
			seen[item.ProductID] = true
			change, err := agg.Recompute(ctx, tx, item.ProductID)
			if err != nil {
				return err
			}
			fx.emit(change)
			fx.invalidate(item.ProductID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fx.emit(entity.OrderDeleted{OrderID: orderID})
	s.notify.flush(ctx, &fx)

	slog.Info("Order deleted", "order_id", orderID)
	return nil
}

// releaseOrderStock returns every line item's quantity to its product.
// Callers guarantee the order is leaving a non-terminal state, which is what
// makes the release exactly-once.
func (s *OrderService) releaseOrderStock(ctx context.Context, tx repository.Tx, order *entity.Order, fx *sideEffects) error {
	for _, item := range order.Items {
		if err := s.ledger.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		fx.invalidate(item.ProductID)
	}
	return nil
}
