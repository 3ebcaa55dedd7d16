package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopforge/storefront/internal/entity"
	"github.com/shopforge/storefront/internal/repository"
)

// Store is an in-memory repository.Store. A single mutex serializes every
// transaction, which trivially satisfies the no-oversell guarantee; rollback
// is implemented by snapshotting the maps before fn runs and restoring them
// if it fails. Used by tests and local development.
type Store struct {
	mu sync.Mutex

	products   map[string]entity.Product
	orders     map[string]entity.Order
	orderItems map[string]entity.OrderItem
	reviews    map[string]entity.Review
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		products:   make(map[string]entity.Product),
		orders:     make(map[string]entity.Order),
		orderItems: make(map[string]entity.OrderItem),
		reviews:    make(map[string]entity.Review),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	if err := fn(&storeTx{s: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type state struct {
	products   map[string]entity.Product
	orders     map[string]entity.Order
	orderItems map[string]entity.OrderItem
	reviews    map[string]entity.Review
}

func (s *Store) snapshot() state {
	return state{
		products:   copyMap(s.products),
		orders:     copyMap(s.orders),
		orderItems: copyMap(s.orderItems),
		reviews:    copyMap(s.reviews),
	}
}

func (s *Store) restore(st state) {
	s.products = st.products
	s.orders = st.orders
	s.orderItems = st.orderItems
	s.reviews = st.reviews
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type storeTx struct {
	s *Store
}

func (t *storeTx) GetProductForUpdate(ctx context.Context, productID string) (*entity.Product, error) {
	p, ok := t.s.products[productID]
	if !ok {
		return nil, &entity.NotFoundError{Kind: "product", ID: productID}
	}
	return &p, nil
}

func (t *storeTx) ReserveStock(ctx context.Context, productID string, qty int) error {
	p, ok := t.s.products[productID]
	if !ok {
		return &entity.NotFoundError{Kind: "product", ID: productID}
	}
	if p.StockQuantity < qty {
		return &entity.InsufficientStockError{ProductID: productID, Requested: qty, Available: p.StockQuantity}
	}
	p.StockQuantity -= qty
	t.s.products[productID] = p
	return nil
}

func (t *storeTx) ReleaseStock(ctx context.Context, productID string, qty int) error {
	p, ok := t.s.products[productID]
	if !ok {
		return &entity.NotFoundError{Kind: "product", ID: productID}
	}
	p.StockQuantity += qty
	t.s.products[productID] = p
	return nil
}

func (t *storeTx) SetProductRating(ctx context.Context, productID string, rating float64, count int) error {
	p, ok := t.s.products[productID]
	if !ok {
		return &entity.NotFoundError{Kind: "product", ID: productID}
	}
	p.Rating = rating
	p.ReviewCount = count
	t.s.products[productID] = p
	return nil
}

func (t *storeTx) VerifiedRatings(ctx context.Context, productID string) ([]int, error) {
	var ratings []int
	for _, r := range t.s.reviews {
		if r.ProductID == productID && r.IsVerified {
			ratings = append(ratings, r.Rating)
		}
	}
	return ratings, nil
}

func (t *storeTx) InsertOrder(ctx context.Context, order *entity.Order) error {
	o := *order
	o.Items = append([]entity.OrderItem(nil), order.Items...)
	t.s.orders[o.ID] = o
	for _, item := range o.Items {
		t.s.orderItems[item.ID] = item
	}
	return nil
}

func (t *storeTx) GetOrderForUpdate(ctx context.Context, orderID string) (*entity.Order, error) {
	o, ok := t.s.orders[orderID]
	if !ok {
		return nil, &entity.NotFoundError{Kind: "order", ID: orderID}
	}
	o.Items = append([]entity.OrderItem(nil), o.Items...)
	return &o, nil
}

func (t *storeTx) SetOrderStatus(ctx context.Context, orderID string, status entity.OrderStatus) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return &entity.NotFoundError{Kind: "order", ID: orderID}
	}
	o.Status = status
	t.s.orders[orderID] = o
	return nil
}

func (t *storeTx) SetPaymentStatus(ctx context.Context, orderID string, status entity.PaymentStatus) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return &entity.NotFoundError{Kind: "order", ID: orderID}
	}
	o.PaymentStatus = status
	t.s.orders[orderID] = o
	return nil
}

func (t *storeTx) DeleteOrder(ctx context.Context, orderID string) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return &entity.NotFoundError{Kind: "order", ID: orderID}
	}
	for _, item := range o.Items {
		for id, r := range t.s.reviews {
			if r.OrderItemID == item.ID {
				delete(t.s.reviews, id)
			}
		}
		delete(t.s.orderItems, item.ID)
	}
	delete(t.s.orders, orderID)
	return nil
}

func (t *storeTx) GetOrderItem(ctx context.Context, orderItemID string) (*entity.OrderItem, error) {
	item, ok := t.s.orderItems[orderItemID]
	if !ok {
		return nil, &entity.NotFoundError{Kind: "order item", ID: orderItemID}
	}
	return &item, nil
}

func (t *storeTx) InsertReview(ctx context.Context, review *entity.Review) error {
	for _, r := range t.s.reviews {
		if r.OrderItemID == review.OrderItemID {
			return &entity.DuplicateReviewError{OrderItemID: review.OrderItemID}
		}
	}
	t.s.reviews[review.ID] = *review
	return nil
}

func (t *storeTx) GetReviewForUpdate(ctx context.Context, reviewID string) (*entity.Review, error) {
	r, ok := t.s.reviews[reviewID]
	if !ok {
		return nil, &entity.NotFoundError{Kind: "review", ID: reviewID}
	}
	return &r, nil
}

func (t *storeTx) UpdateReview(ctx context.Context, review *entity.Review) error {
	r, ok := t.s.reviews[review.ID]
	if !ok {
		return &entity.NotFoundError{Kind: "review", ID: review.ID}
	}
	r.ProductID = review.ProductID
	r.Rating = review.Rating
	r.Comment = review.Comment
	r.UpdatedAt = time.Now()
	t.s.reviews[review.ID] = r
	return nil
}

func (t *storeTx) DeleteReview(ctx context.Context, reviewID string) error {
	if _, ok := t.s.reviews[reviewID]; !ok {
		return &entity.NotFoundError{Kind: "review", ID: reviewID}
	}
	delete(t.s.reviews, reviewID)
	return nil
}

func (t *storeTx) SetReviewVerified(ctx context.Context, reviewID string, verified bool) error {
	r, ok := t.s.reviews[reviewID]
	if !ok {
		return &entity.NotFoundError{Kind: "review", ID: reviewID}
	}
	r.IsVerified = verified
	r.UpdatedAt = time.Now()
	t.s.reviews[reviewID] = r
	return nil
}

func (t *storeTx) MarkOrderReviewsVerified(ctx context.Context, orderID string) ([]string, error) {
	o, ok := t.s.orders[orderID]
	if !ok {
		return nil, &entity.NotFoundError{Kind: "order", ID: orderID}
	}

	itemIDs := map[string]bool{}
	for _, item := range o.Items {
		itemIDs[item.ID] = true
	}

	seen := map[string]bool{}
	var productIDs []string
	for id, r := range t.s.reviews {
		if itemIDs[r.OrderItemID] && !r.IsVerified {
			r.IsVerified = true
			r.UpdatedAt = time.Now()
			t.s.reviews[id] = r
			if !seen[r.ProductID] {
				seen[r.ProductID] = true
				productIDs = append(productIDs, r.ProductID)
			}
		}
	}
	return productIDs, nil
}

// --- plain reads ---

func (s *Store) FindProduct(ctx context.Context, productID string) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, &entity.NotFoundError{Kind: "product", ID: productID}
	}
	return &p, nil
}

func (s *Store) FindProducts(ctx context.Context) ([]entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]entity.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (s *Store) FindOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, &entity.NotFoundError{Kind: "order", ID: orderID}
	}
	o.Items = append([]entity.OrderItem(nil), o.Items...)
	return &o, nil
}

func (s *Store) FindRecentOrders(ctx context.Context, limit int) ([]entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]entity.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) FindReview(ctx context.Context, reviewID string) (*entity.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reviews[reviewID]
	if !ok {
		return nil, &entity.NotFoundError{Kind: "review", ID: reviewID}
	}
	return &r, nil
}

func (s *Store) FindReviewsByProduct(ctx context.Context, productID string) ([]entity.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reviews []entity.Review
	for _, r := range s.reviews {
		if r.ProductID == productID {
			reviews = append(reviews, r)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

func (s *Store) SeedProducts(ctx context.Context, products []entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.products) > 0 {
		return nil // already seeded
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return nil
}
