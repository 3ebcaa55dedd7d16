package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopforge/storefront/internal/entity"
	"github.com/shopforge/storefront/internal/repository"
)

// Store implements repository.Store on top of Postgres. Transactional
// operations serialize against each other through row-level locks
// (SELECT ... FOR UPDATE and conditional UPDATEs), so two reservations racing
// for the last units of a product never both pass the stock check.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by Postgres.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&storeTx{tx: tx}); err != nil {
		return translateErr(err)
	}

	if err := tx.Commit(); err != nil {
		return translateErr(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) GetProductForUpdate(ctx context.Context, productID string) (*entity.Product, error) {
	var p entity.Product
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, name, description, price, image_url, category, stock_quantity, rating, review_count
		 FROM products WHERE id = $1 FOR UPDATE`,
		productID,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Category, &p.StockQuantity, &p.Rating, &p.ReviewCount)
	if err == sql.ErrNoRows {
		return nil, &entity.NotFoundError{Kind: "product", ID: productID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	return &p, nil
}

func (t *storeTx) ReserveStock(ctx context.Context, productID string, qty int) error {
	// Conditional decrement: the WHERE clause is the stock check and the
	// UPDATE is the reservation, executed as one atomic statement.
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity - $1 WHERE id = $2 AND stock_quantity >= $1",
		qty, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to reserve stock for product %s: %w", productID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Nothing was decremented: distinguish a missing product from a shortfall.
	var available int
	err = t.tx.QueryRowContext(ctx, "SELECT stock_quantity FROM products WHERE id = $1", productID).Scan(&available)
	if err == sql.ErrNoRows {
		return &entity.NotFoundError{Kind: "product", ID: productID}
	}
	if err != nil {
		return fmt.Errorf("failed to read stock for product %s: %w", productID, err)
	}
	return &entity.InsufficientStockError{ProductID: productID, Requested: qty, Available: available}
}

func (t *storeTx) ReleaseStock(ctx context.Context, productID string, qty int) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity + $1 WHERE id = $2",
		qty, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to release stock for product %s: %w", productID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &entity.NotFoundError{Kind: "product", ID: productID}
	}
	return nil
}

func (t *storeTx) SetProductRating(ctx context.Context, productID string, rating float64, count int) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET rating = $1, review_count = $2 WHERE id = $3",
		rating, count, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rating for product %s: %w", productID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &entity.NotFoundError{Kind: "product", ID: productID}
	}
	return nil
}

func (t *storeTx) VerifiedRatings(ctx context.Context, productID string) ([]int, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT rating FROM reviews WHERE product_id = $1 AND is_verified",
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query verified ratings for product %s: %w", productID, err)
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

func (t *storeTx) InsertOrder(ctx context.Context, order *entity.Order) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO orders (id, user_id, status, payment_status, total_amount, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		order.ID, order.UserID, order.Status, order.PaymentStatus, order.TotalAmount, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = t.tx.ExecContext(ctx,
			"INSERT INTO order_items (id, order_id, product_id, name, price, quantity) VALUES ($1, $2, $3, $4, $5, $6)",
			item.ID, order.ID, item.ProductID, item.Name, item.Price, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

func (t *storeTx) GetOrderForUpdate(ctx context.Context, orderID string) (*entity.Order, error) {
	var o entity.Order
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, user_id, status, payment_status, total_amount, created_at FROM orders WHERE id = $1 FOR UPDATE",
		orderID,
	).Scan(&o.ID, &o.UserID, &o.Status, &o.PaymentStatus, &o.TotalAmount, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &entity.NotFoundError{Kind: "order", ID: orderID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	items, err := scanOrderItems(ctx, t.tx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (t *storeTx) SetOrderStatus(ctx context.Context, orderID string, status entity.OrderStatus) error {
	res, err := t.tx.ExecContext(ctx, "UPDATE orders SET status = $1 WHERE id = $2", status, orderID)
	if err != nil {
		return fmt.Errorf("failed to set order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &entity.NotFoundError{Kind: "order", ID: orderID}
	}
	return nil
}

func (t *storeTx) SetPaymentStatus(ctx context.Context, orderID string, status entity.PaymentStatus) error {
	res, err := t.tx.ExecContext(ctx, "UPDATE orders SET payment_status = $1 WHERE id = $2", status, orderID)
	if err != nil {
		return fmt.Errorf("failed to set payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &entity.NotFoundError{Kind: "order", ID: orderID}
	}
	return nil
}

func (t *storeTx) DeleteOrder(ctx context.Context, orderID string) error {
	// Reviews reference order items, so they go first.
	_, err := t.tx.ExecContext(ctx,
		"DELETE FROM reviews WHERE order_item_id IN (SELECT id FROM order_items WHERE order_id = $1)",
		orderID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete order reviews: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", orderID)
	if err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", orderID)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &entity.NotFoundError{Kind: "order", ID: orderID}
	}
	return nil
}

func (t *storeTx) GetOrderItem(ctx context.Context, orderItemID string) (*entity.OrderItem, error) {
	var item entity.OrderItem
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, order_id, product_id, name, price, quantity FROM order_items WHERE id = $1",
		orderItemID,
	).Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity)
	if err == sql.ErrNoRows {
		return nil, &entity.NotFoundError{Kind: "order item", ID: orderItemID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order item %s: %w", orderItemID, err)
	}
	return &item, nil
}

func (t *storeTx) InsertReview(ctx context.Context, review *entity.Review) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO reviews (id, user_id, product_id, order_item_id, rating, comment, is_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		review.ID, review.UserID, review.ProductID, review.OrderItemID,
		review.Rating, review.Comment, review.IsVerified, review.CreatedAt, review.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return &entity.DuplicateReviewError{OrderItemID: review.OrderItemID}
	}
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

func (t *storeTx) GetReviewForUpdate(ctx context.Context, reviewID string) (*entity.Review, error) {
	var r entity.Review
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, user_id, product_id, order_item_id, rating, comment, is_verified, created_at, updated_at
		 FROM reviews WHERE id = $1 FOR UPDATE`,
		reviewID,
	).Scan(&r.ID, &r.UserID, &r.ProductID, &r.OrderItemID, &r.Rating, &r.Comment, &r.IsVerified, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &entity.NotFoundError{Kind: "review", ID: reviewID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load review %s: %w", reviewID, err)
	}
	return &r, nil
}

func (t *storeTx) UpdateReview(ctx context.Context, review *entity.Review) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE reviews SET product_id = $1, rating = $2, comment = $3, updated_at = $4 WHERE id = $5",
		review.ProductID, review.Rating, review.Comment, time.Now(), review.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &entity.NotFoundError{Kind: "review", ID: review.ID}
	}
	return nil
}

func (t *storeTx) DeleteReview(ctx context.Context, reviewID string) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM reviews WHERE id = $1", reviewID)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &entity.NotFoundError{Kind: "review", ID: reviewID}
	}
	return nil
}

func (t *storeTx) SetReviewVerified(ctx context.Context, reviewID string, verified bool) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE reviews SET is_verified = $1, updated_at = $2 WHERE id = $3",
		verified, time.Now(), reviewID,
	)
	if err != nil {
		return fmt.Errorf("failed to set review verification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &entity.NotFoundError{Kind: "review", ID: reviewID}
	}
	return nil
}

func (t *storeTx) MarkOrderReviewsVerified(ctx context.Context, orderID string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx,
		`UPDATE reviews SET is_verified = TRUE, updated_at = NOW()
		 WHERE order_item_id IN (SELECT id FROM order_items WHERE order_id = $1)
		   AND NOT is_verified
		 RETURNING product_id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify order reviews: %w", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	var productIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		if !seen[id] {
			seen[id] = true
			productIDs = append(productIDs, id)
		}
	}
	return productIDs, rows.Err()
}

// --- plain reads ---

func (s *Store) FindProduct(ctx context.Context, productID string) (*entity.Product, error) {
	var p entity.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, price, image_url, category, stock_quantity, rating, review_count
		 FROM products WHERE id = $1`,
		productID,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Category, &p.StockQuantity, &p.Rating, &p.ReviewCount)
	if err == sql.ErrNoRows {
		return nil, &entity.NotFoundError{Kind: "product", ID: productID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &p, nil
}

func (s *Store) FindProducts(ctx context.Context) ([]entity.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, price, image_url, category, stock_quantity, rating, review_count
		 FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Category, &p.StockQuantity, &p.Rating, &p.ReviewCount); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) FindOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	var o entity.Order
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, status, payment_status, total_amount, created_at FROM orders WHERE id = $1",
		orderID,
	).Scan(&o.ID, &o.UserID, &o.Status, &o.PaymentStatus, &o.TotalAmount, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &entity.NotFoundError{Kind: "order", ID: orderID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := scanOrderItems(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (s *Store) FindRecentOrders(ctx context.Context, limit int) ([]entity.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, status, payment_status, total_amount, created_at FROM orders ORDER BY created_at DESC LIMIT $1",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		var o entity.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.PaymentStatus, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := scanOrderItems(ctx, s.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (s *Store) FindReview(ctx context.Context, reviewID string) (*entity.Review, error) {
	var r entity.Review
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, product_id, order_item_id, rating, comment, is_verified, created_at, updated_at
		 FROM reviews WHERE id = $1`,
		reviewID,
	).Scan(&r.ID, &r.UserID, &r.ProductID, &r.OrderItemID, &r.Rating, &r.Comment, &r.IsVerified, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &entity.NotFoundError{Kind: "review", ID: reviewID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query review: %w", err)
	}
	return &r, nil
}

func (s *Store) FindReviewsByProduct(ctx context.Context, productID string) ([]entity.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, product_id, order_item_id, rating, comment, is_verified, created_at, updated_at
		 FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []entity.Review
	for rows.Next() {
		var r entity.Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.ProductID, &r.OrderItemID, &r.Rating, &r.Comment, &r.IsVerified, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *Store) SeedProducts(ctx context.Context, products []entity.Product) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil // already seeded
	}

	for _, p := range products {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO products (id, name, description, price, image_url, category, stock_quantity, rating, review_count)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			p.ID, p.Name, p.Description, p.Price, p.ImageURL, p.Category, p.StockQuantity, p.Rating, p.ReviewCount,
		)
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	return nil
}

// querier lets order-item scanning work for both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanOrderItems(ctx context.Context, q querier, orderID string) ([]entity.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, order_id, product_id, name, price, quantity FROM order_items WHERE order_id = $1",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []entity.OrderItem
	for rows.Next() {
		var item entity.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
