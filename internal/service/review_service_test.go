package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/storefront/internal/entity"
)

// completedOrder places and completes an order for one unit of productID.
func completedOrder(t *testing.T, orders *OrderService, productID string) *entity.Order {
	t.Helper()
	ctx := context.Background()

	order, err := orders.CreateOrder(ctx, testUser, []NewOrderItem{{ProductID: productID, Quantity: 1}})
	require.NoError(t, err)
	require.NoError(t, orders.UpdateStatus(ctx, order.ID, entity.StatusShipped))
	require.NoError(t, orders.UpdateStatus(ctx, order.ID, entity.StatusCompleted))
	return order
}

func TestCreateReviewOnPendingOrderIsUnverified(t *testing.T) {
	orders, reviews, store := newFixture(t)
	ctx := context.Background()

	order, err := orders.CreateOrder(ctx, testUser, []NewOrderItem{{ProductID: "p1", Quantity: 1}})
	require.NoError(t, err)

	review, err := reviews.CreateReview(ctx, testUser, order.Items[0].ID, 5, "early review")
	require.NoError(t, err)
	assert.False(t, review.IsVerified)

	p, err := store.FindProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Rating)
	assert.Equal(t, 0, p.ReviewCount)
}

func TestCreateReviewOnCompletedOrderIsVerified(t *testing.T) {
	orders, reviews, store := newFixture(t)
	ctx := context.Background()

	order := completedOrder(t, orders, "p1")

	review, err := reviews.CreateReview(ctx, testUser, order.Items[0].ID, 4, "works well")
	require.NoError(t, err)
	assert.True(t, review.IsVerified)
	assert.Equal(t, "p1", review.ProductID)

	p, err := store.FindProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, p.Rating)
	assert.Equal(t, 1, p.ReviewCount)
}

func TestCreateReviewDuplicate(t *testing.T) {
	orders, reviews, _ := newFixture(t)
	ctx := context.Background()

	order := completedOrder(t, orders, "p1")

	_, err := reviews.CreateReview(ctx, testUser, order.Items[0].ID, 4, "first")
	require.NoError(t, err)

	_, err = reviews.CreateReview(ctx, testUser, order.Items[0].ID, 2, "second")
	var dup *entity.DuplicateReviewError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, order.Items[0].ID, dup.OrderItemID)
}

func TestCreateReviewValidation(t *testing.T) {
	orders, reviews, _ := newFixture(t)
	ctx := context.Background()

	order := completedOrder(t, orders, "p1")

	var vErr *entity.ValidationError

	_, err := reviews.CreateReview(ctx, testUser, order.Items[0].ID, 0, "")
	require.ErrorAs(t, err, &vErr)

	_, err = reviews.CreateReview(ctx, testUser, order.Items[0].ID, 6, "")
	require.ErrorAs(t, err, &vErr)

	// Only the order's owner may review its items.
	_, err = reviews.CreateReview(ctx, otherUser, order.Items[0].ID, 3, "")
	require.ErrorAs(t, err, &vErr)

	var nf *entity.NotFoundError
	_, err = reviews.CreateReview(ctx, testUser, "missing-item", 3, "")
	require.ErrorAs(t, err, &nf)
}

func TestUpdateReviewRecomputesRating(t *testing.T) {
	orders, reviews, store := newFixture(t)
	ctx := context.Background()

	order := completedOrder(t, orders, "p1")
	review, err := reviews.CreateReview(ctx, testUser, order.Items[0].ID, 4, "ok")
	require.NoError(t, err)

	newRating := 2
	updated, err := reviews.UpdateReview(ctx, review.ID, entity.Actor{UserID: testUser}, &newRating, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Rating)

	p, err := store.FindProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Rating)
	assert.Equal(t, 1, p.ReviewCount)
}

func TestUpdateReviewPermissions(t *testing.T) {
	orders, reviews, _ := newFixture(t)
	ctx := context.Background()

	order := completedOrder(t, orders, "p1")
	review, err := reviews.CreateReview(ctx, testUser, order.Items[0].ID, 4, "ok")
	require.NoError(t, err)

	newRating := 1
	_, err = reviews.UpdateReview(ctx, review.ID, entity.Actor{UserID: otherUser}, &newRating, nil)
	var nf *entity.NotFoundError
	require.ErrorAs(t, err, &nf)

	// An admin may edit any review.
	_, err = reviews.UpdateReview(ctx, review.ID, adminActor, &newRating, nil)
	require.NoError(t, err)
}

func TestDeleteReviewRecomputesRating(t *testing.T) {
	orders, reviews, store := newFixture(t)
	ctx := context.Background()

	order := completedOrder(t, orders, "p1")
	review, err := reviews.CreateReview(ctx, testUser, order.Items[0].ID, 4, "ok")
	require.NoError(t, err)

	require.NoError(t, reviews.DeleteReview(ctx, review.ID, entity.Actor{UserID: testUser}))

	p, err := store.FindProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Rating)
	assert.Equal(t, 0, p.ReviewCount)

	err = reviews.DeleteReview(ctx, review.ID, entity.Actor{UserID: testUser})
	var nfErr *entity.NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestAdminVerificationOverride(t *testing.T) {
	orders, reviews, store := newFixture(t)
	ctx := context.Background()

	// Review on a pending order: unverified, excluded from the aggregate.
	order, err := orders.CreateOrder(ctx, testUser, []NewOrderItem{{ProductID: "p1", Quantity: 1}})
	require.NoError(t, err)
	review, err := reviews.CreateReview(ctx, testUser, order.Items[0].ID, 5, "")
	require.NoError(t, err)

	require.NoError(t, reviews.SetVerified(ctx, review.ID, true))

	p, err := store.FindProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, p.Rating)
	assert.Equal(t, 1, p.ReviewCount)

	require.NoError(t, reviews.SetVerified(ctx, review.ID, false))

	p, err = store.FindProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Rating)
	assert.Equal(t, 0, p.ReviewCount)
}

func TestRatingAggregatesAcrossOrders(t *testing.T) {
	orders, reviews, store := newFixture(t)
	ctx := context.Background()

	// Three completed orders for p2, rated 5, 4, and 2: mean 3.666 rounds to 3.7.
	for _, rating := range []int{5, 4, 2} {
		order := completedOrder(t, orders, "p2")
		_, err := reviews.CreateReview(ctx, testUser, order.Items[0].ID, rating, "")
		require.NoError(t, err)
	}

	p, err := store.FindProduct(ctx, "p2")
	require.NoError(t, err)
	assert.InDelta(t, 3.7, p.Rating, 1e-9)
	assert.Equal(t, 3, p.ReviewCount)
}
