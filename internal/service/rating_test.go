package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/storefront/internal/entity"
	"github.com/shopforge/storefront/internal/repository"
	"github.com/shopforge/storefront/internal/repository/memory"
)

func TestRoundToTenth(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{4.0, 4.0},
		{4.5, 4.5},
		{4.44, 4.4},
		{4.45, 4.5},
		{11.0 / 3.0, 3.7},
		{10.0 / 3.0, 3.3},
		{0, 0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, roundToTenth(tc.in), 1e-9, "round(%v)", tc.in)
	}
}

func TestRecomputeReadsCurrentVerifiedSet(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.SeedProducts(ctx, []entity.Product{
		{ID: "p1", Name: "Widget", Price: 10, StockQuantity: 10},
	}))

	agg := Aggregator{}

	// Seed an order with two reviewable items directly through the store.
	err := store.WithinTx(ctx, func(tx repository.Tx) error {
		order := &entity.Order{
			ID:     "o1",
			UserID: testUser,
			Status: entity.StatusCompleted,
			Items: []entity.OrderItem{
				{ID: "i1", OrderID: "o1", ProductID: "p1", Quantity: 1},
				{ID: "i2", OrderID: "o1", ProductID: "p1", Quantity: 1},
			},
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		for _, r := range []entity.Review{
			{ID: "r1", UserID: testUser, ProductID: "p1", OrderItemID: "i1", Rating: 5, IsVerified: true},
			{ID: "r2", UserID: testUser, ProductID: "p1", OrderItemID: "i2", Rating: 2, IsVerified: false},
		} {
			if err := tx.InsertReview(ctx, &r); err != nil {
				return err
			}
		}
		change, err := agg.Recompute(ctx, tx, "p1")
		if err != nil {
			return err
		}
		// Only the verified review counts.
		assert.Equal(t, 5.0, change.Rating)
		assert.Equal(t, 1, change.ReviewCount)
		return nil
	})
	require.NoError(t, err)

	// Flipping verification and recomputing reflects the new set; no running
	// average is kept anywhere.
	err = store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := tx.SetReviewVerified(ctx, "r2", true); err != nil {
			return err
		}
		change, err := agg.Recompute(ctx, tx, "p1")
		if err != nil {
			return err
		}
		assert.InDelta(t, 3.5, change.Rating, 1e-9)
		assert.Equal(t, 2, change.ReviewCount)
		return nil
	})
	require.NoError(t, err)

	p, err := store.FindProduct(ctx, "p1")
	require.NoError(t, err)
	assert.InDelta(t, 3.5, p.Rating, 1e-9)
	assert.Equal(t, 2, p.ReviewCount)
}
