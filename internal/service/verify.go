package service

import (
	"context"

	"github.com/shopforge/storefront/internal/entity"
	"github.com/shopforge/storefront/internal/repository"
)

// Verifier keeps review verification consistent with the order lifecycle:
// a review is verified if and only if its order reached completed. Two entry
// points: the status lookup at review creation, and the forward-fix when an
// order completes. Verification is monotonic once granted; only an explicit
// admin override clears it.
type Verifier struct {
	agg Aggregator
}

// VerifiedAtCreation decides the initial is_verified value for a new review.
func (Verifier) VerifiedAtCreation(order *entity.Order) bool {
	return order.Status == entity.StatusCompleted
}

// OnOrderCompleted retroactively verifies every review attached to the
// order's items, regardless of when it was written, and recomputes the rating
// of each affected product inside the same transaction.
func (v Verifier) OnOrderCompleted(ctx context.Context, tx repository.Tx, orderID string, fx *sideEffects) error {
	productIDs, err := tx.MarkOrderReviewsVerified(ctx, orderID)
	if err != nil {
		return err
	}
	for _, productID := range productIDs {
		change, err := v.agg.Recompute(ctx, tx, productID)
		if err != nil {
			return err
		}
		fx.emit(change)
		fx.invalidate(productID)
	}
	return nil
}
