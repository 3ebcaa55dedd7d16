package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shopforge/storefront/internal/entity"
	"github.com/shopforge/storefront/internal/messaging"
	"github.com/shopforge/storefront/internal/repository"
)

// ReviewService owns review mutations and the verification/aggregation
// cascade they trigger. Every mutation recomputes the owning product's rating
// inside the same transaction.
type ReviewService struct {
	store    repository.Store
	agg      Aggregator
	verifier Verifier
	notify   notifier
}

func NewReviewService(store repository.Store, publisher messaging.Publisher, cache ProductCache) *ReviewService {
	return &ReviewService{
		store:  store,
		notify: notifier{publisher: publisher, cache: cache},
	}
}

// GetProductReviews returns all reviews for a product, newest first.
func (s *ReviewService) GetProductReviews(ctx context.Context, productID string) ([]entity.Review, error) {
	return s.store.FindReviewsByProduct(ctx, productID)
}

// CreateReview attaches a review to one of the author's order items. At most
// one review may exist per order item. The order row is locked while the
// verification flag is decided, so a concurrent completion of the same order
// cannot slip between the status read and the insert.
func (s *ReviewService) CreateReview(ctx context.Context, userID, orderItemID string, rating int, comment string) (*entity.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, &entity.ValidationError{Msg: "rating must be between 1 and 5"}
	}

	now := time.Now()
	review := &entity.Review{
		ID:          uuid.NewString(),
		UserID:      userID,
		OrderItemID: orderItemID,
		Rating:      rating,
		Comment:     comment,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var fx sideEffects
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		item, err := tx.GetOrderItem(ctx, orderItemID)
		if err != nil {
			return err
		}
		order, err := tx.GetOrderForUpdate(ctx, item.OrderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return &entity.ValidationError{Msg: "order item does not belong to this user"}
		}

		review.ProductID = item.ProductID
		review.IsVerified = s.verifier.VerifiedAtCreation(order)

		if err := tx.InsertReview(ctx, review); err != nil {
			return err
		}
		return s.recompute(ctx, tx, &fx, review.ProductID)
	})
	if err != nil {
		return nil, err
	}

	fx.emit(entity.ReviewChanged{ReviewID: review.ID, ProductID: review.ProductID, Action: "created"})
	s.notify.flush(ctx, &fx)

	slog.Info("Review created", "review_id", review.ID, "product_id", review.ProductID, "verified", review.IsVerified)
	return review, nil
}

// UpdateReview changes a review's rating and/or comment. Permitted for the
// author or an administrator. The review's product is recomputed; if the
// product reference ever differs from the stored one, both are recomputed.
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID string, by entity.Actor, rating *int, comment *string) (*entity.Review, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, &entity.ValidationError{Msg: "rating must be between 1 and 5"}
	}

	var updated *entity.Review
	var fx sideEffects
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		review, err := tx.GetReviewForUpdate(ctx, reviewID)
		if err != nil {
			return err
		}
		if !by.Admin && review.UserID != by.UserID {
			return &entity.NotFoundError{Kind: "review", ID: reviewID}
		}

		oldProduct := review.ProductID
		if rating != nil {
			review.Rating = *rating
		}
		if comment != nil {
			review.Comment = *comment
		}
		if err := tx.UpdateReview(ctx, review); err != nil {
			return err
		}
		updated = review

		if err := s.recompute(ctx, tx, &fx, oldProduct); err != nil {
			return err
		}
		if review.ProductID != oldProduct {
			return s.recompute(ctx, tx, &fx, review.ProductID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fx.emit(entity.ReviewChanged{ReviewID: reviewID, ProductID: updated.ProductID, Action: "updated"})
	s.notify.flush(ctx, &fx)
	return updated, nil
}

// DeleteReview removes a review (author or administrator) and recomputes the
// owning product's rating.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID string, by entity.Actor) error {
	var productID string
	var fx sideEffects
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		review, err := tx.GetReviewForUpdate(ctx, reviewID)
		if err != nil {
			return err
		}
		if !by.Admin && review.UserID != by.UserID {
			return &entity.NotFoundError{Kind: "review", ID: reviewID}
		}
		productID = review.ProductID

		if err := tx.DeleteReview(ctx, reviewID); err != nil {
			return err
		}
		return s.recompute(ctx, tx, &fx, productID)
	})
	if err != nil {
		return err
	}

	fx.emit(entity.ReviewChanged{ReviewID: reviewID, ProductID: productID, Action: "deleted"})
	s.notify.flush(ctx, &fx)

	slog.Info("Review deleted", "review_id", reviewID, "product_id", productID)
	return nil
}

// SetVerified is the administrative override of automatic verification.
func (s *ReviewService) SetVerified(ctx context.Context, reviewID string, verified bool) error {
	var productID string
	var fx sideEffects
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		review, err := tx.GetReviewForUpdate(ctx, reviewID)
		if err != nil {
			return err
		}
		productID = review.ProductID

		if review.IsVerified == verified {
			return nil
		}
		if err := tx.SetReviewVerified(ctx, reviewID, verified); err != nil {
			return err
		}
		return s.recompute(ctx, tx, &fx, productID)
	})
	if err != nil {
		return err
	}

	action := "verified"
	if !verified {
		action = "unverified"
	}
	fx.emit(entity.ReviewChanged{ReviewID: reviewID, ProductID: productID, Action: action})
	s.notify.flush(ctx, &fx)
	return nil
}

func (s *ReviewService) recompute(ctx context.Context, tx repository.Tx, fx *sideEffects, productID string) error {
	change, err := s.agg.Recompute(ctx, tx, productID)
	if err != nil {
		return err
	}
	fx.emit(change)
	fx.invalidate(productID)
	return nil
}
