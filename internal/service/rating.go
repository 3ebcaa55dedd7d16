package service

import (
	"context"
	"math"

	"github.com/shopforge/storefront/internal/entity"
	"github.com/shopforge/storefront/internal/repository"
)

// Aggregator keeps a product's displayed rating and review count a pure
// function of its current verified review set. It always re-reads the set at
// call time instead of maintaining a running average, so missed or reordered
// triggers cannot cause drift.
type Aggregator struct{}

// Recompute reads the verified ratings for the product and writes the mean
// (rounded to one decimal place) and the count. An empty set yields 0 / 0.
func (Aggregator) Recompute(ctx context.Context, tx repository.Tx, productID string) (entity.ProductRatingChanged, error) {
	ratings, err := tx.VerifiedRatings(ctx, productID)
	if err != nil {
		return entity.ProductRatingChanged{}, err
	}

	var rating float64
	if len(ratings) > 0 {
		sum := 0
		for _, r := range ratings {
			sum += r
		}
		rating = roundToTenth(float64(sum) / float64(len(ratings)))
	}

	if err := tx.SetProductRating(ctx, productID, rating, len(ratings)); err != nil {
		return entity.ProductRatingChanged{}, err
	}

	return entity.ProductRatingChanged{
		ProductID:   productID,
		Rating:      rating,
		ReviewCount: len(ratings),
	}, nil
}

func roundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
