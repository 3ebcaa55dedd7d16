package service

import (
	"context"

	"github.com/shopforge/storefront/internal/entity"
	"github.com/shopforge/storefront/internal/repository"
)

// Ledger enforces the stock invariants: reservations are atomic conditional
// decrements that never drive stock negative, releases are unconditional
// increments. Idempotence of releases is the caller's responsibility (the
// order state machine guards with the pre-transition status check).
type Ledger struct{}

// Reserve decrements the product's available stock by qty. It fails with
// InsufficientStockError, mutating nothing, when less than qty is available.
func (Ledger) Reserve(ctx context.Context, tx repository.Tx, productID string, qty int) error {
	if qty <= 0 {
		return &entity.ValidationError{Msg: "quantity must be positive"}
	}
	return tx.ReserveStock(ctx, productID, qty)
}

// Release returns qty units to the product's available stock.
func (Ledger) Release(ctx context.Context, tx repository.Tx, productID string, qty int) error {
	if qty <= 0 {
		return &entity.ValidationError{Msg: "quantity must be positive"}
	}
	return tx.ReleaseStock(ctx, productID, qty)
}
