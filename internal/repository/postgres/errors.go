package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/shopforge/storefront/internal/entity"
)

// Postgres error codes this store cares about.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// translateErr maps driver-level failures onto the engine's error taxonomy.
// Serialization failures and deadlocks become ErrConcurrencyConflict so the
// caller knows the operation is safe to retry.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %v", entity.ErrConcurrencyConflict, err)
		}
	}
	return err
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation
}
