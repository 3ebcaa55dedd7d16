package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/shopforge/storefront/internal/entity"
)

func TestTranslateErr(t *testing.T) {
	serialization := &pq.Error{Code: codeSerializationFailure}
	deadlock := &pq.Error{Code: codeDeadlockDetected}
	other := &pq.Error{Code: "23503"}

	assert.NoError(t, translateErr(nil))
	assert.ErrorIs(t, translateErr(serialization), entity.ErrConcurrencyConflict)
	assert.ErrorIs(t, translateErr(deadlock), entity.ErrConcurrencyConflict)

	// Wrapped driver errors are still recognized.
	wrapped := fmt.Errorf("failed to commit transaction: %w", serialization)
	assert.ErrorIs(t, translateErr(wrapped), entity.ErrConcurrencyConflict)

	// Anything else passes through unchanged.
	assert.Equal(t, other, translateErr(other))
	plain := errors.New("boom")
	assert.Equal(t, plain, translateErr(plain))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: codeUniqueViolation}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: codeUniqueViolation})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: codeDeadlockDetected}))
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
