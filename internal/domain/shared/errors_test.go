package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("matches sentinel by code", func(t *testing.T) {
		err := NewDomainError("NOT_FOUND", "Student not found")
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrAlreadyExists))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("failed to load student: %w", ErrNotFound)
		assert.True(t, IsNotFound(err))
	})

	t.Run("wrapped cause is reachable", func(t *testing.T) {
		cause := errors.New("duplicate key")
		err := ErrAlreadyExists.Wrap(cause)
		assert.True(t, IsAlreadyExists(err))
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "duplicate key")
	})
}

func TestDomainError_WithField(t *testing.T) {
	base := NewValidationError("email", "Email is required")
	extended := base.WithField("dob", "Date of birth is required")

	assert.Len(t, base.Fields, 1)
	assert.Len(t, extended.Fields, 2)
	assert.Equal(t, "dob", extended.Fields[1].Field)
	assert.True(t, errors.Is(extended, ErrInvalidInput))
}
