package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.True(t, shared.IsNotFound(translateError(gorm.ErrRecordNotFound)))
	assert.True(t, shared.IsNotFound(translateError(fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound))))

	duplicates := []error{
		gorm.ErrDuplicatedKey,
		errors.New(`ERROR: duplicate key value violates unique constraint "uq_student_fee_dues" (SQLSTATE 23505)`),
		errors.New("UNIQUE constraint failed: users.email"),
	}
	for _, err := range duplicates {
		translated := translateError(err)
		assert.True(t, shared.IsAlreadyExists(translated), "%v", err)
		assert.ErrorIs(t, translated, err, "the driver error stays in the chain")
	}

	other := errors.New("connection reset by peer")
	assert.Same(t, other, translateError(other))
}
