package persistence

import (
	"errors"
	"strings"

	"github.com/madrasa/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps driver and gorm errors onto domain errors.
// TranslateError on the gorm config turns unique violations into
// gorm.ErrDuplicatedKey; the message checks cover drivers that do not.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return shared.ErrAlreadyExists.Wrap(err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
