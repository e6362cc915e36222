package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/numbering"
	"gorm.io/gorm"
)

// GormSequenceRepository allocates identifier numbers from the
// identifier_sequences table. Both statements are single-row atomic
// updates, so concurrent callers serialize on the counter row.
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

const (
	incrementSequenceSQL = `UPDATE identifier_sequences
		SET last_value = last_value + 1, updated_at = ?
		WHERE tenant_id = ? AND scope_key = ?
		RETURNING last_value`

	// The DO UPDATE arm covers a concurrent first allocation that inserted
	// the row between our UPDATE and INSERT.
	insertSequenceSQL = `INSERT INTO identifier_sequences (tenant_id, scope_key, last_value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tenant_id, scope_key)
		DO UPDATE SET last_value = identifier_sequences.last_value + 1, updated_at = excluded.updated_at
		RETURNING last_value`
)

// Next increments the scope's counter and returns the new value. The first
// allocation of a scope starts above whatever seed reports as in use.
func (r *GormSequenceRepository) Next(ctx context.Context, tenantID uuid.UUID, scope numbering.Scope, seed numbering.SeedFunc) (int64, error) {
	db := r.db.WithContext(ctx)
	now := time.Now().UTC()

	var value int64
	result := db.Raw(incrementSequenceSQL, now, tenantID, scope.Key).Scan(&value)
	if result.Error != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", scope.Key, result.Error)
	}
	if result.RowsAffected > 0 {
		return value, nil
	}

	var start int64
	if seed != nil {
		highest, err := seed(ctx)
		if err != nil {
			return 0, fmt.Errorf("seed sequence %s: %w", scope.Key, err)
		}
		start = highest
	}

	if err := db.Raw(insertSequenceSQL, tenantID, scope.Key, start+1, now).Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("create sequence %s: %w", scope.Key, err)
	}
	return value, nil
}

// Current returns the last value handed out for the scope, 0 when none
func (r *GormSequenceRepository) Current(ctx context.Context, tenantID uuid.UUID, scope numbering.Scope) (int64, error) {
	var rows []int64
	if err := r.db.WithContext(ctx).Model(&identifierSequence{}).
		Where("tenant_id = ? AND scope_key = ?", tenantID, scope.Key).
		Pluck("last_value", &rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0], nil
}

var _ numbering.SequenceRepository = (*GormSequenceRepository)(nil)
