package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
)

// SequenceRepository hands out per-day counters used to build human ids.
// Next runs in its own transaction so two concurrent callers never receive
// the same value.
type SequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments and returns the counter for a scope ("shipment", "quote",
// "wave") on a given date (YYYY-MM-DD).
func (r *SequenceRepository) Next(ctx context.Context, scope, date string) (int, error) {
	var value int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq domain.DateSequence
		err := tx.Where("scope = ? AND date = ?", scope, date).First(&seq).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			seq = domain.DateSequence{Scope: scope, Date: date, Value: 1}
			if err := tx.Create(&seq).Error; err != nil {
				return err
			}
			value = 1
			return nil
		}
		if err != nil {
			return err
		}

		seq.Value++
		if err := tx.Model(&domain.DateSequence{}).
			Where("scope = ? AND date = ?", scope, date).
			Update("value", seq.Value).Error; err != nil {
			return err
		}
		value = seq.Value
		return nil
	})
	return value, err
}
