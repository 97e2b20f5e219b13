package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
)

type NotificationLogRepository struct {
	db *gorm.DB
}

func NewNotificationLogRepository(db *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

func (r *NotificationLogRepository) Create(ctx context.Context, log *domain.NotificationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *NotificationLogRepository) ListByWave(ctx context.Context, waveID uuid.UUID) ([]domain.NotificationLog, error) {
	var logs []domain.NotificationLog
	err := r.db.WithContext(ctx).
		Where("wave_id = ?", waveID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}
