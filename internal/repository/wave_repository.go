package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
)

type WaveRepository struct {
	db *gorm.DB
}

func NewWaveRepository(db *gorm.DB) *WaveRepository {
	return &WaveRepository{db: db}
}

func (r *WaveRepository) Create(ctx context.Context, wave *domain.PalletWave) error {
	return r.db.WithContext(ctx).Create(wave).Error
}

func (r *WaveRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PalletWave, error) {
	var wave domain.PalletWave
	err := r.db.WithContext(ctx).
		Preload("Carrier").
		Preload("Items").
		Preload("Items.Shipment").
		First(&wave, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &wave, nil
}

func (r *WaveRepository) Update(ctx context.Context, wave *domain.PalletWave) error {
	return r.db.WithContext(ctx).Save(wave).Error
}

type WaveFilter struct {
	Status    *domain.WaveStatus
	CarrierID *uuid.UUID
}

func (r *WaveRepository) List(ctx context.Context, page, pageSize int, filter WaveFilter) ([]domain.PalletWave, int64, error) {
	var waves []domain.PalletWave
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.PalletWave{}).
		Preload("Carrier").
		Preload("Items")

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CarrierID != nil {
		query = query.Where("carrier_id = ?", *filter.CarrierID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&waves).Error

	return waves, total, err
}

// ListPlannedBetween returns waves in the given status whose planned pickup
// date falls in [from, to). Used by the pickup reminder job.
func (r *WaveRepository) ListPlannedBetween(ctx context.Context, status domain.WaveStatus, from, to time.Time) ([]domain.PalletWave, error) {
	var waves []domain.PalletWave
	err := r.db.WithContext(ctx).
		Preload("Carrier").
		Preload("Items.Shipment").
		Where("status = ? AND planned_pickup_date >= ? AND planned_pickup_date < ?", status, from, to).
		Order("planned_pickup_date ASC").
		Find(&waves).Error
	return waves, err
}

// ShipmentWaveExists reports whether a shipment is already assigned to a wave
func (r *WaveRepository) ShipmentWaveExists(ctx context.Context, shipmentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.PalletWaveItem{}).
		Where("shipment_id = ?", shipmentID).
		Count(&count).Error
	return count > 0, err
}
