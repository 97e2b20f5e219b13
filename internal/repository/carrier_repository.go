package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
)

type CarrierRepository struct {
	db *gorm.DB
}

func NewCarrierRepository(db *gorm.DB) *CarrierRepository {
	return &CarrierRepository{db: db}
}

func (r *CarrierRepository) Create(ctx context.Context, carrier *domain.Carrier) error {
	return r.db.WithContext(ctx).Create(carrier).Error
}

func (r *CarrierRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Carrier, error) {
	var carrier domain.Carrier
	err := r.db.WithContext(ctx).First(&carrier, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &carrier, nil
}

func (r *CarrierRepository) GetByName(ctx context.Context, name string) (*domain.Carrier, error) {
	var carrier domain.Carrier
	err := r.db.WithContext(ctx).First(&carrier, "name = ?", name).Error
	if err != nil {
		return nil, err
	}
	return &carrier, nil
}

func (r *CarrierRepository) List(ctx context.Context) ([]domain.Carrier, error) {
	var carriers []domain.Carrier
	err := r.db.WithContext(ctx).Order("name ASC").Find(&carriers).Error
	return carriers, err
}
