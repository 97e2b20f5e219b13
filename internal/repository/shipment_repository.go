package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
)

type ShipmentRepository struct {
	db *gorm.DB
}

func NewShipmentRepository(db *gorm.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

func (r *ShipmentRepository) Create(ctx context.Context, shipment *domain.Shipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *ShipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	var shipment domain.Shipment
	err := r.db.WithContext(ctx).
		Preload("Packages").
		First(&shipment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *ShipmentRepository) GetByHumanID(ctx context.Context, humanID string) (*domain.Shipment, error) {
	var shipment domain.Shipment
	err := r.db.WithContext(ctx).
		Preload("Packages").
		First(&shipment, "human_id = ?", humanID).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *ShipmentRepository) Update(ctx context.Context, shipment *domain.Shipment) error {
	return r.db.WithContext(ctx).Save(shipment).Error
}

type ShipmentFilter struct {
	Status        *domain.ShipmentStatus
	CustomerEmail string
	Pallet        *bool
	Search        string
}

func (r *ShipmentRepository) List(ctx context.Context, page, pageSize int, filter ShipmentFilter) ([]domain.Shipment, int64, error) {
	var shipments []domain.Shipment
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Shipment{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerEmail != "" {
		query = query.Where("customer_email = ?", strings.ToLower(filter.CustomerEmail))
	}
	if filter.Pallet != nil {
		query = query.Where("pallet = ?", *filter.Pallet)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("human_id LIKE ? OR recipient_name LIKE ? OR tracking_code LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&shipments).Error

	return shipments, total, err
}

// ListPalletPool returns pallet shipments eligible for a new wave: pallet
// flagged, still in CREATA and not yet assigned to any wave.
func (r *ShipmentRepository) ListPalletPool(ctx context.Context) ([]domain.Shipment, error) {
	var shipments []domain.Shipment
	sub := r.db.Model(&domain.PalletWaveItem{}).Select("shipment_id")
	err := r.db.WithContext(ctx).
		Where("pallet = ?", true).
		Where("status = ?", domain.ShipmentStatusCreata).
		Where("id NOT IN (?)", sub).
		Order("created_at ASC").
		Find(&shipments).Error
	return shipments, err
}

// ListWithActiveTracking returns shipments that have a tracking code and are
// still moving, for the tracking feed sync.
func (r *ShipmentRepository) ListWithActiveTracking(ctx context.Context) ([]domain.Shipment, error) {
	var shipments []domain.Shipment
	err := r.db.WithContext(ctx).
		Where("tracking_code <> ''").
		Where("status IN ?", []domain.ShipmentStatus{
			domain.ShipmentStatusCreata,
			domain.ShipmentStatusInRitiro,
			domain.ShipmentStatusInTransito,
		}).
		Find(&shipments).Error
	return shipments, err
}

func (r *ShipmentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Shipment, error) {
	var shipments []domain.Shipment
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&shipments).Error
	return shipments, err
}
