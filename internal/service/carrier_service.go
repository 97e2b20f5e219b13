package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/mapper"
	"github.com/spst-logistics/spst-api/internal/repository"
)

// CarrierService manages the carrier registry used by waves and tracking.
type CarrierService struct {
	carrierRepo *repository.CarrierRepository
	logger      *zap.Logger
}

// NewCarrierService creates a new CarrierService
func NewCarrierService(carrierRepo *repository.CarrierRepository, logger *zap.Logger) *CarrierService {
	return &CarrierService{
		carrierRepo: carrierRepo,
		logger:      logger,
	}
}

// Create registers a carrier
func (s *CarrierService) Create(ctx context.Context, req *domain.CreateCarrierRequest) (*domain.CarrierDTO, error) {
	carrier := &domain.Carrier{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
	}
	if err := s.carrierRepo.Create(ctx, carrier); err != nil {
		return nil, fmt.Errorf("failed to create carrier: %w", err)
	}

	s.logger.Info("carrier created",
		zap.String("carrier_id", carrier.ID.String()),
		zap.String("name", carrier.Name))

	dto := mapper.ToCarrierDTO(carrier)
	return &dto, nil
}

// GetByID returns one carrier
func (s *CarrierService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CarrierDTO, error) {
	carrier, err := s.carrierRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get carrier: %w", err)
	}
	dto := mapper.ToCarrierDTO(carrier)
	return &dto, nil
}

// List returns every registered carrier, sorted by name
func (s *CarrierService) List(ctx context.Context) ([]domain.CarrierDTO, error) {
	carriers, err := s.carrierRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list carriers: %w", err)
	}
	dtos := make([]domain.CarrierDTO, 0, len(carriers))
	for i := range carriers {
		dtos = append(dtos, mapper.ToCarrierDTO(&carriers[i]))
	}
	return dtos, nil
}
