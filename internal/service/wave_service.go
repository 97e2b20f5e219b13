package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/mapper"
	"github.com/spst-logistics/spst-api/internal/repository"
)

// WaveService implements pallet wave creation and the status workflow.
// Waves are never deleted; a wave that should not run is moved to annullata.
type WaveService struct {
	db           *gorm.DB
	waveRepo     *repository.WaveRepository
	shipmentRepo *repository.ShipmentRepository
	carrierRepo  *repository.CarrierRepository
	sequences    *SequenceService
	notifier     *NotifierService
	logger       *zap.Logger
}

// NewWaveService creates a new WaveService
func NewWaveService(
	db *gorm.DB,
	waveRepo *repository.WaveRepository,
	shipmentRepo *repository.ShipmentRepository,
	carrierRepo *repository.CarrierRepository,
	sequences *SequenceService,
	notifier *NotifierService,
	logger *zap.Logger,
) *WaveService {
	return &WaveService{
		db:           db,
		waveRepo:     waveRepo,
		shipmentRepo: shipmentRepo,
		carrierRepo:  carrierRepo,
		sequences:    sequences,
		notifier:     notifier,
		logger:       logger,
	}
}

// Create builds a wave in bozza from the given shipments. Eligibility and
// the minimum pallet count are checked up front; wave and items are written
// in one transaction.
func (s *WaveService) Create(ctx context.Context, createdBy string, req *domain.CreateWaveRequest) (*domain.WaveDTO, error) {
	if len(req.ShipmentIDs) == 0 {
		return nil, ErrShipmentIDsRequired
	}
	if len(req.ShipmentIDs) < MinWavePallets {
		return nil, ErrMinPalletsRequired
	}

	if _, err := s.carrierRepo.GetByID(ctx, req.CarrierID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get carrier: %w", err)
	}

	shipments, err := s.shipmentRepo.GetByIDs(ctx, req.ShipmentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipments: %w", err)
	}
	if len(shipments) != len(req.ShipmentIDs) {
		return nil, fmt.Errorf("%w: unknown shipment id", ErrShipmentNotEligible)
	}
	for i := range shipments {
		sh := &shipments[i]
		if !sh.Pallet {
			return nil, fmt.Errorf("%w: %s is not a pallet shipment", ErrShipmentNotEligible, sh.HumanID)
		}
		taken, err := s.waveRepo.ShipmentWaveExists(ctx, sh.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check wave membership: %w", err)
		}
		if taken {
			return nil, fmt.Errorf("%w: %s is already in a wave", ErrShipmentNotEligible, sh.HumanID)
		}
	}

	code, err := s.sequences.NextWaveCode(ctx)
	if err != nil {
		return nil, err
	}

	wave := &domain.PalletWave{
		Code:              code,
		Status:            domain.WaveStatusBozza,
		PlannedPickupDate: req.PlannedPickupDate,
		PickupWindow:      req.PickupWindow,
		Notes:             req.Notes,
		CarrierID:         req.CarrierID,
		CreatedByID:       createdBy,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(wave).Error; err != nil {
			return fmt.Errorf("failed to create wave: %w", err)
		}
		for i := range shipments {
			item := domain.PalletWaveItem{
				WaveID:              wave.ID,
				ShipmentID:          shipments[i].ID,
				RequestedPickupDate: shipments[i].PickupDate,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create wave item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("wave created",
		zap.String("code", wave.Code),
		zap.String("carrier_id", wave.CarrierID.String()),
		zap.Int("pallets", len(shipments)),
		zap.String("created_by", createdBy),
	)

	created, err := s.waveRepo.GetByID(ctx, wave.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload wave: %w", err)
	}
	dto := mapper.ToWaveDTO(created)
	return &dto, nil
}

// GetByID returns one wave with items and shipments
func (s *WaveService) GetByID(ctx context.Context, id uuid.UUID) (*domain.WaveDTO, error) {
	wave, err := s.waveRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wave: %w", err)
	}
	dto := mapper.ToWaveDTO(wave)
	return &dto, nil
}

// List returns a page of waves
func (s *WaveService) List(ctx context.Context, page, pageSize int, filter repository.WaveFilter) ([]domain.WaveDTO, int64, error) {
	waves, total, err := s.waveRepo.List(ctx, page, pageSize, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list waves: %w", err)
	}
	dtos := make([]domain.WaveDTO, 0, len(waves))
	for i := range waves {
		dtos = append(dtos, mapper.ToWaveDTO(&waves[i]))
	}
	return dtos, total, nil
}

// Update patches wave header fields while the wave is still in bozza
func (s *WaveService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateWaveRequest) (*domain.WaveDTO, error) {
	wave, err := s.waveRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wave: %w", err)
	}

	if wave.Status != domain.WaveStatusBozza {
		return nil, fmt.Errorf("%w: wave is %s", ErrInvalidStatus, wave.Status)
	}

	if req.PlannedPickupDate != nil {
		wave.PlannedPickupDate = *req.PlannedPickupDate
	}
	if req.PickupWindow != nil {
		wave.PickupWindow = *req.PickupWindow
	}
	if req.Notes != nil {
		wave.Notes = *req.Notes
	}
	if req.CarrierID != nil {
		if _, err := s.carrierRepo.GetByID(ctx, *req.CarrierID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("failed to get carrier: %w", err)
		}
		wave.CarrierID = *req.CarrierID
	}

	if err := s.waveRepo.Update(ctx, wave); err != nil {
		return nil, fmt.Errorf("failed to update wave: %w", err)
	}

	dto := mapper.ToWaveDTO(wave)
	return &dto, nil
}

// SetStatus moves a wave through its workflow. Staff may set any status;
// a carrier may only take inviata to in_corso on a wave assigned to their
// own carrier. The caller resolves the actor beforehand.
//
// Notifications are dispatched after the commit and never affect the result.
func (s *WaveService) SetStatus(ctx context.Context, id uuid.UUID, actor domain.WaveActor, requested string) error {
	newStatus, ok := domain.ParseWaveStatus(requested)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, requested)
	}

	wave, err := s.waveRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get wave: %w", err)
	}

	from := wave.Status
	if !domain.CanTransitionWave(from, actor, newStatus) {
		return ErrForbidden
	}

	if err := s.db.WithContext(ctx).
		Model(&domain.PalletWave{}).
		Where("id = ?", wave.ID).
		Update("status", newStatus).Error; err != nil {
		return fmt.Errorf("failed to update wave status: %w", err)
	}
	wave.Status = newStatus

	s.logger.Info("wave status updated",
		zap.String("code", wave.Code),
		zap.String("from", string(from)),
		zap.String("to", string(newStatus)),
		zap.String("actor", string(actor)),
	)

	s.notifier.NotifyWaveTransition(ctx, wave, from, newStatus, actor)

	return nil
}

// RemindUpcomingPickups sends a reminder for every wave in status inviata
// whose planned pickup date is tomorrow. Returns the number of waves reminded.
func (s *WaveService) RemindUpcomingPickups(ctx context.Context, now time.Time) (int, error) {
	tomorrow := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	waves, err := s.waveRepo.ListPlannedBetween(ctx, domain.WaveStatusInviata, tomorrow, tomorrow.Add(24*time.Hour))
	if err != nil {
		return 0, fmt.Errorf("failed to load upcoming waves: %w", err)
	}

	for i := range waves {
		s.notifier.NotifyPickupDue(ctx, &waves[i])
	}

	return len(waves), nil
}

// PalletPool returns shipments eligible for a new wave
func (s *WaveService) PalletPool(ctx context.Context) ([]domain.ShipmentDTO, error) {
	shipments, err := s.shipmentRepo.ListPalletPool(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pallet pool: %w", err)
	}
	dtos := make([]domain.ShipmentDTO, 0, len(shipments))
	for i := range shipments {
		dtos = append(dtos, mapper.ToShipmentDTO(&shipments[i]))
	}
	return dtos, nil
}
