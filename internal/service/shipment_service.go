package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/mapper"
	"github.com/spst-logistics/spst-api/internal/repository"
)

// ShipmentService implements the shipment lifecycle: creation with generated
// human ids, status changes, tracking updates, wholesale package replacement
// and attachment slots.
type ShipmentService struct {
	db           *gorm.DB
	shipmentRepo *repository.ShipmentRepository
	sequences    *SequenceService
	logger       *zap.Logger
}

// NewShipmentService creates a new ShipmentService
func NewShipmentService(
	db *gorm.DB,
	shipmentRepo *repository.ShipmentRepository,
	sequences *SequenceService,
	logger *zap.Logger,
) *ShipmentService {
	return &ShipmentService{
		db:           db,
		shipmentRepo: shipmentRepo,
		sequences:    sequences,
		logger:       logger,
	}
}

// Create builds a shipment with a fresh human id. Colli count and real
// weight are derived from the package list.
func (s *ShipmentService) Create(ctx context.Context, req *domain.CreateShipmentRequest) (*domain.ShipmentDTO, error) {
	humanID, err := s.sequences.NextShipmentID(ctx)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	shipment := &domain.Shipment{
		HumanID:       humanID,
		CustomerEmail: strings.ToLower(req.CustomerEmail),
		Sender:        mapper.FromPartyRequest(&req.Sender),
		Recipient:     mapper.FromPartyRequest(&req.Recipient),
		Billing:       mapper.FromPartyRequest(req.Billing),
		Status:        domain.ShipmentStatusCreata,
		DeclaredValue: req.DeclaredValue,
		Currency:      currency,
		PickupDate:    req.PickupDate,
		Pallet:        req.Pallet,
	}

	for _, p := range req.Packages {
		shipment.Packages = append(shipment.Packages, domain.Package{
			LengthCm: p.LengthCm,
			WidthCm:  p.WidthCm,
			HeightCm: p.HeightCm,
			WeightKg: p.WeightKg,
			Contents: p.Contents,
		})
	}
	shipment.ColliN, shipment.PesoRealeKg = mapper.SumPackages(shipment.Packages)

	if err := s.shipmentRepo.Create(ctx, shipment); err != nil {
		return nil, fmt.Errorf("failed to create shipment: %w", err)
	}

	s.logger.Info("shipment created",
		zap.String("human_id", shipment.HumanID),
		zap.String("customer_email", shipment.CustomerEmail),
		zap.Int("colli", shipment.ColliN),
	)

	dto := mapper.ToShipmentDTO(shipment)
	return &dto, nil
}

// GetByID returns one shipment with its packages
func (s *ShipmentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShipmentDTO, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}
	dto := mapper.ToShipmentDTO(shipment)
	return &dto, nil
}

// List returns a page of shipments
func (s *ShipmentService) List(ctx context.Context, page, pageSize int, filter repository.ShipmentFilter) ([]domain.ShipmentDTO, int64, error) {
	shipments, total, err := s.shipmentRepo.List(ctx, page, pageSize, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list shipments: %w", err)
	}
	dtos := make([]domain.ShipmentDTO, 0, len(shipments))
	for i := range shipments {
		dtos = append(dtos, mapper.ToShipmentDTO(&shipments[i]))
	}
	return dtos, total, nil
}

// Update patches shipment header fields
func (s *ShipmentService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateShipmentRequest) (*domain.ShipmentDTO, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	if req.Sender != nil {
		shipment.Sender = mapper.FromPartyRequest(req.Sender)
	}
	if req.Recipient != nil {
		shipment.Recipient = mapper.FromPartyRequest(req.Recipient)
	}
	if req.Billing != nil {
		shipment.Billing = mapper.FromPartyRequest(req.Billing)
	}
	if req.DeclaredValue != nil {
		shipment.DeclaredValue = *req.DeclaredValue
	}
	if req.Currency != nil {
		shipment.Currency = *req.Currency
	}
	if req.PickupDate != nil {
		shipment.PickupDate = req.PickupDate
	}
	if req.Pallet != nil {
		shipment.Pallet = *req.Pallet
	}

	if err := s.shipmentRepo.Update(ctx, shipment); err != nil {
		return nil, fmt.Errorf("failed to update shipment: %w", err)
	}

	dto := mapper.ToShipmentDTO(shipment)
	return &dto, nil
}

// UpdateStatus sets a shipment status. Values outside the enum are rejected
// before any write.
func (s *ShipmentService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.ShipmentDTO, error) {
	newStatus := domain.ShipmentStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	shipment, err := s.shipmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	old := shipment.Status
	shipment.Status = newStatus
	if err := s.shipmentRepo.Update(ctx, shipment); err != nil {
		return nil, fmt.Errorf("failed to update shipment status: %w", err)
	}

	s.logger.Info("shipment status updated",
		zap.String("human_id", shipment.HumanID),
		zap.String("from", string(old)),
		zap.String("to", string(newStatus)),
	)

	dto := mapper.ToShipmentDTO(shipment)
	return &dto, nil
}

// UpdateTracking sets the carrier and tracking code
func (s *ShipmentService) UpdateTracking(ctx context.Context, id uuid.UUID, req *domain.UpdateTrackingRequest) (*domain.ShipmentDTO, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	shipment.TrackingCode = req.TrackingCode
	if req.CarrierName != "" {
		shipment.CarrierName = req.CarrierName
	}

	if err := s.shipmentRepo.Update(ctx, shipment); err != nil {
		return nil, fmt.Errorf("failed to update tracking: %w", err)
	}

	dto := mapper.ToShipmentDTO(shipment)
	return &dto, nil
}

// ReplacePackages swaps the whole package list in one transaction and
// recomputes the derived counters. Partial merges are not supported.
func (s *ShipmentService) ReplacePackages(ctx context.Context, id uuid.UUID, req *domain.ReplacePackagesRequest) (*domain.ShipmentDTO, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	packages := make([]domain.Package, 0, len(req.Packages))
	for _, p := range req.Packages {
		packages = append(packages, domain.Package{
			ShipmentID: shipment.ID,
			LengthCm:   p.LengthCm,
			WidthCm:    p.WidthCm,
			HeightCm:   p.HeightCm,
			WeightKg:   p.WeightKg,
			Contents:   p.Contents,
		})
	}
	colli, peso := mapper.SumPackages(packages)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("shipment_id = ?", shipment.ID).Delete(&domain.Package{}).Error; err != nil {
			return fmt.Errorf("failed to delete packages: %w", err)
		}
		for i := range packages {
			if err := tx.Create(&packages[i]).Error; err != nil {
				return fmt.Errorf("failed to create package: %w", err)
			}
		}
		return tx.Model(&domain.Shipment{}).
			Where("id = ?", shipment.ID).
			Updates(map[string]interface{}{
				"colli_n":       colli,
				"peso_reale_kg": peso,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	shipment.Packages = packages
	shipment.ColliN = colli
	shipment.PesoRealeKg = peso

	s.logger.Info("shipment packages replaced",
		zap.String("human_id", shipment.HumanID),
		zap.Int("colli", colli),
		zap.Float64("peso_reale_kg", peso),
	)

	dto := mapper.ToShipmentDTO(shipment)
	return &dto, nil
}

// AttachDocument stores an uploaded document reference in the requested
// slot, or in the first free slot when slot is negative.
func (s *ShipmentService) AttachDocument(ctx context.Context, id uuid.UUID, slot int, att *domain.Attachment) (int, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get shipment: %w", err)
	}

	if slot < 0 {
		slot = shipment.Attachments.FirstFreeSlot()
		if slot < 0 {
			return 0, ErrAttachmentSlotsFull
		}
	}

	updated, err := shipment.Attachments.SetSlot(slot, att)
	if err != nil {
		return 0, err
	}
	shipment.Attachments = updated

	if err := s.shipmentRepo.Update(ctx, shipment); err != nil {
		return 0, fmt.Errorf("failed to store attachment: %w", err)
	}

	return slot, nil
}

// MarkDutyPaid flags the customs duty as settled. Idempotent: a second call
// with the same payment ref is a no-op.
func (s *ShipmentService) MarkDutyPaid(ctx context.Context, id uuid.UUID, paymentRef string) error {
	shipment, err := s.shipmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get shipment: %w", err)
	}

	if shipment.DutyPaid && shipment.DutyPaymentRef == paymentRef {
		return nil
	}

	now := time.Now().UTC()
	shipment.DutyPaid = true
	shipment.DutyPaidAt = &now
	shipment.DutyPaymentRef = paymentRef

	if err := s.shipmentRepo.Update(ctx, shipment); err != nil {
		return fmt.Errorf("failed to mark duty paid: %w", err)
	}

	s.logger.Info("customs duty marked as paid",
		zap.String("human_id", shipment.HumanID),
		zap.String("payment_ref", paymentRef),
	)
	return nil
}
