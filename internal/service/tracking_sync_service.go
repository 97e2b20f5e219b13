package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/repository"
	"github.com/spst-logistics/spst-api/internal/trackingfeed"
)

// statusRank orders shipment statuses along the happy path so a late or
// out-of-order scan event never moves a shipment backwards.
var statusRank = map[domain.ShipmentStatus]int{
	domain.ShipmentStatusCreata:     0,
	domain.ShipmentStatusInRitiro:   1,
	domain.ShipmentStatusInTransito: 2,
	domain.ShipmentStatusConsegnata: 3,
}

// TrackingSyncService reconciles shipment statuses with the carrier
// tracking feed. It only ever moves statuses forward; terminal and
// manually set statuses (ANNULLATA) are left alone.
type TrackingSyncService struct {
	feed         *trackingfeed.Client
	shipmentRepo *repository.ShipmentRepository
	logger       *zap.Logger
}

// NewTrackingSyncService creates a new TrackingSyncService
func NewTrackingSyncService(
	feed *trackingfeed.Client,
	shipmentRepo *repository.ShipmentRepository,
	logger *zap.Logger,
) *TrackingSyncService {
	return &TrackingSyncService{
		feed:         feed,
		shipmentRepo: shipmentRepo,
		logger:       logger,
	}
}

// SyncActiveShipments pulls recent scan events for every shipment that has a
// tracking code and is still moving, and applies status changes.
// Returns counts for updated and failed shipments.
func (s *TrackingSyncService) SyncActiveShipments(ctx context.Context, lookback time.Duration) (synced int, failed int, err error) {
	if !s.feed.IsEnabled() {
		return 0, 0, nil
	}

	shipments, err := s.shipmentRepo.ListWithActiveTracking(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(shipments) == 0 {
		return 0, 0, nil
	}

	codes := make([]string, 0, len(shipments))
	for _, sh := range shipments {
		codes = append(codes, sh.TrackingCode)
	}

	events, err := s.feed.LatestEvents(ctx, codes, time.Now().Add(-lookback))
	if err != nil {
		return 0, 0, err
	}

	// Events are ordered oldest first, so the map ends up holding the
	// latest mapped status per tracking code.
	latest := make(map[string]domain.ShipmentStatus, len(events))
	for _, ev := range events {
		status, ok := mapFeedStatus(ev.StatusCode)
		if !ok {
			continue
		}
		latest[ev.TrackingCode] = status
	}

	for i := range shipments {
		shipment := &shipments[i]
		target, ok := latest[shipment.TrackingCode]
		if !ok || target == shipment.Status {
			continue
		}
		if target != domain.ShipmentStatusEccezione && statusRank[target] <= statusRank[shipment.Status] {
			continue
		}

		shipment.Status = target
		if err := s.shipmentRepo.Update(ctx, shipment); err != nil {
			s.logger.Error("failed to apply tracking feed status",
				zap.String("human_id", shipment.HumanID),
				zap.String("tracking_code", shipment.TrackingCode),
				zap.Error(err))
			failed++
			continue
		}

		s.logger.Info("shipment status updated from tracking feed",
			zap.String("human_id", shipment.HumanID),
			zap.String("tracking_code", shipment.TrackingCode),
			zap.String("status", string(target)))
		synced++
	}

	return synced, failed, nil
}

// mapFeedStatus translates carrier scan codes into shipment statuses.
// Unknown codes are ignored rather than treated as errors.
func mapFeedStatus(code string) (domain.ShipmentStatus, bool) {
	switch code {
	case "PU", "PICKUP":
		return domain.ShipmentStatusInRitiro, true
	case "IT", "TRANSIT", "HUB":
		return domain.ShipmentStatusInTransito, true
	case "DL", "DELIVERED":
		return domain.ShipmentStatusConsegnata, true
	case "EX", "EXCEPTION":
		return domain.ShipmentStatusEccezione, true
	}
	return "", false
}
