package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/repository"
)

// SequenceService generates the human-readable display codes used across
// the back office. Counters reset per day and per scope.
//
// Formats:
//
//	shipments SP-2025-06-01-00042
//	quotes    QT-2025-06-01-00007
//	waves     WV-2025-06-01-003
type SequenceService struct {
	repo   *repository.SequenceRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewSequenceService creates a new SequenceService
func NewSequenceService(repo *repository.SequenceRepository, logger *zap.Logger) *SequenceService {
	return &SequenceService{repo: repo, logger: logger, now: time.Now}
}

// NextShipmentID generates the next shipment human id
func (s *SequenceService) NextShipmentID(ctx context.Context) (string, error) {
	return s.next(ctx, "shipment", "SP", 5)
}

// NextQuoteID generates the next quote human id
func (s *SequenceService) NextQuoteID(ctx context.Context) (string, error) {
	return s.next(ctx, "quote", "QT", 5)
}

// NextWaveCode generates the next wave code
func (s *SequenceService) NextWaveCode(ctx context.Context) (string, error) {
	return s.next(ctx, "wave", "WV", 3)
}

func (s *SequenceService) next(ctx context.Context, scope, prefix string, width int) (string, error) {
	date := s.now().UTC().Format("2006-01-02")

	seq, err := s.repo.Next(ctx, scope, date)
	if err != nil {
		s.logger.Error("failed to get next sequence value",
			zap.String("scope", scope),
			zap.String("date", date),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate %s id: %w", scope, err)
	}

	code := fmt.Sprintf("%s-%s-%0*d", prefix, date, width, seq)

	s.logger.Debug("generated human id",
		zap.String("scope", scope),
		zap.String("code", code))

	return code, nil
}
