package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/repository"
)

// ManifestService renders the xlsx pickup manifest a carrier receives for
// a wave: one row per shipment with recipient, colli and weight.
type ManifestService struct {
	waveRepo *repository.WaveRepository
	logger   *zap.Logger
}

// NewManifestService creates a new ManifestService
func NewManifestService(waveRepo *repository.WaveRepository, logger *zap.Logger) *ManifestService {
	return &ManifestService{waveRepo: waveRepo, logger: logger}
}

// WaveManifest builds the manifest workbook for one wave and returns the
// xlsx bytes together with a suggested file name.
func (s *ManifestService) WaveManifest(ctx context.Context, waveID uuid.UUID) ([]byte, string, error) {
	wave, err := s.waveRepo.GetByID(ctx, waveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to get wave: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Manifest"
	f.SetSheetName("Sheet1", sheet)

	f.SetCellValue(sheet, "A1", "Wave")
	f.SetCellValue(sheet, "B1", wave.Code)
	f.SetCellValue(sheet, "A2", "Pickup date")
	f.SetCellValue(sheet, "B2", wave.PlannedPickupDate.Format("2006-01-02"))
	if wave.Carrier != nil {
		f.SetCellValue(sheet, "A3", "Carrier")
		f.SetCellValue(sheet, "B3", wave.Carrier.Name)
	}

	headerRow := 5
	f.SetCellValue(sheet, fmt.Sprintf("A%d", headerRow), "Shipment")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", headerRow), "Recipient")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", headerRow), "City")
	f.SetCellValue(sheet, fmt.Sprintf("D%d", headerRow), "Country")
	f.SetCellValue(sheet, fmt.Sprintf("E%d", headerRow), "Colli")
	f.SetCellValue(sheet, fmt.Sprintf("F%d", headerRow), "Weight (kg)")

	totalColli := 0
	totalWeight := 0.0
	row := headerRow + 1
	for _, item := range wave.Items {
		if item.Shipment == nil {
			continue
		}
		sh := item.Shipment
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), sh.HumanID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), sh.Recipient.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), sh.Recipient.City)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), sh.Recipient.Country)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), sh.ColliN)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), sh.PesoRealeKg)
		totalColli += sh.ColliN
		totalWeight += sh.PesoRealeKg
		row++
	}

	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("E%d", row), totalColli)
	f.SetCellValue(sheet, fmt.Sprintf("F%d", row), totalWeight)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render manifest: %w", err)
	}

	s.logger.Info("wave manifest generated",
		zap.String("code", wave.Code),
		zap.Int("shipments", len(wave.Items)),
	)

	return buf.Bytes(), fmt.Sprintf("manifest-%s.xlsx", wave.Code), nil
}
