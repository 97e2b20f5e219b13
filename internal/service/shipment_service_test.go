package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/repository"
	"github.com/spst-logistics/spst-api/internal/service"
	"github.com/spst-logistics/spst-api/internal/testutil"
)

func setupShipmentService(t *testing.T) (*service.ShipmentService, *gorm.DB) {
	db := testutil.NewTestDB(t)
	log := zap.NewNop()
	sequences := service.NewSequenceService(repository.NewSequenceRepository(db), log)
	svc := service.NewShipmentService(db, repository.NewShipmentRepository(db), sequences, log)
	return svc, db
}

func createShipmentRequest(email string) *domain.CreateShipmentRequest {
	return &domain.CreateShipmentRequest{
		CustomerEmail: email,
		Sender:        domain.PartyRequest{Name: "SPST Srl", City: "Milano", Country: "IT"},
		Recipient:     domain.PartyRequest{Name: "Acme Corp", City: "New York", Country: "US"},
		Packages: []domain.PackageRequest{
			{LengthCm: 120, WidthCm: 80, HeightCm: 100, WeightKg: 180.5},
			{LengthCm: 60, WidthCm: 40, HeightCm: 40, WeightKg: 12.5},
		},
	}
}

func TestShipmentCreateDerivesCounters(t *testing.T) {
	svc, _ := setupShipmentService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, createShipmentRequest("Mario.Rossi@Example.com"))
	require.NoError(t, err)

	assert.Regexp(t, `^SP-\d{4}-\d{2}-\d{2}-\d{5}$`, dto.HumanID)
	assert.Equal(t, "mario.rossi@example.com", dto.CustomerEmail)
	assert.Equal(t, domain.ShipmentStatusCreata, dto.Status)
	assert.Equal(t, 2, dto.ColliN)
	assert.InDelta(t, 193.0, dto.PesoRealeKg, 0.001)
	assert.Equal(t, "EUR", dto.Currency)
}

func TestShipmentUpdateStatusRejectsUnknownValues(t *testing.T) {
	svc, _ := setupShipmentService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, createShipmentRequest("cliente@example.com"))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, dto.ID, "SPEDITA")
	assert.ErrorIs(t, err, service.ErrInvalidStatus)

	// The stored status is untouched.
	stored, err := svc.GetByID(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentStatusCreata, stored.Status)

	// Lowercase input for a known value is normalized.
	updated, err := svc.UpdateStatus(ctx, dto.ID, "in transito")
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentStatusInTransito, updated.Status)
}

func TestShipmentReplacePackagesRecomputesCounters(t *testing.T) {
	svc, db := setupShipmentService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, createShipmentRequest("cliente@example.com"))
	require.NoError(t, err)

	updated, err := svc.ReplacePackages(ctx, dto.ID, &domain.ReplacePackagesRequest{
		Packages: []domain.PackageRequest{
			{LengthCm: 120, WidthCm: 80, HeightCm: 140, WeightKg: 300},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ColliN)
	assert.InDelta(t, 300.0, updated.PesoRealeKg, 0.001)

	// The old package rows are gone.
	var count int64
	require.NoError(t, db.Model(&domain.Package{}).Where("shipment_id = ?", dto.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestShipmentAttachDocumentSlots(t *testing.T) {
	svc, _ := setupShipmentService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, createShipmentRequest("cliente@example.com"))
	require.NoError(t, err)

	slot, err := svc.AttachDocument(ctx, dto.ID, -1, &domain.Attachment{
		URL:      "https://files.spst.it/fattura.pdf",
		FileName: "fattura.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, slot)

	// An explicit slot overwrites in place.
	slot, err = svc.AttachDocument(ctx, dto.ID, 3, &domain.Attachment{URL: "https://files.spst.it/packing.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 3, slot)

	stored, err := svc.GetByID(ctx, dto.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(stored.Attachments), 4)
	assert.Equal(t, "fattura.pdf", stored.Attachments[0].FileName)
	assert.Nil(t, stored.Attachments[1])
	assert.Equal(t, "https://files.spst.it/packing.pdf", stored.Attachments[3].URL)
}

func TestShipmentAttachDocumentFullSlots(t *testing.T) {
	svc, _ := setupShipmentService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, createShipmentRequest("cliente@example.com"))
	require.NoError(t, err)

	for i := 0; i < domain.MaxAttachmentSlots; i++ {
		_, err := svc.AttachDocument(ctx, dto.ID, i, &domain.Attachment{URL: "https://files.spst.it/x.pdf"})
		require.NoError(t, err)
	}

	_, err = svc.AttachDocument(ctx, dto.ID, -1, &domain.Attachment{URL: "https://files.spst.it/y.pdf"})
	assert.ErrorIs(t, err, service.ErrAttachmentSlotsFull)
}

func TestShipmentMarkDutyPaidIsIdempotent(t *testing.T) {
	svc, _ := setupShipmentService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, createShipmentRequest("cliente@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.MarkDutyPaid(ctx, dto.ID, "cs_test_123"))

	stored, err := svc.GetByID(ctx, dto.ID)
	require.NoError(t, err)
	assert.True(t, stored.DutyPaid)
	assert.Equal(t, "cs_test_123", stored.DutyPaymentRef)
	firstPaidAt := stored.DutyPaidAt

	// Replaying the same payment reference changes nothing.
	require.NoError(t, svc.MarkDutyPaid(ctx, dto.ID, "cs_test_123"))
	stored, err = svc.GetByID(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, firstPaidAt, stored.DutyPaidAt)
}
