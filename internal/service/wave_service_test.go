package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/repository"
	"github.com/spst-logistics/spst-api/internal/service"
	"github.com/spst-logistics/spst-api/internal/testutil"
)

type waveFixtures struct {
	db      *gorm.DB
	mailer  *testutil.RecorderMailer
	carrier *domain.Carrier
}

func setupWaveService(t *testing.T) (*service.WaveService, *waveFixtures) {
	db := testutil.NewTestDB(t)
	log := zap.NewNop()

	mailer := &testutil.RecorderMailer{}
	notifier := service.NewNotifierService(
		mailer,
		repository.NewUserRepository(db),
		repository.NewNotificationLogRepository(db),
		[]string{"ops@spst.it"},
		log,
	)
	sequences := service.NewSequenceService(repository.NewSequenceRepository(db), log)
	svc := service.NewWaveService(
		db,
		repository.NewWaveRepository(db),
		repository.NewShipmentRepository(db),
		repository.NewCarrierRepository(db),
		sequences,
		notifier,
		log,
	)

	return svc, &waveFixtures{
		db:      db,
		mailer:  mailer,
		carrier: testutil.SeedCarrier(t, db, "Bartolini", "dispo@bartolini.example"),
	}
}

func (f *waveFixtures) palletShipmentIDs(t *testing.T, n int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, testutil.SeedPalletShipment(t, f.db, "cliente@example.com").ID)
	}
	return ids
}

func (f *waveFixtures) createRequest(ids []uuid.UUID) *domain.CreateWaveRequest {
	return &domain.CreateWaveRequest{
		CarrierID:         f.carrier.ID,
		PlannedPickupDate: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		PickupWindow:      "09:00-12:00",
		ShipmentIDs:       ids,
	}
}

func TestWaveCreateRequiresShipments(t *testing.T) {
	svc, f := setupWaveService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "ops@spst.it", f.createRequest(nil))
	assert.ErrorIs(t, err, service.ErrShipmentIDsRequired)
}

func TestWaveCreateEnforcesMinimumPallets(t *testing.T) {
	svc, f := setupWaveService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "ops@spst.it", f.createRequest(f.palletShipmentIDs(t, 5)))
	assert.ErrorIs(t, err, service.ErrMinPalletsRequired)

	dto, err := svc.Create(ctx, "ops@spst.it", f.createRequest(f.palletShipmentIDs(t, 6)))
	require.NoError(t, err)
	assert.Equal(t, domain.WaveStatusBozza, dto.Status)
	assert.Equal(t, 6, dto.PalletCount)
	assert.Regexp(t, `^WV-\d{4}-\d{2}-\d{2}-\d{3}$`, dto.Code)
}

func TestWaveCreateRejectsNonPalletShipments(t *testing.T) {
	svc, f := setupWaveService(t)
	ctx := context.Background()

	ids := f.palletShipmentIDs(t, 5)
	ids = append(ids, testutil.SeedShipment(t, f.db, "cliente@example.com", false).ID)

	_, err := svc.Create(ctx, "ops@spst.it", f.createRequest(ids))
	assert.ErrorIs(t, err, service.ErrShipmentNotEligible)
}

func TestWaveCreateRejectsShipmentsAlreadyInAWave(t *testing.T) {
	svc, f := setupWaveService(t)
	ctx := context.Background()

	ids := f.palletShipmentIDs(t, 6)
	_, err := svc.Create(ctx, "ops@spst.it", f.createRequest(ids))
	require.NoError(t, err)

	// Reusing one shipment from the first wave poisons the second.
	again := f.palletShipmentIDs(t, 5)
	again = append(again, ids[0])
	_, err = svc.Create(ctx, "ops@spst.it", f.createRequest(again))
	assert.ErrorIs(t, err, service.ErrShipmentNotEligible)
}

func TestWaveSetStatusCarrierTransitions(t *testing.T) {
	svc, f := setupWaveService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, "ops@spst.it", f.createRequest(f.palletShipmentIDs(t, 6)))
	require.NoError(t, err)

	// A carrier cannot touch a draft.
	err = svc.SetStatus(ctx, dto.ID, domain.WaveActorCarrier, "inviata")
	assert.ErrorIs(t, err, service.ErrForbidden)

	require.NoError(t, svc.SetStatus(ctx, dto.ID, domain.WaveActorStaff, "inviata"))

	// inviata -> in_corso is the one carrier move, case-insensitive.
	require.NoError(t, svc.SetStatus(ctx, dto.ID, domain.WaveActorCarrier, "IN_CORSO"))

	// And nothing further.
	err = svc.SetStatus(ctx, dto.ID, domain.WaveActorCarrier, "completata")
	assert.ErrorIs(t, err, service.ErrForbidden)

	// Staff may move the wave anywhere, including backwards.
	require.NoError(t, svc.SetStatus(ctx, dto.ID, domain.WaveActorStaff, "bozza"))

	err = svc.SetStatus(ctx, dto.ID, domain.WaveActorStaff, "spedita")
	assert.ErrorIs(t, err, service.ErrInvalidStatus)
}

func TestWaveSentNotificationIsRecorded(t *testing.T) {
	svc, f := setupWaveService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, "ops@spst.it", f.createRequest(f.palletShipmentIDs(t, 6)))
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(ctx, dto.ID, domain.WaveActorStaff, "inviata"))

	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"dispo@bartolini.example"}, sent[0].To)
	assert.Contains(t, sent[0].Subject, dto.Code)

	var logs []domain.NotificationLog
	require.NoError(t, f.db.Where("wave_id = ?", dto.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, service.NotificationWaveSent, logs[0].Kind)
	assert.Empty(t, logs[0].Error)
}

func TestWaveNotificationFailureDoesNotBlockTransition(t *testing.T) {
	svc, f := setupWaveService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, "ops@spst.it", f.createRequest(f.palletShipmentIDs(t, 6)))
	require.NoError(t, err)

	f.mailer.Err = assert.AnError
	require.NoError(t, svc.SetStatus(ctx, dto.ID, domain.WaveActorStaff, "inviata"))

	// The transition committed even though the mail bounced.
	stored, err := svc.GetByID(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WaveStatusInviata, stored.Status)

	var logs []domain.NotificationLog
	require.NoError(t, f.db.Where("wave_id = ?", dto.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.NotEmpty(t, logs[0].Error)
}

func TestWavePickedUpNotificationOnlyForCarrierActor(t *testing.T) {
	svc, f := setupWaveService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, "ops@spst.it", f.createRequest(f.palletShipmentIDs(t, 6)))
	require.NoError(t, err)
	require.NoError(t, svc.SetStatus(ctx, dto.ID, domain.WaveActorStaff, "inviata"))

	// Staff moving the wave to in_corso is bookkeeping, not a pickup event.
	require.NoError(t, svc.SetStatus(ctx, dto.ID, domain.WaveActorStaff, "in_corso"))
	assert.Len(t, f.mailer.Sent(), 1)

	// Dispatch is keyed on the transition, so only bozza -> inviata and the
	// carrier pickup send mail; the staff reset back to inviata does not.
	require.NoError(t, svc.SetStatus(ctx, dto.ID, domain.WaveActorStaff, "inviata"))
	require.NoError(t, svc.SetStatus(ctx, dto.ID, domain.WaveActorCarrier, "in_corso"))

	sent := f.mailer.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].Subject, "Ritiro avviato")
}

func TestWaveNotificationPrefersCarrierUsers(t *testing.T) {
	svc, f := setupWaveService(t)
	ctx := context.Background()

	testutil.SeedCarrierUser(t, f.db, f.carrier.ID, "autista@bartolini.example")
	testutil.SeedCarrierUser(t, f.db, f.carrier.ID, "dispo2@bartolini.example")

	dto, err := svc.Create(ctx, "ops@spst.it", f.createRequest(f.palletShipmentIDs(t, 6)))
	require.NoError(t, err)
	require.NoError(t, svc.SetStatus(ctx, dto.ID, domain.WaveActorStaff, "inviata"))

	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.ElementsMatch(t, []string{"autista@bartolini.example", "dispo2@bartolini.example"}, sent[0].To)
}

func TestWaveRemindUpcomingPickups(t *testing.T) {
	svc, f := setupWaveService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, "ops@spst.it", f.createRequest(f.palletShipmentIDs(t, 6)))
	require.NoError(t, err)
	require.NoError(t, svc.SetStatus(ctx, dto.ID, domain.WaveActorStaff, "inviata"))

	// The day before the planned pickup, one reminder goes out.
	count, err := svc.RemindUpcomingPickups(ctx, time.Date(2025, 6, 9, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The reminder body carries the real totals, not zeroes.
	sent := f.mailer.Sent()
	require.Len(t, sent, 2)
	reminder := sent[1]
	assert.Contains(t, reminder.Subject, dto.Code)
	assert.Contains(t, reminder.Body, "6 spedizioni")
	assert.Contains(t, reminder.Body, "6 bancali")

	// Two days ahead, nothing is due.
	count, err = svc.RemindUpcomingPickups(ctx, time.Date(2025, 6, 8, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	var logs []domain.NotificationLog
	require.NoError(t, f.db.Where("wave_id = ? AND kind = ?", dto.ID, service.NotificationPickupDue).Find(&logs).Error)
	assert.Len(t, logs, 1)
}

func TestWaveUpdateOnlyInBozza(t *testing.T) {
	svc, f := setupWaveService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, "ops@spst.it", f.createRequest(f.palletShipmentIDs(t, 6)))
	require.NoError(t, err)

	window := "14:00-18:00"
	updated, err := svc.Update(ctx, dto.ID, &domain.UpdateWaveRequest{PickupWindow: &window})
	require.NoError(t, err)
	assert.Equal(t, window, updated.PickupWindow)

	require.NoError(t, svc.SetStatus(ctx, dto.ID, domain.WaveActorStaff, "inviata"))
	_, err = svc.Update(ctx, dto.ID, &domain.UpdateWaveRequest{PickupWindow: &window})
	assert.ErrorIs(t, err, service.ErrInvalidStatus)
}

func TestWavePalletPoolExcludesAssignedShipments(t *testing.T) {
	svc, f := setupWaveService(t)
	ctx := context.Background()

	ids := f.palletShipmentIDs(t, 6)
	loose := testutil.SeedPalletShipment(t, f.db, "cliente@example.com")
	testutil.SeedShipment(t, f.db, "cliente@example.com", false)

	_, err := svc.Create(ctx, "ops@spst.it", f.createRequest(ids))
	require.NoError(t, err)

	pool, err := svc.PalletPool(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, loose.ID, pool[0].ID)
}
