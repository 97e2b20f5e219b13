package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/auth"
	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/http/handler"
	"github.com/spst-logistics/spst-api/internal/repository"
	"github.com/spst-logistics/spst-api/internal/service"
	"github.com/spst-logistics/spst-api/internal/testutil"
)

type waveHandlerFixture struct {
	db           *gorm.DB
	mux          *chi.Mux
	staff        *domain.StaffUser
	carrier      *domain.Carrier
	carrierUser  *domain.CarrierUser
	carrierEmail string
}

func setupWaveHandler(t *testing.T) *waveHandlerFixture {
	db := testutil.NewTestDB(t)
	log := zap.NewNop()

	waveRepo := repository.NewWaveRepository(db)
	notifier := service.NewNotifierService(
		&testutil.RecorderMailer{},
		repository.NewUserRepository(db),
		repository.NewNotificationLogRepository(db),
		[]string{"ops@spst.it"},
		log,
	)
	sequences := service.NewSequenceService(repository.NewSequenceRepository(db), log)
	waveService := service.NewWaveService(
		db,
		waveRepo,
		repository.NewShipmentRepository(db),
		repository.NewCarrierRepository(db),
		sequences,
		notifier,
		log,
	)
	access := auth.NewAccess(repository.NewUserRepository(db), "", log)
	h := handler.NewWaveHandler(waveService, service.NewManifestService(waveRepo, log), access, log)

	mux := chi.NewRouter()
	mux.Get("/pallets/waves/{id}", h.GetByID)
	mux.Patch("/pallets/waves/{id}/status", h.SetStatus)

	carrier := testutil.SeedCarrier(t, db, "Bartolini", "dispo@bartolini.example")
	return &waveHandlerFixture{
		db:           db,
		mux:          mux,
		staff:        testutil.SeedStaff(t, db, "ops@spst.it", domain.StaffRoleStaff),
		carrier:      carrier,
		carrierUser:  testutil.SeedCarrierUser(t, db, carrier.ID, "autista@bartolini.example"),
		carrierEmail: "autista@bartolini.example",
	}
}

func (f *waveHandlerFixture) carrierPrincipal() *auth.UserContext {
	return &auth.UserContext{UserID: f.carrierUser.UserID, Email: f.carrierEmail}
}

func (f *waveHandlerFixture) patchStatus(t *testing.T, waveID, status string, user *auth.UserContext) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(domain.UpdateWaveStatusRequest{Status: status})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPatch, "/pallets/waves/"+waveID+"/status", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(req, user))
	return rec
}

func TestWaveStatusCarrierScope(t *testing.T) {
	f := setupWaveHandler(t)
	wave := testutil.SeedWave(t, f.db, f.carrier.ID, domain.WaveStatusInviata,
		testutil.SeedPalletShipment(t, f.db, "cliente@example.com"))

	// The assigned carrier confirms the pickup, case-insensitively.
	rec := f.patchStatus(t, wave.ID.String(), "IN_CORSO", f.carrierPrincipal())
	require.Equal(t, http.StatusOK, rec.Code)
	var dto domain.WaveDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, domain.WaveStatusInCorso, dto.Status)

	// Only staff may move it further.
	rec = f.patchStatus(t, wave.ID.String(), "completata", f.carrierPrincipal())
	require.Equal(t, http.StatusForbidden, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeForbidden, apiErr.Type)

	rec = f.patchStatus(t, wave.ID.String(), "completata", principal(f.staff))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWaveStatusRejectsForeignCarrier(t *testing.T) {
	f := setupWaveHandler(t)
	wave := testutil.SeedWave(t, f.db, f.carrier.ID, domain.WaveStatusInviata,
		testutil.SeedPalletShipment(t, f.db, "cliente@example.com"))

	other := testutil.SeedCarrier(t, f.db, "GLS", "")
	intruder := testutil.SeedCarrierUser(t, f.db, other.ID, "autista@gls.example")

	rec := f.patchStatus(t, wave.ID.String(), "in_corso",
		&auth.UserContext{UserID: intruder.UserID, Email: "autista@gls.example"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var stored domain.PalletWave
	require.NoError(t, f.db.First(&stored, "id = ?", wave.ID).Error)
	assert.Equal(t, domain.WaveStatusInviata, stored.Status)
}

func TestWaveGetScoping(t *testing.T) {
	f := setupWaveHandler(t)
	wave := testutil.SeedWave(t, f.db, f.carrier.ID, domain.WaveStatusInviata,
		testutil.SeedPalletShipment(t, f.db, "cliente@example.com"))
	url := "/pallets/waves/" + wave.ID.String()

	// Staff and the assigned carrier can read the wave.
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodGet, url, nil), principal(f.staff)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodGet, url, nil), f.carrierPrincipal()))
	assert.Equal(t, http.StatusOK, rec.Code)

	// A user tied to another carrier gets a 404 rather than a 403.
	other := testutil.SeedCarrier(t, f.db, "GLS", "")
	intruder := testutil.SeedCarrierUser(t, f.db, other.ID, "autista@gls.example")
	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodGet, url, nil),
		&auth.UserContext{UserID: intruder.UserID, Email: "autista@gls.example"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
