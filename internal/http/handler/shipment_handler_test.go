package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/auth"
	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/http/handler"
	"github.com/spst-logistics/spst-api/internal/repository"
	"github.com/spst-logistics/spst-api/internal/service"
	"github.com/spst-logistics/spst-api/internal/storage"
	"github.com/spst-logistics/spst-api/internal/testutil"
)

type shipmentHandlerFixture struct {
	db    *gorm.DB
	staff *domain.StaffUser
	mux   *chi.Mux
}

// withPrincipal injects an authenticated principal the way the auth
// middleware would
func withPrincipal(r *http.Request, user *auth.UserContext) *http.Request {
	if user == nil {
		return r
	}
	return r.WithContext(auth.WithUserContext(r.Context(), user))
}

func principal(staff *domain.StaffUser) *auth.UserContext {
	return &auth.UserContext{UserID: staff.UserID, Email: staff.Email}
}

func customer(email string) *auth.UserContext {
	return &auth.UserContext{UserID: uuid.New(), Email: email}
}

func setupShipmentHandler(t *testing.T) *shipmentHandlerFixture {
	db := testutil.NewTestDB(t)
	log := zap.NewNop()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	sequences := service.NewSequenceService(repository.NewSequenceRepository(db), log)
	shipmentService := service.NewShipmentService(db, repository.NewShipmentRepository(db), sequences, log)
	access := auth.NewAccess(repository.NewUserRepository(db), "", log)

	h := handler.NewShipmentHandler(shipmentService, access, store, log)

	mux := chi.NewRouter()
	mux.Get("/spedizioni/{id}", h.GetByID)
	mux.Patch("/spedizioni/{id}/status", h.UpdateStatus)
	mux.Post("/spedizioni/{id}/upload", h.Upload)

	return &shipmentHandlerFixture{
		db:    db,
		staff: testutil.SeedStaff(t, db, "ops@spst.it", domain.StaffRoleStaff),
		mux:   mux,
	}
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadAttachment(t *testing.T) {
	f := setupShipmentHandler(t)
	shipment := testutil.SeedShipment(t, f.db, "cliente@example.com", false)

	body, contentType := multipartBody(t, map[string]string{"type": "fattura"}, "file", "fattura-giugno.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/spedizioni/"+shipment.ID.String()+"/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	f.mux.ServeHTTP(rec, withPrincipal(req, customer("cliente@example.com")))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.UploadAttachmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ok)
	assert.Equal(t, 0, resp.Slot)
	assert.Contains(t, resp.URL, "/files/")
	require.NotNil(t, resp.Attachment)
	assert.Equal(t, "fattura-giugno.pdf", resp.Attachment.FileName)

	// The slot is persisted on the shipment.
	var stored domain.Shipment
	require.NoError(t, f.db.First(&stored, "id = ?", shipment.ID).Error)
	require.GreaterOrEqual(t, len(stored.Attachments), 1)
	assert.Equal(t, resp.URL, stored.Attachments[0].URL)
}

func TestUploadAttachmentMissingFileOrType(t *testing.T) {
	f := setupShipmentHandler(t)
	shipment := testutil.SeedShipment(t, f.db, "cliente@example.com", false)
	url := "/spedizioni/" + shipment.ID.String() + "/upload"

	// Missing file part.
	body, contentType := multipartBody(t, map[string]string{"type": "fattura"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(req, customer("cliente@example.com")))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeFileOrTypeMissing, apiErr.Type)

	// Missing type field.
	body, contentType = multipartBody(t, nil, "file", "fattura.pdf", []byte("%PDF-1.4"))
	req = httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(req, customer("cliente@example.com")))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeFileOrTypeMissing, apiErr.Type)
}

func TestGetShipmentOwnership(t *testing.T) {
	f := setupShipmentHandler(t)
	shipment := testutil.SeedShipment(t, f.db, "cliente@example.com", false)
	url := "/spedizioni/" + shipment.ID.String()

	// Owner sees it.
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodGet, url, nil), customer("CLIENTE@example.com")))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Staff sees it.
	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodGet, url, nil), principal(f.staff)))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another customer gets a 404, not a 403.
	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodGet, url, nil), customer("intruso@example.com")))
	require.Equal(t, http.StatusNotFound, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeNotFound, apiErr.Type)
}

func TestGetShipmentPersistenceFailure(t *testing.T) {
	f := setupShipmentHandler(t)
	shipment := testutil.SeedShipment(t, f.db, "cliente@example.com", false)

	// With the table gone every read fails at the database layer; clients
	// get the DB_ERROR kind with the underlying message attached.
	require.NoError(t, f.db.Exec("DROP TABLE shipments").Error)

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(
		httptest.NewRequest(http.MethodGet, "/spedizioni/"+shipment.ID.String(), nil),
		principal(f.staff)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeDB, apiErr.Type)
	assert.NotEmpty(t, apiErr.Detail)
}

func TestUpdateShipmentStatusIsStaffOnly(t *testing.T) {
	f := setupShipmentHandler(t)
	shipment := testutil.SeedShipment(t, f.db, "cliente@example.com", false)
	url := "/spedizioni/" + shipment.ID.String() + "/status"

	payload := bytes.NewBufferString(`{"status":"IN TRANSITO"}`)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodPatch, url, payload), customer("cliente@example.com")))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	payload = bytes.NewBufferString(`{"status":"IN TRANSITO"}`)
	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodPatch, url, payload), principal(f.staff)))
	require.Equal(t, http.StatusOK, rec.Code)

	// Values outside the enum are rejected with the stable error code.
	payload = bytes.NewBufferString(`{"status":"SPEDITA"}`)
	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodPatch, url, payload), principal(f.staff)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeInvalidStatus, apiErr.Type)
}
