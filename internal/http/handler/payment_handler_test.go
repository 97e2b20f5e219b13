package handler_test

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/http/handler"
	"github.com/spst-logistics/spst-api/internal/repository"
	"github.com/spst-logistics/spst-api/internal/service"
	"github.com/spst-logistics/spst-api/internal/testutil"
)

const testWebhookSecret = "whsec_test_0123456789abcdef"

func setupPaymentHandler(t *testing.T) (*chi.Mux, *gorm.DB) {
	db := testutil.NewTestDB(t)
	log := zap.NewNop()

	sequences := service.NewSequenceService(repository.NewSequenceRepository(db), log)
	shipmentService := service.NewShipmentService(db, repository.NewShipmentRepository(db), sequences, log)
	paymentService := service.NewPaymentService(shipmentService, testWebhookSecret, log)

	mux := chi.NewRouter()
	mux.Post("/stripe/webhook", handler.NewPaymentHandler(paymentService, log).Webhook)
	return mux, db
}

// stripeEvent builds a signed event body the way Stripe delivers it.
func stripeEvent(t *testing.T, eventType string, session map[string]any) (string, string) {
	t.Helper()
	raw, err := json.Marshal(session)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"id":          "evt_test_1",
		"object":      "event",
		"api_version": stripe.APIVersion,
		"type":        eventType,
		"data":        map[string]any{"object": json.RawMessage(raw)},
	})
	require.NoError(t, err)

	now := time.Now()
	sig := webhook.ComputeSignature(now, body, testWebhookSecret)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
	return string(body), header
}

func postWebhook(mux *chi.Mux, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	mux, _ := setupPaymentHandler(t)

	body, _ := stripeEvent(t, "checkout.session.completed", map[string]any{"id": "cs_test_1"})

	rec := postWebhook(mux, body, "t=12345,v1=deadbeef")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeInvalidPayload, apiErr.Type)

	// Missing header entirely is the same failure.
	rec = postWebhook(mux, body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookMarksDutyPaid(t *testing.T) {
	mux, db := setupPaymentHandler(t)
	shipment := testutil.SeedShipment(t, db, "cliente@example.com", false)

	body, sig := stripeEvent(t, "checkout.session.completed", map[string]any{
		"id":       "cs_test_duty",
		"metadata": map[string]string{"shipment_id": shipment.ID.String()},
	})

	rec := postWebhook(mux, body, sig)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	var stored domain.Shipment
	require.NoError(t, db.First(&stored, "id = ?", shipment.ID).Error)
	assert.True(t, stored.DutyPaid)
	require.NotNil(t, stored.DutyPaidAt)
	assert.Equal(t, "cs_test_duty", stored.DutyPaymentRef)
}

func TestWebhookUsesClientReferenceID(t *testing.T) {
	mux, db := setupPaymentHandler(t)
	shipment := testutil.SeedShipment(t, db, "cliente@example.com", false)

	body, sig := stripeEvent(t, "checkout.session.completed", map[string]any{
		"id":                  "cs_test_ref",
		"client_reference_id": shipment.ID.String(),
	})

	rec := postWebhook(mux, body, sig)
	require.Equal(t, http.StatusOK, rec.Code)

	var stored domain.Shipment
	require.NoError(t, db.First(&stored, "id = ?", shipment.ID).Error)
	assert.True(t, stored.DutyPaid)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	mux, db := setupPaymentHandler(t)
	shipment := testutil.SeedShipment(t, db, "cliente@example.com", false)

	body, sig := stripeEvent(t, "payment_intent.succeeded", map[string]any{
		"id":       "pi_test_1",
		"metadata": map[string]string{"shipment_id": shipment.ID.String()},
	})

	rec := postWebhook(mux, body, sig)
	require.Equal(t, http.StatusOK, rec.Code)

	var stored domain.Shipment
	require.NoError(t, db.First(&stored, "id = ?", shipment.ID).Error)
	assert.False(t, stored.DutyPaid)
}

func TestWebhookAcknowledgesUnusableSessions(t *testing.T) {
	mux, _ := setupPaymentHandler(t)

	// No shipment reference at all: acknowledged so Stripe stops retrying.
	body, sig := stripeEvent(t, "checkout.session.completed", map[string]any{"id": "cs_test_empty"})
	rec := postWebhook(mux, body, sig)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A reference to a shipment we do not know is acknowledged too.
	body, sig = stripeEvent(t, "checkout.session.completed", map[string]any{
		"id":       "cs_test_ghost",
		"metadata": map[string]string{"shipment_id": "0b0e7f62-5a51-4b77-a1a1-000000000000"},
	})
	rec = postWebhook(mux, body, sig)
	assert.Equal(t, http.StatusOK, rec.Code)
}
