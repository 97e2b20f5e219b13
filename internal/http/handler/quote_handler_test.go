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

func setupQuoteHandler(t *testing.T) (*chi.Mux, *gorm.DB) {
	db := testutil.NewTestDB(t)
	log := zap.NewNop()

	sequences := service.NewSequenceService(repository.NewSequenceRepository(db), log)
	quoteService := service.NewQuoteService(db, repository.NewQuoteRepository(db), sequences, log)
	access := auth.NewAccess(repository.NewUserRepository(db), "", log)
	h := handler.NewQuoteHandler(quoteService, access, log)

	mux := chi.NewRouter()
	mux.Post("/quotazioni/{id}/accept", h.Accept)
	mux.Post("/public/quotazioni/{token}/accept", h.AcceptByPublicToken)
	return mux, db
}

func TestAcceptRequiresOptionID(t *testing.T) {
	mux, db := setupQuoteHandler(t)
	quote := testutil.SeedQuote(t, db, "cliente@example.com", domain.QuoteStatusInviata,
		domain.QuoteOption{CarrierName: "UPS", Price: 420, VisibleToClient: true})

	req := httptest.NewRequest(http.MethodPost, "/quotazioni/"+quote.ID.String()+"/accept",
		bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withPrincipal(req, customer("cliente@example.com")))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeMissingOptionID, apiErr.Type)
}

func TestAcceptByPublicTokenRequiresOptionID(t *testing.T) {
	mux, db := setupQuoteHandler(t)
	quote := testutil.SeedQuote(t, db, "cliente@example.com", domain.QuoteStatusInviata,
		domain.QuoteOption{CarrierName: "UPS", Price: 420, VisibleToClient: true})

	req := httptest.NewRequest(http.MethodPost, "/public/quotazioni/"+quote.PublicToken+"/accept",
		bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeMissingOptionID, apiErr.Type)

	// The quote is untouched.
	var stored domain.Quote
	require.NoError(t, db.First(&stored, "id = ?", quote.ID).Error)
	assert.Equal(t, domain.QuoteStatusInviata, stored.Status)
}
