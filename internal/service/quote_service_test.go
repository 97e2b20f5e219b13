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

func setupQuoteService(t *testing.T) (*service.QuoteService, *gorm.DB) {
	db := testutil.NewTestDB(t)
	log := zap.NewNop()
	sequences := service.NewSequenceService(repository.NewSequenceRepository(db), log)
	svc := service.NewQuoteService(db, repository.NewQuoteRepository(db), sequences, log)
	return svc, db
}

func visibleOption(carrier string, price float64) domain.QuoteOption {
	return domain.QuoteOption{
		CarrierName:     carrier,
		Price:           price,
		Currency:        "EUR",
		Status:          domain.QuoteOptionStatusBozza,
		VisibleToClient: true,
	}
}

func hiddenOption(carrier string, price float64) domain.QuoteOption {
	opt := visibleOption(carrier, price)
	opt.VisibleToClient = false
	return opt
}

func TestQuoteCreateGeneratesTokenAndHumanID(t *testing.T) {
	svc, db := setupQuoteService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, &domain.CreateQuoteRequest{
		CustomerEmail: "Cliente@Example.com",
		Sender:        domain.PartyRequest{Name: "SPST Srl"},
		Recipient:     domain.PartyRequest{Name: "Acme Corp"},
	})
	require.NoError(t, err)

	assert.Regexp(t, `^QT-\d{4}-\d{2}-\d{2}-\d{5}$`, dto.HumanID)
	assert.Equal(t, "cliente@example.com", dto.CustomerEmail)
	assert.Equal(t, domain.QuoteStatusInLavorazione, dto.Status)

	// The share token is stored but never part of the DTO.
	var stored domain.Quote
	require.NoError(t, db.First(&stored, "id = ?", dto.ID).Error)
	assert.Len(t, stored.PublicToken, 48)

	quote, err := svc.GetByPublicToken(ctx, stored.PublicToken)
	require.NoError(t, err)
	assert.Equal(t, dto.ID, quote.ID)
}

func TestQuoteAcceptRequiresInviata(t *testing.T) {
	svc, db := setupQuoteService(t)
	ctx := context.Background()

	quote := testutil.SeedQuote(t, db, "cliente@example.com", domain.QuoteStatusInLavorazione,
		visibleOption("DHL", 420))

	_, err := svc.Accept(ctx, quote.ID, quote.Options[0].ID, false)
	assert.ErrorIs(t, err, service.ErrInvalidStatus)
}

func TestQuoteAcceptRejectsSiblingsAndIsIdempotent(t *testing.T) {
	svc, db := setupQuoteService(t)
	ctx := context.Background()

	quote := testutil.SeedQuote(t, db, "cliente@example.com", domain.QuoteStatusInviata,
		visibleOption("DHL", 420),
		visibleOption("UPS", 380),
		visibleOption("FedEx", 450))
	chosen := quote.Options[1]

	res, err := svc.Accept(ctx, quote.ID, chosen.ID, false)
	require.NoError(t, err)
	assert.True(t, res.Ok)
	assert.Equal(t, chosen.ID, res.AcceptedOptionID)
	assert.False(t, res.AlreadyAccepted)

	stored, err := svc.GetByID(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusAccettata, stored.Status)
	require.NotNil(t, stored.AcceptedOptionID)
	assert.Equal(t, chosen.ID, *stored.AcceptedOptionID)
	for _, opt := range stored.Options {
		if opt.ID == chosen.ID {
			assert.Equal(t, domain.QuoteOptionStatusAccettata, opt.Status)
		} else {
			assert.Equal(t, domain.QuoteOptionStatusRifiutata, opt.Status)
		}
	}

	// Re-accepting the same option is a no-op.
	res, err = svc.Accept(ctx, quote.ID, chosen.ID, false)
	require.NoError(t, err)
	assert.True(t, res.Ok)
	assert.True(t, res.AlreadyAccepted)

	// Accepting a different option after that fails.
	_, err = svc.Accept(ctx, quote.ID, quote.Options[0].ID, false)
	assert.ErrorIs(t, err, service.ErrQuoteAlreadyAccepted)
}

func TestQuoteAcceptHiddenOptionVisibility(t *testing.T) {
	svc, db := setupQuoteService(t)
	ctx := context.Background()

	quote := testutil.SeedQuote(t, db, "cliente@example.com", domain.QuoteStatusInviata,
		hiddenOption("DHL", 420),
		visibleOption("UPS", 380))
	hidden := quote.Options[0]

	// A client cannot accept an option staff kept hidden.
	_, err := svc.Accept(ctx, quote.ID, hidden.ID, true)
	assert.ErrorIs(t, err, service.ErrOptionNotVisible)

	// Staff can.
	res, err := svc.Accept(ctx, quote.ID, hidden.ID, false)
	require.NoError(t, err)
	assert.True(t, res.Ok)
}

func TestQuoteAcceptUnknownOption(t *testing.T) {
	svc, db := setupQuoteService(t)
	ctx := context.Background()

	quote := testutil.SeedQuote(t, db, "cliente@example.com", domain.QuoteStatusInviata,
		visibleOption("DHL", 420))
	other := testutil.SeedQuote(t, db, "altro@example.com", domain.QuoteStatusInviata,
		visibleOption("UPS", 380))

	// An option belonging to another quote is not found on this one.
	_, err := svc.Accept(ctx, quote.ID, other.Options[0].ID, false)
	assert.ErrorIs(t, err, service.ErrOptionNotFound)
}

func TestQuoteClientViewStripsHiddenOptions(t *testing.T) {
	svc, db := setupQuoteService(t)
	ctx := context.Background()

	quote := testutil.SeedQuote(t, db, "cliente@example.com", domain.QuoteStatusInviata,
		hiddenOption("DHL", 420),
		visibleOption("UPS", 380))

	staffView, err := svc.GetByID(ctx, quote.ID)
	require.NoError(t, err)
	assert.Len(t, staffView.Options, 2)

	clientView, err := svc.GetForCustomer(ctx, quote.ID, "CLIENTE@example.com")
	require.NoError(t, err)
	require.Len(t, clientView.Options, 1)
	assert.Equal(t, "UPS", clientView.Options[0].CarrierName)

	// A different customer sees nothing at all.
	_, err = svc.GetForCustomer(ctx, quote.ID, "intruso@example.com")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestQuoteAcceptByPublicToken(t *testing.T) {
	svc, db := setupQuoteService(t)
	ctx := context.Background()

	quote := testutil.SeedQuote(t, db, "cliente@example.com", domain.QuoteStatusInviata,
		visibleOption("DHL", 420))

	res, err := svc.AcceptByPublicToken(ctx, quote.PublicToken, quote.Options[0].ID)
	require.NoError(t, err)
	assert.True(t, res.Ok)

	_, err = svc.AcceptByPublicToken(ctx, "not-a-token", quote.Options[0].ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestQuoteUpdateStatusCannotReachAccettata(t *testing.T) {
	svc, db := setupQuoteService(t)
	ctx := context.Background()

	quote := testutil.SeedQuote(t, db, "cliente@example.com", domain.QuoteStatusInLavorazione)

	_, err := svc.UpdateStatus(ctx, quote.ID, "ACCETTATA")
	assert.ErrorIs(t, err, service.ErrInvalidStatus)

	dto, err := svc.UpdateStatus(ctx, quote.ID, "inviata")
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusInviata, dto.Status)
}

func TestQuoteDeleteRefusesAccepted(t *testing.T) {
	svc, db := setupQuoteService(t)
	ctx := context.Background()

	quote := testutil.SeedQuote(t, db, "cliente@example.com", domain.QuoteStatusInviata,
		visibleOption("DHL", 420))
	_, err := svc.Accept(ctx, quote.ID, quote.Options[0].ID, false)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, quote.ID), service.ErrQuoteAlreadyAccepted)
	assert.ErrorIs(t, svc.RemoveOption(ctx, quote.ID, quote.Options[0].ID), service.ErrQuoteAlreadyAccepted)

	draft := testutil.SeedQuote(t, db, "cliente@example.com", domain.QuoteStatusInLavorazione,
		visibleOption("UPS", 380))
	require.NoError(t, svc.RemoveOption(ctx, draft.ID, draft.Options[0].ID))
	require.NoError(t, svc.Delete(ctx, draft.ID))

	_, err = svc.GetByID(ctx, draft.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
