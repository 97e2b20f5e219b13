package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/mapper"
	"github.com/spst-logistics/spst-api/internal/repository"
)

// QuoteService implements the quote lifecycle: drafting, carrier options,
// client-facing public tokens and the transactional acceptance flow.
type QuoteService struct {
	db        *gorm.DB
	quoteRepo *repository.QuoteRepository
	sequences *SequenceService
	logger    *zap.Logger
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(
	db *gorm.DB,
	quoteRepo *repository.QuoteRepository,
	sequences *SequenceService,
	logger *zap.Logger,
) *QuoteService {
	return &QuoteService{
		db:        db,
		quoteRepo: quoteRepo,
		sequences: sequences,
		logger:    logger,
	}
}

// Create builds a quote in IN LAVORAZIONE with a fresh human id and an
// unguessable public token for the client view.
func (s *QuoteService) Create(ctx context.Context, req *domain.CreateQuoteRequest) (*domain.QuoteDTO, error) {
	humanID, err := s.sequences.NextQuoteID(ctx)
	if err != nil {
		return nil, err
	}

	token, err := newPublicToken()
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	quote := &domain.Quote{
		HumanID:       humanID,
		CustomerEmail: strings.ToLower(req.CustomerEmail),
		Sender:        mapper.FromPartyRequest(&req.Sender),
		Recipient:     mapper.FromPartyRequest(&req.Recipient),
		Status:        domain.QuoteStatusInLavorazione,
		PublicToken:   token,
		DeclaredValue: req.DeclaredValue,
		Currency:      currency,
		Notes:         req.Notes,
	}

	for _, p := range req.Packages {
		quote.Packages = append(quote.Packages, domain.QuotePackage{
			LengthCm: p.LengthCm,
			WidthCm:  p.WidthCm,
			HeightCm: p.HeightCm,
			WeightKg: p.WeightKg,
			Contents: p.Contents,
		})
	}

	if err := s.quoteRepo.Create(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	s.logger.Info("quote created",
		zap.String("human_id", quote.HumanID),
		zap.String("customer_email", quote.CustomerEmail),
	)

	dto := mapper.ToQuoteDTO(quote, false)
	return &dto, nil
}

// GetByID returns one quote for staff, including hidden options
func (s *QuoteService) GetByID(ctx context.Context, id uuid.UUID) (*domain.QuoteDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	dto := mapper.ToQuoteDTO(quote, false)
	return &dto, nil
}

// GetByPublicToken returns the client view of a quote: hidden options are
// stripped and the token is the only credential.
func (s *QuoteService) GetByPublicToken(ctx context.Context, token string) (*domain.QuoteDTO, error) {
	quote, err := s.quoteRepo.GetByPublicToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	dto := mapper.ToQuoteDTO(quote, true)
	return &dto, nil
}

// GetForCustomer returns the client view of a quote owned by the given email.
// Non-owners get ErrNotFound so quote ids leak nothing.
func (s *QuoteService) GetForCustomer(ctx context.Context, id uuid.UUID, email string) (*domain.QuoteDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(quote.CustomerEmail), strings.TrimSpace(email)) {
		return nil, ErrNotFound
	}
	dto := mapper.ToQuoteDTO(quote, true)
	return &dto, nil
}

// List returns a page of quotes. clientView strips hidden options.
func (s *QuoteService) List(ctx context.Context, page, pageSize int, filter repository.QuoteFilter, clientView bool) ([]domain.QuoteDTO, int64, error) {
	quotes, total, err := s.quoteRepo.List(ctx, page, pageSize, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quotes: %w", err)
	}
	dtos := make([]domain.QuoteDTO, 0, len(quotes))
	for i := range quotes {
		dtos = append(dtos, mapper.ToQuoteDTO(&quotes[i], clientView))
	}
	return dtos, total, nil
}

// AddOption attaches a carrier/price proposal to a quote
func (s *QuoteService) AddOption(ctx context.Context, quoteID uuid.UUID, req *domain.AddQuoteOptionRequest) (*domain.QuoteOptionDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	if quote.Status == domain.QuoteStatusAccettata {
		return nil, ErrQuoteAlreadyAccepted
	}

	currency := req.Currency
	if currency == "" {
		currency = quote.Currency
	}

	option := &domain.QuoteOption{
		QuoteID:         quote.ID,
		CarrierName:     req.CarrierName,
		Price:           req.Price,
		Currency:        currency,
		TransitDays:     req.TransitDays,
		Status:          domain.QuoteOptionStatusBozza,
		VisibleToClient: req.VisibleToClient,
		Notes:           req.Notes,
	}

	if err := s.quoteRepo.AddOption(ctx, option); err != nil {
		return nil, fmt.Errorf("failed to add quote option: %w", err)
	}

	dto := mapper.ToQuoteOptionDTO(option)
	return &dto, nil
}

// UpdateStatus moves a quote between IN LAVORAZIONE and INVIATA. ACCETTATA
// is only reachable through Accept.
func (s *QuoteService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.QuoteDTO, error) {
	newStatus := domain.QuoteStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !newStatus.IsValid() || newStatus == domain.QuoteStatusAccettata {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	if quote.Status == domain.QuoteStatusAccettata {
		return nil, ErrQuoteAlreadyAccepted
	}

	quote.Status = newStatus
	if err := s.quoteRepo.Update(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to update quote status: %w", err)
	}

	dto := mapper.ToQuoteDTO(quote, false)
	return &dto, nil
}

// Accept performs the acceptance flow in one transaction: the quote moves to
// ACCETTATA with accepted_option_id set, the chosen option becomes accettata
// and every sibling becomes rifiutata. Re-accepting the same option is an
// idempotent no-op; accepting a different option after that fails.
func (s *QuoteService) Accept(ctx context.Context, quoteID, optionID uuid.UUID, clientView bool) (*domain.AcceptQuoteResponse, error) {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return s.accept(ctx, quote, optionID, clientView)
}

// AcceptByPublicToken is the client-side acceptance entry point
func (s *QuoteService) AcceptByPublicToken(ctx context.Context, token string, optionID uuid.UUID) (*domain.AcceptQuoteResponse, error) {
	quote, err := s.quoteRepo.GetByPublicToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return s.accept(ctx, quote, optionID, true)
}

func (s *QuoteService) accept(ctx context.Context, quote *domain.Quote, optionID uuid.UUID, clientView bool) (*domain.AcceptQuoteResponse, error) {
	var chosen *domain.QuoteOption
	for i := range quote.Options {
		if quote.Options[i].ID == optionID {
			chosen = &quote.Options[i]
			break
		}
	}
	if chosen == nil {
		return nil, ErrOptionNotFound
	}
	if clientView && !chosen.VisibleToClient {
		return nil, ErrOptionNotVisible
	}

	if quote.Status == domain.QuoteStatusAccettata {
		if quote.AcceptedOptionID != nil && *quote.AcceptedOptionID == optionID {
			return &domain.AcceptQuoteResponse{Ok: true, AcceptedOptionID: optionID, AlreadyAccepted: true}, nil
		}
		return nil, ErrQuoteAlreadyAccepted
	}

	if quote.Status != domain.QuoteStatusInviata {
		return nil, fmt.Errorf("%w: quote is %s", ErrInvalidStatus, quote.Status)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Quote{}).
			Where("id = ?", quote.ID).
			Updates(map[string]interface{}{
				"status":             domain.QuoteStatusAccettata,
				"accepted_option_id": optionID,
			}).Error; err != nil {
			return fmt.Errorf("failed to update quote: %w", err)
		}

		if err := tx.Model(&domain.QuoteOption{}).
			Where("id = ?", optionID).
			Update("status", domain.QuoteOptionStatusAccettata).Error; err != nil {
			return fmt.Errorf("failed to accept option: %w", err)
		}

		return tx.Model(&domain.QuoteOption{}).
			Where("quote_id = ? AND id <> ?", quote.ID, optionID).
			Update("status", domain.QuoteOptionStatusRifiutata).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quote accepted",
		zap.String("human_id", quote.HumanID),
		zap.String("option_id", optionID.String()),
		zap.Bool("client_view", clientView),
	)

	return &domain.AcceptQuoteResponse{Ok: true, AcceptedOptionID: optionID}, nil
}

// Delete removes a quote with its packages and options. An accepted quote
// is part of the order history and stays.
func (s *QuoteService) Delete(ctx context.Context, id uuid.UUID) error {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get quote: %w", err)
	}
	if quote.Status == domain.QuoteStatusAccettata {
		return ErrQuoteAlreadyAccepted
	}
	return s.quoteRepo.Delete(ctx, id)
}

// RemoveOption drops one option from a quote that has not been accepted yet
func (s *QuoteService) RemoveOption(ctx context.Context, quoteID, optionID uuid.UUID) error {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get quote: %w", err)
	}
	if quote.Status == domain.QuoteStatusAccettata {
		return ErrQuoteAlreadyAccepted
	}

	found := false
	for i := range quote.Options {
		if quote.Options[i].ID == optionID {
			found = true
			break
		}
	}
	if !found {
		return ErrOptionNotFound
	}

	return s.quoteRepo.DeleteOption(ctx, optionID)
}

func newPublicToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate public token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
