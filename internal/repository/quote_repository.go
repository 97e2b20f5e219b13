package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
)

type QuoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

func (r *QuoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *QuoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	var quote domain.Quote
	err := r.db.WithContext(ctx).
		Preload("Packages").
		Preload("Options").
		First(&quote, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *QuoteRepository) GetByPublicToken(ctx context.Context, token string) (*domain.Quote, error) {
	var quote domain.Quote
	err := r.db.WithContext(ctx).
		Preload("Packages").
		Preload("Options").
		First(&quote, "public_token = ?", token).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *QuoteRepository) Update(ctx context.Context, quote *domain.Quote) error {
	return r.db.WithContext(ctx).Save(quote).Error
}

func (r *QuoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Quote{}, "id = ?", id).Error
}

type QuoteFilter struct {
	Status        *domain.QuoteStatus
	CustomerEmail string
	Search        string
}

func (r *QuoteRepository) List(ctx context.Context, page, pageSize int, filter QuoteFilter) ([]domain.Quote, int64, error) {
	var quotes []domain.Quote
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Quote{}).Preload("Options")

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerEmail != "" {
		query = query.Where("customer_email = ?", strings.ToLower(filter.CustomerEmail))
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("human_id LIKE ? OR recipient_name LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&quotes).Error

	return quotes, total, err
}

func (r *QuoteRepository) AddOption(ctx context.Context, option *domain.QuoteOption) error {
	return r.db.WithContext(ctx).Create(option).Error
}

func (r *QuoteRepository) GetOption(ctx context.Context, optionID uuid.UUID) (*domain.QuoteOption, error) {
	var option domain.QuoteOption
	err := r.db.WithContext(ctx).First(&option, "id = ?", optionID).Error
	if err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *QuoteRepository) UpdateOption(ctx context.Context, option *domain.QuoteOption) error {
	return r.db.WithContext(ctx).Save(option).Error
}

func (r *QuoteRepository) DeleteOption(ctx context.Context, optionID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.QuoteOption{}, "id = ?", optionID).Error
}
