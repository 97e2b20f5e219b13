package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spst-logistics/spst-api/internal/domain"
)

// UserRepository resolves authenticated principals to staff and carrier
// records. Lookups return (nil, nil) when no record exists so callers can
// fall through to the next resolution step.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) StaffByUserID(ctx context.Context, userID uuid.UUID) (*domain.StaffUser, error) {
	var staff domain.StaffUser
	err := r.db.WithContext(ctx).First(&staff, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *UserRepository) StaffByEmail(ctx context.Context, email string) (*domain.StaffUser, error) {
	var staff domain.StaffUser
	err := r.db.WithContext(ctx).First(&staff, "LOWER(email) = ?", strings.ToLower(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *UserRepository) CarrierUserByUserID(ctx context.Context, userID uuid.UUID) (*domain.CarrierUser, error) {
	var cu domain.CarrierUser
	err := r.db.WithContext(ctx).First(&cu, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cu, nil
}

func (r *UserRepository) UpsertStaff(ctx context.Context, staff *domain.StaffUser) error {
	return r.db.WithContext(ctx).Save(staff).Error
}

func (r *UserRepository) CreateCarrierUser(ctx context.Context, cu *domain.CarrierUser) error {
	return r.db.WithContext(ctx).Create(cu).Error
}

// AuthEmailsByUserIDs resolves auth provider emails for notification fan-out
func (r *UserRepository) AuthEmailsByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []domain.AuthUser
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(users))
	for _, u := range users {
		if u.Email != "" {
			emails = append(emails, u.Email)
		}
	}
	return emails, nil
}

// CarrierUserIDs returns the user ids bound to a carrier
func (r *UserRepository) CarrierUserIDs(ctx context.Context, carrierID uuid.UUID) ([]uuid.UUID, error) {
	var users []domain.CarrierUser
	err := r.db.WithContext(ctx).
		Where("carrier_id = ? AND enabled = ?", carrierID, true).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.UserID)
	}
	return ids, nil
}
