package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/domain"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient permissions")
)

// UserDirectory resolves authenticated principals to staff or carrier records.
// Lookups return (nil, nil) when no record exists.
type UserDirectory interface {
	StaffByUserID(ctx context.Context, userID uuid.UUID) (*domain.StaffUser, error)
	StaffByEmail(ctx context.Context, email string) (*domain.StaffUser, error)
	CarrierUserByUserID(ctx context.Context, userID uuid.UUID) (*domain.CarrierUser, error)
}

// Access is the single capability checker used by every handler. All role
// decisions go through here so staff/carrier rules stay in one place.
type Access struct {
	users      UserDirectory
	breakGlass map[string]bool
	logger     *zap.Logger
}

// NewAccess creates the capability checker. breakGlassEmails is the
// comma-separated operator allow-list honored when the staff table is
// unreachable or empty.
func NewAccess(users UserDirectory, breakGlassEmails string, logger *zap.Logger) *Access {
	allow := make(map[string]bool)
	for _, e := range strings.Split(breakGlassEmails, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allow[e] = true
		}
	}
	return &Access{users: users, breakGlass: allow, logger: logger}
}

// RequireStaff resolves the current principal to a staff user. API-key
// principals and break-glass emails pass without a staff_users row.
func (a *Access) RequireStaff(ctx context.Context) (*domain.StaffUser, error) {
	userCtx, ok := FromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	if userCtx.System {
		return &domain.StaffUser{UserID: userCtx.UserID, Email: userCtx.Email, Role: domain.StaffRoleAdmin, Enabled: true}, nil
	}

	staff, err := a.users.StaffByUserID(ctx, userCtx.UserID)
	if err != nil {
		return nil, err
	}
	if staff == nil && userCtx.Email != "" {
		staff, err = a.users.StaffByEmail(ctx, userCtx.Email)
		if err != nil {
			return nil, err
		}
	}
	if staff != nil && staff.Enabled {
		return staff, nil
	}

	if a.breakGlass[strings.ToLower(userCtx.Email)] {
		a.logger.Warn("break-glass staff access granted",
			zap.String("user_email", userCtx.Email),
		)
		return &domain.StaffUser{UserID: userCtx.UserID, Email: userCtx.Email, Role: domain.StaffRoleAdmin, Enabled: true}, nil
	}

	return nil, ErrForbidden
}

// RequireAdmin resolves the current principal to an admin staff user
func (a *Access) RequireAdmin(ctx context.Context) (*domain.StaffUser, error) {
	staff, err := a.RequireStaff(ctx)
	if err != nil {
		return nil, err
	}
	if staff.Role != domain.StaffRoleAdmin {
		return nil, ErrForbidden
	}
	return staff, nil
}

// CarrierFor returns the carrier id bound to the current principal, or
// (uuid.Nil, nil) when the principal is not a carrier user.
func (a *Access) CarrierFor(ctx context.Context) (uuid.UUID, error) {
	userCtx, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil, ErrUnauthenticated
	}
	cu, err := a.users.CarrierUserByUserID(ctx, userCtx.UserID)
	if err != nil {
		return uuid.Nil, err
	}
	if cu == nil || !cu.Enabled {
		return uuid.Nil, nil
	}
	return cu.CarrierID, nil
}

// ResolveActor classifies the principal for a wave transition. Staff always
// act as staff; a carrier user acts as carrier only on waves assigned to
// their own carrier.
func (a *Access) ResolveActor(ctx context.Context, waveCarrierID uuid.UUID) (domain.WaveActor, error) {
	if _, err := a.RequireStaff(ctx); err == nil {
		return domain.WaveActorStaff, nil
	} else if !errors.Is(err, ErrForbidden) {
		return "", err
	}

	carrierID, err := a.CarrierFor(ctx)
	if err != nil {
		return "", err
	}
	if carrierID != uuid.Nil && carrierID == waveCarrierID {
		return domain.WaveActorCarrier, nil
	}

	return "", ErrForbidden
}
