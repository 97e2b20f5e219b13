package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/auth"
	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/repository"
	"github.com/spst-logistics/spst-api/internal/testutil"
)

func TestRequireStaffResolvesTableEntries(t *testing.T) {
	db := testutil.NewTestDB(t)
	access := auth.NewAccess(repository.NewUserRepository(db), "", zap.NewNop())

	staff := testutil.SeedStaff(t, db, "ops@spst.it", domain.StaffRoleStaff)

	resolved, err := access.RequireStaff(testutil.StaffContext(staff))
	require.NoError(t, err)
	assert.Equal(t, staff.UserID, resolved.UserID)

	// An unknown principal is rejected.
	_, err = access.RequireStaff(testutil.ContextFor(uuid.New(), "cliente@example.com"))
	assert.ErrorIs(t, err, auth.ErrForbidden)

	// No principal at all.
	_, err = access.RequireStaff(context.Background())
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestRequireStaffBreakGlass(t *testing.T) {
	db := testutil.NewTestDB(t)
	access := auth.NewAccess(repository.NewUserRepository(db), "Ops@spst.it, backup@spst.it", zap.NewNop())

	// No staff_users row, but the email is on the allow-list (case-insensitive).
	resolved, err := access.RequireStaff(testutil.ContextFor(uuid.New(), "ops@SPST.it"))
	require.NoError(t, err)
	assert.Equal(t, domain.StaffRoleAdmin, resolved.Role)

	_, err = access.RequireStaff(testutil.ContextFor(uuid.New(), "intruso@spst.it"))
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestRequireStaffDisabledEntryFallsThrough(t *testing.T) {
	db := testutil.NewTestDB(t)
	access := auth.NewAccess(repository.NewUserRepository(db), "", zap.NewNop())

	staff := testutil.SeedStaff(t, db, "ex@spst.it", domain.StaffRoleStaff)
	require.NoError(t, db.Model(&domain.StaffUser{}).Where("user_id = ?", staff.UserID).Update("enabled", false).Error)

	_, err := access.RequireStaff(testutil.StaffContext(staff))
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestRequireAdmin(t *testing.T) {
	db := testutil.NewTestDB(t)
	access := auth.NewAccess(repository.NewUserRepository(db), "", zap.NewNop())

	admin := testutil.SeedStaff(t, db, "admin@spst.it", domain.StaffRoleAdmin)
	staff := testutil.SeedStaff(t, db, "ops@spst.it", domain.StaffRoleStaff)

	_, err := access.RequireAdmin(testutil.StaffContext(admin))
	require.NoError(t, err)

	_, err = access.RequireAdmin(testutil.StaffContext(staff))
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestResolveActor(t *testing.T) {
	db := testutil.NewTestDB(t)
	access := auth.NewAccess(repository.NewUserRepository(db), "", zap.NewNop())

	staff := testutil.SeedStaff(t, db, "ops@spst.it", domain.StaffRoleStaff)
	carrier := testutil.SeedCarrier(t, db, "Bartolini", "")
	other := testutil.SeedCarrier(t, db, "GLS", "")
	cu := testutil.SeedCarrierUser(t, db, carrier.ID, "autista@bartolini.example")

	actor, err := access.ResolveActor(testutil.StaffContext(staff), carrier.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WaveActorStaff, actor)

	actor, err = access.ResolveActor(testutil.ContextFor(cu.UserID, "autista@bartolini.example"), carrier.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WaveActorCarrier, actor)

	// A carrier user gets nothing on another carrier's wave.
	_, err = access.ResolveActor(testutil.ContextFor(cu.UserID, "autista@bartolini.example"), other.ID)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	// A plain customer gets nothing at all.
	_, err = access.ResolveActor(testutil.ContextFor(uuid.New(), "cliente@example.com"), carrier.ID)
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestCarrierForDisabledUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	access := auth.NewAccess(repository.NewUserRepository(db), "", zap.NewNop())

	carrier := testutil.SeedCarrier(t, db, "Bartolini", "")
	cu := testutil.SeedCarrierUser(t, db, carrier.ID, "autista@bartolini.example")
	require.NoError(t, db.Model(&domain.CarrierUser{}).Where("id = ?", cu.ID).Update("enabled", false).Error)

	id, err := access.CarrierFor(testutil.ContextFor(cu.UserID, "autista@bartolini.example"))
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)
}
