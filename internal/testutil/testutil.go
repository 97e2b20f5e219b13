// Package testutil holds shared fixtures for the package-level test suites.
// Tests run against an in-memory sqlite database; BaseModel assigns uuids
// application-side so no postgres extension is needed.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spst-logistics/spst-api/internal/auth"
	"github.com/spst-logistics/spst-api/internal/domain"
)

// NewTestDB opens a fresh in-memory database and migrates the full schema.
// Each call gets its own database so tests never share state.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&domain.Carrier{},
		&domain.Shipment{},
		&domain.Package{},
		&domain.Quote{},
		&domain.QuotePackage{},
		&domain.QuoteOption{},
		&domain.PalletWave{},
		&domain.PalletWaveItem{},
		&domain.StaffUser{},
		&domain.CarrierUser{},
		&domain.AuthUser{},
		&domain.NotificationLog{},
		&domain.DateSequence{},
	)
	require.NoError(t, err)

	return db
}

// SeedStaff inserts a staff user and returns it
func SeedStaff(t *testing.T, db *gorm.DB, email string, role domain.StaffRole) *domain.StaffUser {
	t.Helper()
	staff := &domain.StaffUser{
		UserID:  uuid.New(),
		Email:   email,
		Role:    role,
		Enabled: true,
	}
	require.NoError(t, db.Create(staff).Error)
	return staff
}

// SeedCarrier inserts a carrier
func SeedCarrier(t *testing.T, db *gorm.DB, name, contactEmail string) *domain.Carrier {
	t.Helper()
	carrier := &domain.Carrier{Name: name, ContactEmail: contactEmail}
	require.NoError(t, db.Create(carrier).Error)
	return carrier
}

// SeedCarrierUser binds a fresh principal to a carrier, including the auth
// projection row used for notification fan-out.
func SeedCarrierUser(t *testing.T, db *gorm.DB, carrierID uuid.UUID, email string) *domain.CarrierUser {
	t.Helper()
	cu := &domain.CarrierUser{
		UserID:    uuid.New(),
		CarrierID: carrierID,
		Enabled:   true,
	}
	require.NoError(t, db.Create(cu).Error)
	require.NoError(t, db.Create(&domain.AuthUser{UserID: cu.UserID, Email: email}).Error)
	return cu
}

// SeedPalletShipment inserts a pallet shipment in CREATA with one package
func SeedPalletShipment(t *testing.T, db *gorm.DB, customerEmail string) *domain.Shipment {
	t.Helper()
	return SeedShipment(t, db, customerEmail, true)
}

// SeedShipment inserts a shipment in CREATA with one package
func SeedShipment(t *testing.T, db *gorm.DB, customerEmail string, pallet bool) *domain.Shipment {
	t.Helper()
	shipment := &domain.Shipment{
		HumanID:       fmt.Sprintf("SP-2025-06-01-%05d", nextSeed()),
		CustomerEmail: customerEmail,
		Sender:        domain.Party{Name: "SPST Srl", City: "Milano", Country: "IT"},
		Recipient:     domain.Party{Name: "Acme Corp", City: "New York", Country: "US"},
		Status:        domain.ShipmentStatusCreata,
		ColliN:        1,
		PesoRealeKg:   120,
		Currency:      "EUR",
		Pallet:        pallet,
		Packages: []domain.Package{
			{LengthCm: 120, WidthCm: 80, HeightCm: 100, WeightKg: 120},
		},
	}
	require.NoError(t, db.Create(shipment).Error)
	return shipment
}

// SeedQuote inserts a quote with a public token and the given options
func SeedQuote(t *testing.T, db *gorm.DB, customerEmail string, status domain.QuoteStatus, options ...domain.QuoteOption) *domain.Quote {
	t.Helper()
	quote := &domain.Quote{
		HumanID:       fmt.Sprintf("QT-2025-06-01-%05d", nextSeed()),
		CustomerEmail: customerEmail,
		Sender:        domain.Party{Name: "SPST Srl", City: "Milano", Country: "IT"},
		Recipient:     domain.Party{Name: "Acme Corp", City: "New York", Country: "US"},
		Status:        status,
		PublicToken:   uuid.NewString(),
		Currency:      "EUR",
		Options:       options,
	}
	require.NoError(t, db.Create(quote).Error)
	return quote
}

// SeedWave inserts a wave with items for the given shipments
func SeedWave(t *testing.T, db *gorm.DB, carrierID uuid.UUID, status domain.WaveStatus, shipments ...*domain.Shipment) *domain.PalletWave {
	t.Helper()
	wave := &domain.PalletWave{
		Code:              fmt.Sprintf("WV-2025-06-01-%03d", nextSeed()%1000),
		Status:            status,
		PlannedPickupDate: mustDate("2025-06-02"),
		PickupWindow:      "09:00-12:00",
		CarrierID:         carrierID,
	}
	require.NoError(t, db.Create(wave).Error)
	for _, sh := range shipments {
		item := &domain.PalletWaveItem{
			WaveID:     wave.ID,
			ShipmentID: sh.ID,
		}
		require.NoError(t, db.Create(item).Error)
	}
	return wave
}

// ContextFor builds a request context carrying the given principal
func ContextFor(userID uuid.UUID, email string) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID: userID,
		Email:  email,
	})
}

// StaffContext builds a request context for a seeded staff user
func StaffContext(staff *domain.StaffUser) context.Context {
	return ContextFor(staff.UserID, staff.Email)
}

// SentMail is one message captured by RecorderMailer
type SentMail struct {
	To      []string
	Subject string
	Body    string
}

// RecorderMailer captures outgoing mail instead of dialing SMTP. Set Err to
// make every Send fail.
type RecorderMailer struct {
	mu   sync.Mutex
	Err  error
	sent []SentMail
}

func (m *RecorderMailer) Send(to []string, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// Sent returns a copy of the captured messages
func (m *RecorderMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMail, len(m.sent))
	copy(out, m.sent)
	return out
}

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

var (
	seedMu sync.Mutex
	seedN  int
)

func nextSeed() int {
	seedMu.Lock()
	defer seedMu.Unlock()
	seedN++
	return seedN
}
