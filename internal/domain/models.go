package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Base model with common fields. The primary key is assigned in BeforeCreate;
// the SQL migrations add a gen_random_uuid() default for rows created outside
// the application.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the database has no uuid default (sqlite in tests)
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Party is one address block on a shipment or quote (sender, recipient, billing)
type Party struct {
	Name       string `gorm:"type:varchar(200)"`
	Address    string `gorm:"type:varchar(500)"`
	City       string `gorm:"type:varchar(100)"`
	PostalCode string `gorm:"type:varchar(20)"`
	Country    string `gorm:"type:varchar(100)"`
	Phone      string `gorm:"type:varchar(50)"`
	Email      string `gorm:"type:varchar(255)"`
	TaxID      string `gorm:"type:varchar(50);column:tax_id"`
}

// Shipment represents a cargo movement record.
// ColliN and PesoRealeKg are derived from the packages and recomputed
// whenever the package list is replaced.
type Shipment struct {
	BaseModel
	HumanID       string          `gorm:"type:varchar(30);unique;index;column:human_id"`
	CustomerEmail string          `gorm:"type:varchar(255);not null;index;column:customer_email"`
	Sender        Party           `gorm:"embedded;embeddedPrefix:sender_"`
	Recipient     Party           `gorm:"embedded;embeddedPrefix:recipient_"`
	Billing       Party           `gorm:"embedded;embeddedPrefix:billing_"`
	Status        ShipmentStatus  `gorm:"type:varchar(30);not null;default:'CREATA';index"`
	ColliN        int             `gorm:"not null;default:0;column:colli_n"`
	PesoRealeKg   float64         `gorm:"type:decimal(10,2);not null;default:0;column:peso_reale_kg"`
	DeclaredValue float64         `gorm:"type:decimal(15,2);not null;default:0;column:declared_value"`
	Currency      string          `gorm:"type:varchar(3);not null;default:'EUR'"`
	PickupDate    *time.Time      `gorm:"type:date;column:pickup_date"`
	CarrierName   string          `gorm:"type:varchar(200);column:carrier_name"`
	TrackingCode  string          `gorm:"type:varchar(100);index;column:tracking_code"`
	Pallet        bool            `gorm:"not null;default:false"`
	DutyPaid      bool            `gorm:"not null;default:false;column:duty_paid"`
	DutyPaidAt    *time.Time      `gorm:"column:duty_paid_at"`
	DutyPaymentRef string         `gorm:"type:varchar(100);column:duty_payment_ref"`
	Attachments   AttachmentSlots `gorm:"type:jsonb"`
	Packages      []Package       `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
}

// Package is one physical parcel or pallet belonging to a shipment
type Package struct {
	BaseModel
	ShipmentID uuid.UUID `gorm:"type:uuid;not null;index;column:shipment_id"`
	LengthCm   float64   `gorm:"type:decimal(8,2);not null;column:length_cm"`
	WidthCm    float64   `gorm:"type:decimal(8,2);not null;column:width_cm"`
	HeightCm   float64   `gorm:"type:decimal(8,2);not null;column:height_cm"`
	WeightKg   float64   `gorm:"type:decimal(8,2);not null;column:weight_kg"`
	Contents   string    `gorm:"type:varchar(500)"`
}

// Quote is a pre-shipment price negotiation
type Quote struct {
	BaseModel
	HumanID          string         `gorm:"type:varchar(30);unique;index;column:human_id"`
	CustomerEmail    string         `gorm:"type:varchar(255);not null;index;column:customer_email"`
	Sender           Party          `gorm:"embedded;embeddedPrefix:sender_"`
	Recipient        Party          `gorm:"embedded;embeddedPrefix:recipient_"`
	Status           QuoteStatus    `gorm:"type:varchar(30);not null;default:'IN LAVORAZIONE';index"`
	AcceptedOptionID *uuid.UUID     `gorm:"type:uuid;column:accepted_option_id"`
	PublicToken      string         `gorm:"type:varchar(64);unique;index;column:public_token"`
	DeclaredValue    float64        `gorm:"type:decimal(15,2);not null;default:0;column:declared_value"`
	Currency         string         `gorm:"type:varchar(3);not null;default:'EUR'"`
	Notes            string         `gorm:"type:text"`
	Packages         []QuotePackage `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
	Options          []QuoteOption  `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
}

// QuotePackage is one parcel line on a quote request
type QuotePackage struct {
	BaseModel
	QuoteID  uuid.UUID `gorm:"type:uuid;not null;index;column:quote_id"`
	LengthCm float64   `gorm:"type:decimal(8,2);not null;column:length_cm"`
	WidthCm  float64   `gorm:"type:decimal(8,2);not null;column:width_cm"`
	HeightCm float64   `gorm:"type:decimal(8,2);not null;column:height_cm"`
	WeightKg float64   `gorm:"type:decimal(8,2);not null;column:weight_kg"`
	Contents string    `gorm:"type:varchar(500)"`
}

// QuoteOption is one carrier/price proposal belonging to a quote
type QuoteOption struct {
	BaseModel
	QuoteID         uuid.UUID         `gorm:"type:uuid;not null;index;column:quote_id"`
	CarrierName     string            `gorm:"type:varchar(200);not null;column:carrier_name"`
	Price           float64           `gorm:"type:decimal(15,2);not null"`
	Currency        string            `gorm:"type:varchar(3);not null;default:'EUR'"`
	TransitDays     int               `gorm:"column:transit_days"`
	Status          QuoteOptionStatus `gorm:"type:varchar(20);not null;default:'bozza'"`
	VisibleToClient bool              `gorm:"not null;default:false;column:visible_to_client"`
	Notes           string            `gorm:"type:text"`
}

// Carrier is an external transport company
type Carrier struct {
	BaseModel
	Name         string `gorm:"type:varchar(200);not null;unique"`
	ContactEmail string `gorm:"type:varchar(255);column:contact_email"`
}

// PalletWave is a consolidated batch of pallet shipments for one pickup by one carrier
type PalletWave struct {
	BaseModel
	Code              string           `gorm:"type:varchar(30);unique;index"`
	Status            WaveStatus       `gorm:"type:varchar(20);not null;default:'bozza';index"`
	PlannedPickupDate time.Time        `gorm:"type:date;not null;column:planned_pickup_date"`
	PickupWindow      string           `gorm:"type:varchar(50);column:pickup_window"`
	Notes             string           `gorm:"type:text"`
	CarrierID         uuid.UUID        `gorm:"type:uuid;not null;index;column:carrier_id"`
	Carrier           *Carrier         `gorm:"foreignKey:CarrierID"`
	CreatedByID       string           `gorm:"type:varchar(100);column:created_by_id"`
	Items             []PalletWaveItem `gorm:"foreignKey:WaveID;constraint:OnDelete:CASCADE"`
}

// PalletWaveItem links one shipment into a wave
type PalletWaveItem struct {
	BaseModel
	WaveID              uuid.UUID  `gorm:"type:uuid;not null;index;column:wave_id"`
	ShipmentID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex;column:shipment_id"`
	Shipment            *Shipment  `gorm:"foreignKey:ShipmentID"`
	RequestedPickupDate *time.Time `gorm:"type:date;column:requested_pickup_date"`
	PlannedPickupDate   *time.Time `gorm:"type:date;column:planned_pickup_date"`
}

// TableName overrides the default pluralization
func (PalletWaveItem) TableName() string {
	return "pallet_wave_items"
}

// StaffRole is an internal operator role
type StaffRole string

const (
	StaffRoleAdmin    StaffRole = "admin"
	StaffRoleStaff    StaffRole = "staff"
	StaffRoleOperator StaffRole = "operator"
)

// IsValid checks if the StaffRole is a known enum value
func (r StaffRole) IsValid() bool {
	switch r {
	case StaffRoleAdmin, StaffRoleStaff, StaffRoleOperator:
		return true
	}
	return false
}

// StaffUser maps an authenticated principal to a staff role
type StaffUser struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id"`
	Email     string    `gorm:"type:varchar(255);not null;index"`
	Role      StaffRole `gorm:"type:varchar(20);not null;default:'staff'"`
	Enabled   bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// CarrierUser maps an authenticated principal to a carrier
type CarrierUser struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;column:user_id"`
	CarrierID uuid.UUID `gorm:"type:uuid;not null;index;column:carrier_id"`
	Enabled   bool      `gorm:"not null;default:true"`
}

// AuthUser is a read-only projection of the hosted auth provider's user store,
// used to resolve notification recipient addresses.
type AuthUser struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id"`
	Email  string    `gorm:"type:varchar(255);not null"`
}

// TableName points at the auth schema projection
func (AuthUser) TableName() string {
	return "auth_users"
}

// NotificationLog records one best-effort email dispatch attempt.
// Dispatches are keyed on the status transition, not on a "notified" flag,
// so replayed transitions produce additional rows.
type NotificationLog struct {
	BaseModel
	WaveID     uuid.UUID      `gorm:"type:uuid;not null;index;column:wave_id"`
	Kind       string         `gorm:"type:varchar(50);not null"`
	Recipients pq.StringArray `gorm:"type:text[]"`
	Error      string         `gorm:"type:text"`
}

// DateSequence backs the per-day human id counters (shipments, quotes, waves)
type DateSequence struct {
	Scope string `gorm:"type:varchar(20);primaryKey"`
	Date  string `gorm:"type:varchar(10);primaryKey"`
	Value int    `gorm:"not null;default:0"`
}
