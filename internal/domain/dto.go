package domain

import (
	"time"

	"github.com/google/uuid"
)

// DTOs for API responses. Field names follow the Italian back-office
// vocabulary the frontends already use.

// PartyDTO is one address block on a shipment or quote
type PartyDTO struct {
	Name       string `json:"name,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	TaxID      string `json:"taxId,omitempty"`
}

type ShipmentDTO struct {
	ID             uuid.UUID       `json:"id"`
	HumanID        string          `json:"humanId"`
	CustomerEmail  string          `json:"customerEmail"`
	Sender         PartyDTO        `json:"sender"`
	Recipient      PartyDTO        `json:"recipient"`
	Billing        PartyDTO        `json:"billing"`
	Status         ShipmentStatus  `json:"status"`
	ColliN         int             `json:"colliN"`
	PesoRealeKg    float64         `json:"pesoRealeKg"`
	DeclaredValue  float64         `json:"declaredValue"`
	Currency       string          `json:"currency"`
	PickupDate     *string         `json:"pickupDate,omitempty"`
	CarrierName    string          `json:"carrierName,omitempty"`
	TrackingCode   string          `json:"trackingCode,omitempty"`
	Pallet         bool            `json:"pallet"`
	DutyPaid       bool            `json:"dutyPaid"`
	DutyPaidAt     *string         `json:"dutyPaidAt,omitempty"`
	DutyPaymentRef string          `json:"dutyPaymentRef,omitempty"`
	Attachments    AttachmentSlots `json:"attachments"`
	Packages       []PackageDTO    `json:"packages,omitempty"`
	CreatedAt      string          `json:"createdAt"` // ISO 8601
	UpdatedAt      string          `json:"updatedAt"` // ISO 8601
}

type PackageDTO struct {
	ID       uuid.UUID `json:"id"`
	LengthCm float64   `json:"lengthCm"`
	WidthCm  float64   `json:"widthCm"`
	HeightCm float64   `json:"heightCm"`
	WeightKg float64   `json:"weightKg"`
	Contents string    `json:"contents,omitempty"`
}

type QuoteDTO struct {
	ID               uuid.UUID        `json:"id"`
	HumanID          string           `json:"humanId"`
	CustomerEmail    string           `json:"customerEmail"`
	Sender           PartyDTO         `json:"sender"`
	Recipient        PartyDTO         `json:"recipient"`
	Status           QuoteStatus      `json:"status"`
	AcceptedOptionID *uuid.UUID       `json:"acceptedOptionId,omitempty"`
	DeclaredValue    float64          `json:"declaredValue"`
	Currency         string           `json:"currency"`
	Notes            string           `json:"notes,omitempty"`
	Packages         []PackageDTO     `json:"packages,omitempty"`
	Options          []QuoteOptionDTO `json:"options,omitempty"`
	CreatedAt        string           `json:"createdAt"`
	UpdatedAt        string           `json:"updatedAt"`
}

type QuoteOptionDTO struct {
	ID              uuid.UUID         `json:"id"`
	QuoteID         uuid.UUID         `json:"quoteId"`
	CarrierName     string            `json:"carrierName"`
	Price           float64           `json:"price"`
	Currency        string            `json:"currency"`
	TransitDays     int               `json:"transitDays,omitempty"`
	Status          QuoteOptionStatus `json:"status"`
	VisibleToClient bool              `json:"visibleToClient"`
	Notes           string            `json:"notes,omitempty"`
}

type CarrierDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contactEmail,omitempty"`
}

type WaveDTO struct {
	ID                uuid.UUID     `json:"id"`
	Code              string        `json:"code"`
	Status            WaveStatus    `json:"status"`
	PlannedPickupDate string        `json:"plannedPickupDate"`
	PickupWindow      string        `json:"pickupWindow,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	CarrierID         uuid.UUID     `json:"carrierId"`
	CarrierName       string        `json:"carrierName,omitempty"`
	CreatedByID       string        `json:"createdById,omitempty"`
	Items             []WaveItemDTO `json:"items,omitempty"`
	PalletCount       int           `json:"palletCount"`
	CreatedAt         string        `json:"createdAt"`
	UpdatedAt         string        `json:"updatedAt"`
}

type WaveItemDTO struct {
	ID                  uuid.UUID    `json:"id"`
	ShipmentID          uuid.UUID    `json:"shipmentId"`
	Shipment            *ShipmentDTO `json:"shipment,omitempty"`
	RequestedPickupDate *string      `json:"requestedPickupDate,omitempty"`
	PlannedPickupDate   *string      `json:"plannedPickupDate,omitempty"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// PaginatedResponse wraps a list payload with paging metadata
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Request DTOs

type PartyRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Address    string `json:"address,omitempty" validate:"max=500"`
	City       string `json:"city,omitempty" validate:"max=100"`
	PostalCode string `json:"postalCode,omitempty" validate:"max=20"`
	Country    string `json:"country,omitempty" validate:"max=100"`
	Phone      string `json:"phone,omitempty" validate:"max=50"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	TaxID      string `json:"taxId,omitempty" validate:"max=50"`
}

type PackageRequest struct {
	LengthCm float64 `json:"lengthCm" validate:"required,gt=0"`
	WidthCm  float64 `json:"widthCm" validate:"required,gt=0"`
	HeightCm float64 `json:"heightCm" validate:"required,gt=0"`
	WeightKg float64 `json:"weightKg" validate:"required,gt=0"`
	Contents string  `json:"contents,omitempty" validate:"max=500"`
}

type CreateShipmentRequest struct {
	CustomerEmail string           `json:"customerEmail" validate:"required,email"`
	Sender        PartyRequest     `json:"sender" validate:"required"`
	Recipient     PartyRequest     `json:"recipient" validate:"required"`
	Billing       *PartyRequest    `json:"billing,omitempty"`
	DeclaredValue float64          `json:"declaredValue,omitempty" validate:"gte=0"`
	Currency      string           `json:"currency,omitempty" validate:"omitempty,len=3"`
	PickupDate    *time.Time       `json:"pickupDate,omitempty"`
	Pallet        bool             `json:"pallet,omitempty"`
	Packages      []PackageRequest `json:"packages,omitempty" validate:"dive"`
}

type UpdateShipmentRequest struct {
	Sender        *PartyRequest `json:"sender,omitempty"`
	Recipient     *PartyRequest `json:"recipient,omitempty"`
	Billing       *PartyRequest `json:"billing,omitempty"`
	DeclaredValue *float64      `json:"declaredValue,omitempty" validate:"omitempty,gte=0"`
	Currency      *string       `json:"currency,omitempty" validate:"omitempty,len=3"`
	PickupDate    *time.Time    `json:"pickupDate,omitempty"`
	Pallet        *bool         `json:"pallet,omitempty"`
}

type UpdateShipmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type UpdateTrackingRequest struct {
	CarrierName  string `json:"carrierName,omitempty" validate:"max=200"`
	TrackingCode string `json:"trackingCode" validate:"required,max=100"`
}

type ReplacePackagesRequest struct {
	Packages []PackageRequest `json:"packages" validate:"required,min=1,dive"`
}

type CreateQuoteRequest struct {
	CustomerEmail string           `json:"customerEmail" validate:"required,email"`
	Sender        PartyRequest     `json:"sender" validate:"required"`
	Recipient     PartyRequest     `json:"recipient" validate:"required"`
	DeclaredValue float64          `json:"declaredValue,omitempty" validate:"gte=0"`
	Currency      string           `json:"currency,omitempty" validate:"omitempty,len=3"`
	Notes         string           `json:"notes,omitempty"`
	Packages      []PackageRequest `json:"packages,omitempty" validate:"dive"`
}

type AddQuoteOptionRequest struct {
	CarrierName     string  `json:"carrierName" validate:"required,max=200"`
	Price           float64 `json:"price" validate:"required,gt=0"`
	Currency        string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	TransitDays     int     `json:"transitDays,omitempty" validate:"gte=0"`
	VisibleToClient bool    `json:"visibleToClient,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

type UpdateQuoteStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type AcceptQuoteRequest struct {
	OptionID uuid.UUID `json:"optionId" validate:"required"`
}

// AcceptQuoteResponse reports acceptance, including replays of an
// already-accepted option.
type AcceptQuoteResponse struct {
	Ok               bool      `json:"ok"`
	AcceptedOptionID uuid.UUID `json:"acceptedOptionId"`
	AlreadyAccepted  bool      `json:"alreadyAccepted,omitempty"`
}

type CreateWaveRequest struct {
	CarrierID         uuid.UUID   `json:"carrierId" validate:"required"`
	PlannedPickupDate time.Time   `json:"plannedPickupDate" validate:"required"`
	PickupWindow      string      `json:"pickupWindow,omitempty" validate:"max=50"`
	Notes             string      `json:"notes,omitempty"`
	ShipmentIDs       []uuid.UUID `json:"shipmentIds" validate:"required"`
}

type UpdateWaveRequest struct {
	PlannedPickupDate *time.Time `json:"plannedPickupDate,omitempty"`
	PickupWindow      *string    `json:"pickupWindow,omitempty" validate:"omitempty,max=50"`
	Notes             *string    `json:"notes,omitempty"`
	CarrierID         *uuid.UUID `json:"carrierId,omitempty"`
}

type UpdateWaveStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type CreateCarrierRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	ContactEmail string `json:"contactEmail,omitempty" validate:"omitempty,email"`
}

// UploadAttachmentResponse returns the slot an uploaded document landed in
type UploadAttachmentResponse struct {
	Ok         bool        `json:"ok"`
	URL        string      `json:"url"`
	Slot       int         `json:"slot"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// HealthStatus represents service health for monitoring endpoints
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}
