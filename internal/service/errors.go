package service

import "errors"

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthenticated is returned when no principal is attached to the request
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden is returned when the principal lacks the required capability
	ErrForbidden = errors.New("permission denied")

	// ErrInvalidStatus is returned when a requested status is outside the enum
	// or the transition is not allowed for the acting principal
	ErrInvalidStatus = errors.New("invalid status")

	// ErrMinPalletsRequired is returned when a wave is created with fewer
	// shipments than the minimum
	ErrMinPalletsRequired = errors.New("at least 6 pallet shipments are required")

	// ErrShipmentIDsRequired is returned when a wave request carries no shipments
	ErrShipmentIDsRequired = errors.New("shipment ids are required")

	// ErrShipmentNotEligible is returned when a shipment cannot join a wave
	ErrShipmentNotEligible = errors.New("shipment not eligible for wave")

	// ErrQuoteAlreadyAccepted is returned when a different option was already accepted
	ErrQuoteAlreadyAccepted = errors.New("quote already accepted")

	// ErrOptionNotFound is returned when an option does not belong to the quote
	ErrOptionNotFound = errors.New("quote option not found")

	// ErrOptionNotVisible is returned when a client accepts a hidden option
	ErrOptionNotVisible = errors.New("quote option not visible to client")

	// ErrAttachmentSlotsFull is returned when all document slots are taken
	ErrAttachmentSlotsFull = errors.New("all attachment slots are in use")
)

// MinWavePallets is the smallest number of pallet shipments a wave may hold
const MinWavePallets = 6
