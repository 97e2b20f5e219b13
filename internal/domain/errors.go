package domain

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// Error type codes shared with the frontends. Clients switch on these,
// so keep them stable.
const (
	ErrorTypeValidation         = "VALIDATION_ERROR"
	ErrorTypeNotFound           = "NOT_FOUND"
	ErrorTypeUnauthenticated    = "UNAUTHENTICATED"
	ErrorTypeForbidden          = "FORBIDDEN"
	ErrorTypeDB                 = "DB_ERROR"
	ErrorTypeServer             = "SERVER_ERROR"
	ErrorTypeInvalidStatus      = "INVALID_STATUS"
	ErrorTypeMinPallets         = "MIN_6_PALLETS_REQUIRED"
	ErrorTypeShipmentIDs        = "shipment_ids_required"
	ErrorTypeMissingOptionID    = "MISSING_OPTION_ID"
	ErrorTypeOptionNotFound     = "OPTION_NOT_FOUND"
	ErrorTypeInvalidPayload     = "INVALID_PAYLOAD"
	ErrorTypeFileOrTypeMissing  = "FILE_OR_TYPE_MISSING"
	ErrorTypeServerMisconfig    = "SERVER_MISCONFIG"
	ErrorTypeUpdateFailed       = "UPDATE_FAILED"
	ErrorTypeQuoteAlreadyTaken  = "QUOTE_ALREADY_ACCEPTED"
)

// ValidationMessages provides human-readable validation error messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"email":    "Must be a valid email address",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"gte":      "Must be greater than or equal to minimum value",
	"gt":       "Must be greater than minimum value",
	"lte":      "Must be less than or equal to maximum value",
	"uuid":     "Must be a valid UUID",
	"oneof":    "Must be one of the allowed values",
	"datetime": "Must be a valid date",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}
