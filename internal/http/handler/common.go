package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spst-logistics/spst-api/internal/auth"
	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/service"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	fieldErrors := make(map[string]string)
	if ve, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range ve {
			fieldName := toJSONFieldName(fe.Field())
			fieldErrors[fieldName] = formatValidationError(fe)
		}
	}

	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fieldErrors,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "email":
		return "Must be a valid email address"
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "uuid":
		return "Must be a valid UUID"
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondError sends a standardized JSON error response with an explicit type code
func respondError(w http.ResponseWriter, status int, errorType, detail string) {
	respondJSON(w, status, domain.APIError{
		Type:   errorType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

// respondWithError sends a standardized JSON error response, deriving the
// type code from the HTTP status
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondError(w, status, getErrorType(status), message)
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeInvalidPayload
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthenticated
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	default:
		return domain.ErrorTypeServer
	}
}

// respondServiceError maps service and auth sentinel errors onto the error
// codes clients switch on. Anything unrecognized is a failed persistence or
// infrastructure call and surfaces as a 500 DB_ERROR carrying the underlying
// message for operator diagnosis.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, domain.ErrorTypeNotFound, "Resource not found")
	case errors.Is(err, auth.ErrUnauthenticated) || errors.Is(err, service.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthenticated, "Authentication required")
	case errors.Is(err, auth.ErrForbidden) || errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, domain.ErrorTypeForbidden, "Not allowed")
	case errors.Is(err, service.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, domain.ErrorTypeInvalidStatus, err.Error())
	case errors.Is(err, service.ErrMinPalletsRequired):
		respondError(w, http.StatusBadRequest, domain.ErrorTypeMinPallets,
			fmt.Sprintf("A wave requires at least %d pallet shipments", service.MinWavePallets))
	case errors.Is(err, service.ErrShipmentIDsRequired):
		respondError(w, http.StatusBadRequest, domain.ErrorTypeShipmentIDs, "shipment_ids must not be empty")
	case errors.Is(err, service.ErrShipmentNotEligible):
		respondError(w, http.StatusBadRequest, domain.ErrorTypeValidation, err.Error())
	case errors.Is(err, service.ErrQuoteAlreadyAccepted):
		respondError(w, http.StatusConflict, domain.ErrorTypeQuoteAlreadyTaken, "Quote already accepted with a different option")
	case errors.Is(err, service.ErrOptionNotFound), errors.Is(err, service.ErrOptionNotVisible):
		respondError(w, http.StatusNotFound, domain.ErrorTypeOptionNotFound, "Option not found")
	case errors.Is(err, service.ErrAttachmentSlotsFull):
		respondError(w, http.StatusConflict, domain.ErrorTypeUpdateFailed, "All attachment slots are in use")
	default:
		respondError(w, http.StatusInternalServerError, domain.ErrorTypeDB, err.Error())
	}
}

// paginated builds the standard list envelope
func paginated(data interface{}, total int64, page, pageSize int) domain.PaginatedResponse {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// pageParams parses page / pageSize query parameters with sane bounds
func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}
