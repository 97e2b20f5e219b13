package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/auth"
	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/service"
)

type CarrierHandler struct {
	carrierService *service.CarrierService
	access         *auth.Access
	logger         *zap.Logger
}

func NewCarrierHandler(carrierService *service.CarrierService, access *auth.Access, logger *zap.Logger) *CarrierHandler {
	return &CarrierHandler{
		carrierService: carrierService,
		access:         access,
		logger:         logger,
	}
}

// @Summary Create carrier
// @Tags Carriers
// @Accept json
// @Produce json
// @Param request body domain.CreateCarrierRequest true "Carrier data"
// @Success 201 {object} domain.CarrierDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /carriers [post]
func (h *CarrierHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, err := h.access.RequireAdmin(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	var req domain.CreateCarrierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	carrier, err := h.carrierService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create carrier", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, carrier)
}

// @Summary List carriers
// @Tags Carriers
// @Produce json
// @Success 200 {array} domain.CarrierDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /carriers [get]
func (h *CarrierHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, err := h.access.RequireStaff(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	carriers, err := h.carrierService.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list carriers", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, carriers)
}

// @Summary Get carrier
// @Tags Carriers
// @Produce json
// @Param id path string true "Carrier ID"
// @Success 200 {object} domain.CarrierDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /carriers/{id} [get]
func (h *CarrierHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid carrier ID: must be a valid UUID")
		return
	}

	if _, err := h.access.RequireStaff(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	carrier, err := h.carrierService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, carrier)
}
