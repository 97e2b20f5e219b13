package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/auth"
	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/repository"
	"github.com/spst-logistics/spst-api/internal/service"
)

type WaveHandler struct {
	waveService     *service.WaveService
	manifestService *service.ManifestService
	access          *auth.Access
	logger          *zap.Logger
}

func NewWaveHandler(waveService *service.WaveService, manifestService *service.ManifestService, access *auth.Access, logger *zap.Logger) *WaveHandler {
	return &WaveHandler{
		waveService:     waveService,
		manifestService: manifestService,
		access:          access,
		logger:          logger,
	}
}

// @Summary Create pallet wave
// @Description Consolidates pallet shipments into a wave for one carrier pickup.
// @Tags Waves
// @Accept json
// @Produce json
// @Param request body domain.CreateWaveRequest true "Wave data"
// @Success 201 {object} domain.WaveDTO
// @Failure 400 {object} domain.APIError "MIN_6_PALLETS_REQUIRED, shipment_ids_required"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pallets/waves [post]
func (h *WaveHandler) Create(w http.ResponseWriter, r *http.Request) {
	staff, err := h.access.RequireStaff(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var req domain.CreateWaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	wave, err := h.waveService.Create(r.Context(), staff.Email, &req)
	if err != nil {
		h.logger.Warn("wave creation rejected", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/pallets/waves/"+wave.ID.String())
	respondJSON(w, http.StatusCreated, wave)
}

// @Summary List pallet waves
// @Description Staff see every wave; carrier users only waves assigned to their carrier.
// @Tags Waves
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Filter by status"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pallets/waves [get]
func (h *WaveHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	filter := repository.WaveFilter{}
	if s := r.URL.Query().Get("status"); s != "" {
		status, ok := domain.ParseWaveStatus(s)
		if !ok {
			respondError(w, http.StatusBadRequest, domain.ErrorTypeInvalidStatus, "Unknown wave status: "+s)
			return
		}
		filter.Status = &status
	}

	_, err := h.access.RequireStaff(r.Context())
	if err != nil {
		if !errors.Is(err, auth.ErrForbidden) {
			respondServiceError(w, err)
			return
		}
		carrierID, cerr := h.access.CarrierFor(r.Context())
		if cerr != nil {
			respondServiceError(w, cerr)
			return
		}
		if carrierID == uuid.Nil {
			respondServiceError(w, auth.ErrForbidden)
			return
		}
		filter.CarrierID = &carrierID
	}

	waves, total, err := h.waveService.List(r.Context(), page, pageSize, filter)
	if err != nil {
		h.logger.Error("failed to list waves", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated(waves, total, page, pageSize))
}

// @Summary Get pallet wave
// @Tags Waves
// @Produce json
// @Param id path string true "Wave ID"
// @Success 200 {object} domain.WaveDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pallets/waves/{id} [get]
func (h *WaveHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	wave, ok := h.loadScoped(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, wave)
}

// @Summary Update pallet wave
// @Description Staff-only; allowed while the wave is still a draft.
// @Tags Waves
// @Accept json
// @Produce json
// @Param id path string true "Wave ID"
// @Param request body domain.UpdateWaveRequest true "Fields to patch"
// @Success 200 {object} domain.WaveDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pallets/waves/{id} [patch]
func (h *WaveHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid wave ID: must be a valid UUID")
		return
	}

	if _, err := h.access.RequireStaff(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	var req domain.UpdateWaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	wave, err := h.waveService.Update(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update wave", zap.Error(err), zap.String("wave_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, wave)
}

// @Summary Update wave status
// @Description Staff may set any status. A carrier user may only move their own
// @Description wave from inviata to in_corso.
// @Tags Waves
// @Accept json
// @Produce json
// @Param id path string true "Wave ID"
// @Param request body domain.UpdateWaveStatusRequest true "New status"
// @Success 200 {object} domain.WaveDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pallets/waves/{id}/status [patch]
func (h *WaveHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid wave ID: must be a valid UUID")
		return
	}

	var req domain.UpdateWaveStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	wave, err := h.waveService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	actor, err := h.access.ResolveActor(r.Context(), wave.CarrierID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := h.waveService.SetStatus(r.Context(), id, actor, req.Status); err != nil {
		h.logger.Warn("wave transition rejected",
			zap.Error(err),
			zap.String("wave_id", id.String()),
			zap.String("actor", string(actor)),
			zap.String("requested", req.Status))
		respondServiceError(w, err)
		return
	}

	updated, err := h.waveService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// @Summary Download wave manifest
// @Description Staff-only xlsx manifest listing the wave's shipments for the carrier.
// @Tags Waves
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Wave ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pallets/waves/{id}/manifest [get]
func (h *WaveHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid wave ID: must be a valid UUID")
		return
	}

	if _, err := h.access.RequireStaff(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	data, filename, err := h.manifestService.WaveManifest(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to build wave manifest", zap.Error(err), zap.String("wave_id", id.String()))
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// @Summary List pallet pool
// @Description Pallet shipments in status CREATA not yet assigned to any wave.
// @Tags Waves
// @Produce json
// @Success 200 {array} domain.ShipmentDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pallets/pool [get]
func (h *WaveHandler) Pool(w http.ResponseWriter, r *http.Request) {
	if _, err := h.access.RequireStaff(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	shipments, err := h.waveService.PalletPool(r.Context())
	if err != nil {
		h.logger.Error("failed to load pallet pool", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, shipments)
}

// loadScoped resolves the path id and enforces the staff-or-own-carrier rule.
func (h *WaveHandler) loadScoped(w http.ResponseWriter, r *http.Request) (*domain.WaveDTO, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid wave ID: must be a valid UUID")
		return nil, false
	}

	wave, err := h.waveService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}

	_, err = h.access.RequireStaff(r.Context())
	if err == nil {
		return wave, true
	}
	if !errors.Is(err, auth.ErrForbidden) {
		respondServiceError(w, err)
		return nil, false
	}

	carrierID, err := h.access.CarrierFor(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}
	if carrierID == uuid.Nil || carrierID != wave.CarrierID {
		respondError(w, http.StatusNotFound, domain.ErrorTypeNotFound, "Resource not found")
		return nil, false
	}

	return wave, true
}
