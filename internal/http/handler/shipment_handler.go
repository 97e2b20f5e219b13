package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/auth"
	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/repository"
	"github.com/spst-logistics/spst-api/internal/service"
	"github.com/spst-logistics/spst-api/internal/storage"
)

// maxUploadSize caps multipart document uploads (20 MB)
const maxUploadSize = 20 << 20

type ShipmentHandler struct {
	shipmentService *service.ShipmentService
	access          *auth.Access
	storage         storage.Storage
	logger          *zap.Logger
}

func NewShipmentHandler(shipmentService *service.ShipmentService, access *auth.Access, store storage.Storage, logger *zap.Logger) *ShipmentHandler {
	return &ShipmentHandler{
		shipmentService: shipmentService,
		access:          access,
		storage:         store,
		logger:          logger,
	}
}

// isStaff reports whether the caller has staff capability. Lookup errors
// other than plain denial are surfaced.
func (h *ShipmentHandler) isStaff(r *http.Request) (bool, error) {
	_, err := h.access.RequireStaff(r.Context())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, auth.ErrForbidden) {
		return false, nil
	}
	return false, err
}

// @Summary Create shipment
// @Tags Shipments
// @Accept json
// @Produce json
// @Param request body domain.CreateShipmentRequest true "Shipment data"
// @Success 201 {object} domain.ShipmentDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /spedizioni [post]
func (h *ShipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	staff, err := h.isStaff(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !staff {
		// Customers can only create shipments for themselves.
		userCtx, ok := auth.FromContext(r.Context())
		if !ok {
			respondServiceError(w, auth.ErrUnauthenticated)
			return
		}
		req.CustomerEmail = userCtx.Email
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	shipment, err := h.shipmentService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create shipment", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/spedizioni/"+shipment.ID.String())
	respondJSON(w, http.StatusCreated, shipment)
}

// @Summary List shipments
// @Description Staff see every shipment; customers only their own.
// @Tags Shipments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Filter by status"
// @Param pallet query bool false "Only pallet shipments"
// @Param search query string false "Search id, recipient or tracking code"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /spedizioni [get]
func (h *ShipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	filter := repository.ShipmentFilter{
		Search: r.URL.Query().Get("search"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.ShipmentStatus(strings.ToUpper(strings.TrimSpace(s)))
		if !status.IsValid() {
			respondError(w, http.StatusBadRequest, domain.ErrorTypeInvalidStatus, "Unknown shipment status: "+s)
			return
		}
		filter.Status = &status
	}
	if p := r.URL.Query().Get("pallet"); p != "" {
		pallet, _ := strconv.ParseBool(p)
		filter.Pallet = &pallet
	}

	staff, err := h.isStaff(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !staff {
		userCtx, ok := auth.FromContext(r.Context())
		if !ok {
			respondServiceError(w, auth.ErrUnauthenticated)
			return
		}
		filter.CustomerEmail = userCtx.Email
	}

	shipments, total, err := h.shipmentService.List(r.Context(), page, pageSize, filter)
	if err != nil {
		h.logger.Error("failed to list shipments", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated(shipments, total, page, pageSize))
}

// @Summary Get shipment
// @Tags Shipments
// @Produce json
// @Param id path string true "Shipment ID"
// @Success 200 {object} domain.ShipmentDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /spedizioni/{id} [get]
func (h *ShipmentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	shipment, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, shipment)
}

// @Summary Update shipment
// @Tags Shipments
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param request body domain.UpdateShipmentRequest true "Fields to patch"
// @Success 200 {object} domain.ShipmentDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /spedizioni/{id} [patch]
func (h *ShipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid shipment ID: must be a valid UUID")
		return
	}

	if _, err := h.access.RequireStaff(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	var req domain.UpdateShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	shipment, err := h.shipmentService.Update(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update shipment", zap.Error(err), zap.String("shipment_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, shipment)
}

// @Summary Update shipment status
// @Tags Shipments
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param request body domain.UpdateShipmentStatusRequest true "New status"
// @Success 200 {object} domain.ShipmentDTO
// @Failure 400 {object} domain.APIError "INVALID_STATUS"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /spedizioni/{id}/status [patch]
func (h *ShipmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid shipment ID: must be a valid UUID")
		return
	}

	if _, err := h.access.RequireStaff(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	var req domain.UpdateShipmentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	shipment, err := h.shipmentService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("failed to update shipment status", zap.Error(err), zap.String("shipment_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, shipment)
}

// @Summary Update tracking info
// @Tags Shipments
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param request body domain.UpdateTrackingRequest true "Carrier and tracking code"
// @Success 200 {object} domain.ShipmentDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /spedizioni/{id}/tracking [patch]
func (h *ShipmentHandler) UpdateTracking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid shipment ID: must be a valid UUID")
		return
	}

	if _, err := h.access.RequireStaff(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	var req domain.UpdateTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	shipment, err := h.shipmentService.UpdateTracking(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update tracking", zap.Error(err), zap.String("shipment_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, shipment)
}

// @Summary Replace shipment packages
// @Description Replaces the whole package list and rederives colli count and real weight.
// @Tags Shipments
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param request body domain.ReplacePackagesRequest true "New package list"
// @Success 200 {object} domain.ShipmentDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /spedizioni/{id}/packages [put]
func (h *ShipmentHandler) ReplacePackages(w http.ResponseWriter, r *http.Request) {
	shipment, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var req domain.ReplacePackagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	updated, err := h.shipmentService.ReplacePackages(r.Context(), shipment.ID, &req)
	if err != nil {
		h.logger.Error("failed to replace packages", zap.Error(err), zap.String("shipment_id", shipment.ID.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// @Summary Upload shipment document
// @Description Stores a document and fills the first free attachment slot.
// @Tags Shipments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Shipment ID"
// @Param file formData file true "Document file"
// @Param type formData string true "Document type, e.g. fattura"
// @Success 200 {object} domain.UploadAttachmentResponse
// @Failure 400 {object} domain.APIError "FILE_OR_TYPE_MISSING"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /spedizioni/{id}/upload [post]
func (h *ShipmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	shipment, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrorTypeFileOrTypeMissing, "Multipart form with file and type is required")
		return
	}

	docType := strings.TrimSpace(r.FormValue("type"))
	file, header, err := r.FormFile("file")
	if err != nil || docType == "" {
		respondError(w, http.StatusBadRequest, domain.ErrorTypeFileOrTypeMissing, "Both file and type fields are required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	storedName := docType + filepath.Ext(header.Filename)
	storagePath, size, err := h.storage.Upload(r.Context(), storedName, contentType, file)
	if err != nil {
		h.logger.Error("failed to store document",
			zap.Error(err),
			zap.String("shipment_id", shipment.ID.String()),
			zap.String("type", docType))
		respondError(w, http.StatusInternalServerError, domain.ErrorTypeServer, "Failed to store document")
		return
	}

	att := &domain.Attachment{
		URL:      h.storage.PublicURL(storagePath),
		FileName: header.Filename,
	}

	slot, err := h.shipmentService.AttachDocument(r.Context(), shipment.ID, -1, att)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.logger.Info("document attached",
		zap.String("shipment_id", shipment.ID.String()),
		zap.String("type", docType),
		zap.Int("slot", slot),
		zap.Int64("size", size))

	respondJSON(w, http.StatusOK, domain.UploadAttachmentResponse{
		Ok:         true,
		URL:        att.URL,
		Slot:       slot,
		Attachment: att,
	})
}

// loadOwned resolves the path id and enforces the owner-or-staff rule.
// On failure it writes the response and returns ok=false.
func (h *ShipmentHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*domain.ShipmentDTO, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid shipment ID: must be a valid UUID")
		return nil, false
	}

	shipment, err := h.shipmentService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}

	staff, err := h.isStaff(r)
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}
	if staff {
		return shipment, true
	}

	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondServiceError(w, auth.ErrUnauthenticated)
		return nil, false
	}
	if !strings.EqualFold(strings.TrimSpace(userCtx.Email), strings.TrimSpace(shipment.CustomerEmail)) {
		// Hide existence from non-owners.
		respondError(w, http.StatusNotFound, domain.ErrorTypeNotFound, "Resource not found")
		return nil, false
	}

	return shipment, true
}
