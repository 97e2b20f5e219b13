package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/auth"
	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/repository"
	"github.com/spst-logistics/spst-api/internal/service"
)

type QuoteHandler struct {
	quoteService *service.QuoteService
	access       *auth.Access
	logger       *zap.Logger
}

func NewQuoteHandler(quoteService *service.QuoteService, access *auth.Access, logger *zap.Logger) *QuoteHandler {
	return &QuoteHandler{
		quoteService: quoteService,
		access:       access,
		logger:       logger,
	}
}

func (h *QuoteHandler) isStaff(r *http.Request) (bool, error) {
	_, err := h.access.RequireStaff(r.Context())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, auth.ErrForbidden) {
		return false, nil
	}
	return false, err
}

// @Summary Create quote request
// @Tags Quotes
// @Accept json
// @Produce json
// @Param request body domain.CreateQuoteRequest true "Quote data"
// @Success 201 {object} domain.QuoteDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotazioni [post]
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateQuoteRequest
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

	quote, err := h.quoteService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create quote", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/quotazioni/"+quote.ID.String())
	respondJSON(w, http.StatusCreated, quote)
}

// @Summary List quotes
// @Description Staff see every quote; customers only their own, with hidden options stripped.
// @Tags Quotes
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Filter by status"
// @Param search query string false "Search id or customer"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotazioni [get]
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	filter := repository.QuoteFilter{
		Search: r.URL.Query().Get("search"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.QuoteStatus(strings.ToUpper(strings.TrimSpace(s)))
		if !status.IsValid() {
			respondError(w, http.StatusBadRequest, domain.ErrorTypeInvalidStatus, "Unknown quote status: "+s)
			return
		}
		filter.Status = &status
	}

	staff, err := h.isStaff(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	clientView := !staff
	if clientView {
		userCtx, ok := auth.FromContext(r.Context())
		if !ok {
			respondServiceError(w, auth.ErrUnauthenticated)
			return
		}
		filter.CustomerEmail = userCtx.Email
	}

	quotes, total, err := h.quoteService.List(r.Context(), page, pageSize, filter, clientView)
	if err != nil {
		h.logger.Error("failed to list quotes", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated(quotes, total, page, pageSize))
}

// @Summary Get quote
// @Description Staff get the full quote; the owning customer gets visible options only.
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.QuoteDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotazioni/{id} [get]
func (h *QuoteHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	staff, err := h.isStaff(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var quote *domain.QuoteDTO
	if staff {
		quote, err = h.quoteService.GetByID(r.Context(), id)
	} else {
		userCtx, ok := auth.FromContext(r.Context())
		if !ok {
			respondServiceError(w, auth.ErrUnauthenticated)
			return
		}
		quote, err = h.quoteService.GetForCustomer(r.Context(), id, userCtx.Email)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// @Summary Accept quote option
// @Description Accepts one option, rejects its siblings and closes the quote. Idempotent
// @Description when re-accepting the already accepted option.
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.AcceptQuoteRequest true "Option to accept"
// @Success 200 {object} domain.AcceptQuoteResponse
// @Failure 400 {object} domain.APIError "MISSING_OPTION_ID"
// @Failure 409 {object} domain.APIError "QUOTE_ALREADY_ACCEPTED"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotazioni/{id}/accept [post]
func (h *QuoteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	var req domain.AcceptQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if req.OptionID == uuid.Nil {
		respondError(w, http.StatusBadRequest, domain.ErrorTypeMissingOptionID, "optionId is required")
		return
	}

	staff, err := h.isStaff(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	clientView := !staff
	if clientView {
		userCtx, ok := auth.FromContext(r.Context())
		if !ok {
			respondServiceError(w, auth.ErrUnauthenticated)
			return
		}
		// Ownership gate before touching the quote.
		if _, err := h.quoteService.GetForCustomer(r.Context(), id, userCtx.Email); err != nil {
			respondServiceError(w, err)
			return
		}
	}

	result, err := h.quoteService.Accept(r.Context(), id, req.OptionID, clientView)
	if err != nil {
		h.logger.Warn("quote accept rejected", zap.Error(err), zap.String("quote_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Add quote option
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.AddQuoteOptionRequest true "Option data"
// @Success 201 {object} domain.QuoteOptionDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotazioni/{id}/options [post]
func (h *QuoteHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	if _, err := h.access.RequireStaff(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	var req domain.AddQuoteOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	option, err := h.quoteService.AddOption(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to add quote option", zap.Error(err), zap.String("quote_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, option)
}

// @Summary Update quote status
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.UpdateQuoteStatusRequest true "New status"
// @Success 200 {object} domain.QuoteDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotazioni/{id}/status [patch]
func (h *QuoteHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	if _, err := h.access.RequireStaff(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	var req domain.UpdateQuoteStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	quote, err := h.quoteService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("failed to update quote status", zap.Error(err), zap.String("quote_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// @Summary Delete quote
// @Description Removes a draft or sent quote. Accepted quotes cannot be deleted.
// @Tags Quotes
// @Param id path string true "Quote ID"
// @Success 204
// @Failure 409 {object} domain.APIError "QUOTE_ALREADY_ACCEPTED"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotazioni/{id} [delete]
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}

	if _, err := h.access.RequireStaff(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	if err := h.quoteService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Remove quote option
// @Tags Quotes
// @Param id path string true "Quote ID"
// @Param optionId path string true "Option ID"
// @Success 204
// @Failure 409 {object} domain.APIError "QUOTE_ALREADY_ACCEPTED"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotazioni/{id}/options/{optionId} [delete]
func (h *QuoteHandler) RemoveOption(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID: must be a valid UUID")
		return
	}
	optionID, err := uuid.Parse(chi.URLParam(r, "optionId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid option ID: must be a valid UUID")
		return
	}

	if _, err := h.access.RequireStaff(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	if err := h.quoteService.RemoveOption(r.Context(), id, optionID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Get quote by public token
// @Description Public share link; hidden options are stripped, no auth required.
// @Tags Quotes
// @Produce json
// @Param token path string true "Public share token"
// @Success 200 {object} domain.QuoteDTO
// @Router /public/quotazioni/{token} [get]
func (h *QuoteHandler) GetByPublicToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "Missing share token")
		return
	}

	quote, err := h.quoteService.GetByPublicToken(r.Context(), token)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// @Summary Accept quote option via public token
// @Tags Quotes
// @Accept json
// @Produce json
// @Param token path string true "Public share token"
// @Param request body domain.AcceptQuoteRequest true "Option to accept"
// @Success 200 {object} domain.AcceptQuoteResponse
// @Failure 400 {object} domain.APIError "MISSING_OPTION_ID"
// @Failure 409 {object} domain.APIError "QUOTE_ALREADY_ACCEPTED"
// @Router /public/quotazioni/{token}/accept [post]
func (h *QuoteHandler) AcceptByPublicToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "Missing share token")
		return
	}

	var req domain.AcceptQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}
	if req.OptionID == uuid.Nil {
		respondError(w, http.StatusBadRequest, domain.ErrorTypeMissingOptionID, "optionId is required")
		return
	}

	result, err := h.quoteService.AcceptByPublicToken(r.Context(), token, req.OptionID)
	if err != nil {
		h.logger.Warn("public quote accept rejected", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
