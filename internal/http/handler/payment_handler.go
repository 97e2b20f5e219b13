package handler

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/service"
)

// maxWebhookBody caps Stripe webhook payloads (64 KB is the Stripe-documented bound)
const maxWebhookBody = 65536

type PaymentHandler struct {
	paymentService *service.PaymentService
	logger         *zap.Logger
}

func NewPaymentHandler(paymentService *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// @Summary Stripe webhook
// @Description Receives checkout.session.completed events and marks the referenced
// @Description shipment's customs duty as paid. Authenticated by signature only.
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 400 {object} domain.APIError
// @Router /stripe/webhook [post]
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	err = h.paymentService.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadSignature):
			respondError(w, http.StatusBadRequest, domain.ErrorTypeInvalidPayload, "Webhook signature verification failed")
		case errors.Is(err, service.ErrMissingShipmentRef):
			// Acknowledge so Stripe stops retrying an event we can never use.
			h.logger.Warn("webhook event without shipment reference")
			respondJSON(w, http.StatusOK, map[string]bool{"received": true})
		case errors.Is(err, service.ErrNotFound):
			h.logger.Warn("webhook references unknown shipment", zap.Error(err))
			respondJSON(w, http.StatusOK, map[string]bool{"received": true})
		default:
			h.logger.Error("webhook processing failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, domain.ErrorTypeServer, "Webhook processing failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
