package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

var (
	// ErrBadSignature is returned when the webhook payload fails verification
	ErrBadSignature = errors.New("invalid webhook signature")

	// ErrMissingShipmentRef is returned when a completed session carries no shipment reference
	ErrMissingShipmentRef = errors.New("session has no shipment reference")
)

// PaymentService processes Stripe webhook callbacks for US customs duty
// collection. Checkout creation lives outside this service; only the
// completion callback lands here.
type PaymentService struct {
	shipments     *ShipmentService
	webhookSecret string
	logger        *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(shipments *ShipmentService, webhookSecret string, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		shipments:     shipments,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// HandleWebhook verifies the payload signature and applies the event.
// Only checkout.session.completed mutates state; everything else is
// acknowledged and dropped.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	if event.Type != "checkout.session.completed" {
		s.logger.Debug("ignoring stripe event", zap.String("type", string(event.Type)))
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to decode checkout session: %w", err)
	}

	shipmentID, err := shipmentRef(&session)
	if err != nil {
		s.logger.Warn("completed checkout session without shipment reference",
			zap.String("session_id", session.ID),
		)
		return err
	}

	if err := s.shipments.MarkDutyPaid(ctx, shipmentID, session.ID); err != nil {
		return fmt.Errorf("failed to apply duty payment: %w", err)
	}

	s.logger.Info("customs duty payment applied",
		zap.String("shipment_id", shipmentID.String()),
		zap.String("session_id", session.ID),
	)
	return nil
}

// shipmentRef resolves the shipment uuid from session metadata or the
// client reference id
func shipmentRef(session *stripe.CheckoutSession) (uuid.UUID, error) {
	ref := session.ClientReferenceID
	if session.Metadata != nil {
		if v, ok := session.Metadata["shipment_id"]; ok && v != "" {
			ref = v
		}
	}
	if ref == "" {
		return uuid.Nil, ErrMissingShipmentRef
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrMissingShipmentRef, ref)
	}
	return id, nil
}
