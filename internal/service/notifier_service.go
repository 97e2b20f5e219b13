package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/internal/domain"
	"github.com/spst-logistics/spst-api/internal/mail"
	"github.com/spst-logistics/spst-api/internal/repository"
)

// Notification kinds recorded in notification_log
const (
	NotificationWaveSent     = "wave_inviata"
	NotificationWavePickedUp = "wave_in_corso"
	NotificationPickupDue    = "pickup_reminder"
)

// NotifierService sends best-effort emails around wave transitions. A failed
// dispatch is logged and recorded but never propagated: the transition that
// triggered it has already committed.
type NotifierService struct {
	mailer   mail.Mailer
	userRepo *repository.UserRepository
	logRepo  *repository.NotificationLogRepository
	fallback []string
	logger   *zap.Logger
}

// NewNotifierService creates a new NotifierService
func NewNotifierService(
	mailer mail.Mailer,
	userRepo *repository.UserRepository,
	logRepo *repository.NotificationLogRepository,
	fallbackRecipients []string,
	logger *zap.Logger,
) *NotifierService {
	return &NotifierService{
		mailer:   mailer,
		userRepo: userRepo,
		logRepo:  logRepo,
		fallback: fallbackRecipients,
		logger:   logger,
	}
}

// NotifyWaveTransition dispatches the email bound to a wave transition, if
// any. Only bozza->inviata and a carrier-performed inviata->in_corso carry
// notifications. Dispatch is keyed on the transition itself, so a replayed
// transition sends again.
func (s *NotifierService) NotifyWaveTransition(ctx context.Context, wave *domain.PalletWave, from, to domain.WaveStatus, actor domain.WaveActor) {
	switch {
	case from == domain.WaveStatusBozza && to == domain.WaveStatusInviata:
		s.dispatch(ctx, wave, NotificationWaveSent,
			fmt.Sprintf("Nuova wave di ritiro %s", wave.Code),
			s.waveSentBody(wave))
	case from == domain.WaveStatusInviata && to == domain.WaveStatusInCorso && actor == domain.WaveActorCarrier:
		s.dispatch(ctx, wave, NotificationWavePickedUp,
			fmt.Sprintf("Ritiro avviato per wave %s", wave.Code),
			s.wavePickedUpBody(wave))
	}
}

// NotifyPickupDue sends the daily reminder for a wave scheduled for pickup
func (s *NotifierService) NotifyPickupDue(ctx context.Context, wave *domain.PalletWave) {
	s.dispatch(ctx, wave, NotificationPickupDue,
		fmt.Sprintf("Promemoria ritiro wave %s", wave.Code),
		s.pickupReminderBody(wave))
}

func (s *NotifierService) dispatch(ctx context.Context, wave *domain.PalletWave, kind, subject, body string) {
	recipients := s.resolveRecipients(ctx, wave)

	logEntry := &domain.NotificationLog{
		WaveID:     wave.ID,
		Kind:       kind,
		Recipients: recipients,
	}

	if len(recipients) == 0 {
		logEntry.Error = "no recipients resolved"
		s.logger.Warn("wave notification skipped, no recipients",
			zap.String("wave_code", wave.Code),
			zap.String("kind", kind),
		)
	} else if err := s.mailer.Send(recipients, subject, body); err != nil {
		logEntry.Error = err.Error()
		s.logger.Warn("wave notification failed",
			zap.String("wave_code", wave.Code),
			zap.String("kind", kind),
			zap.Error(err),
		)
	} else {
		s.logger.Info("wave notification sent",
			zap.String("wave_code", wave.Code),
			zap.String("kind", kind),
			zap.Strings("recipients", recipients),
		)
	}

	if err := s.logRepo.Create(ctx, logEntry); err != nil {
		s.logger.Error("failed to record notification log",
			zap.String("wave_code", wave.Code),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

// resolveRecipients picks addresses: enabled carrier users first, the
// carrier contact address next, the operations fallback mailbox last.
func (s *NotifierService) resolveRecipients(ctx context.Context, wave *domain.PalletWave) []string {
	userIDs, err := s.userRepo.CarrierUserIDs(ctx, wave.CarrierID)
	if err != nil {
		s.logger.Warn("failed to resolve carrier users", zap.Error(err))
	} else if len(userIDs) > 0 {
		emails, err := s.userRepo.AuthEmailsByUserIDs(ctx, userIDs)
		if err != nil {
			s.logger.Warn("failed to resolve carrier user emails", zap.Error(err))
		} else if len(emails) > 0 {
			return emails
		}
	}

	if wave.Carrier != nil && wave.Carrier.ContactEmail != "" {
		return []string{wave.Carrier.ContactEmail}
	}

	return s.fallback
}

// waveTotals aggregates shipment count and total pallet count (sum of the
// colli counters across the wave's shipments)
func waveTotals(wave *domain.PalletWave) (int, int) {
	colli := 0
	for _, item := range wave.Items {
		if item.Shipment != nil {
			colli += item.Shipment.ColliN
		}
	}
	return len(wave.Items), colli
}

func (s *NotifierService) waveSentBody(wave *domain.PalletWave) string {
	carrierName := ""
	if wave.Carrier != nil {
		carrierName = wave.Carrier.Name
	}
	shipments, colli := waveTotals(wave)
	return fmt.Sprintf(
		"<p>La wave <b>%s</b> (%d spedizioni, %d bancali) &egrave; pianificata per il ritiro il <b>%s</b>.</p>"+
			"<p>Vettore: %s<br>Fascia oraria: %s</p>",
		wave.Code, shipments, colli, wave.PlannedPickupDate.Format("02/01/2006"),
		carrierName, wave.PickupWindow,
	)
}

func (s *NotifierService) pickupReminderBody(wave *domain.PalletWave) string {
	shipments, colli := waveTotals(wave)
	return fmt.Sprintf(
		"<p>Promemoria: il ritiro della wave <b>%s</b> (%d spedizioni, %d bancali) &egrave; previsto per domani, <b>%s</b>.</p>"+
			"<p>Fascia oraria: %s</p>",
		wave.Code, shipments, colli, wave.PlannedPickupDate.Format("02/01/2006"),
		wave.PickupWindow,
	)
}

func (s *NotifierService) wavePickedUpBody(wave *domain.PalletWave) string {
	carrierName := ""
	if wave.Carrier != nil {
		carrierName = wave.Carrier.Name
	}
	shipments, colli := waveTotals(wave)
	return fmt.Sprintf(
		"<p>Il vettore %s ha avviato il ritiro della wave <b>%s</b> (%d spedizioni, %d bancali).</p>",
		carrierName, wave.Code, shipments, colli,
	)
}
