package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PickupReminderJobName is the name of the daily pickup reminder job
const PickupReminderJobName = "pickup_reminder"

// PickupReminder defines the interface for sending wave pickup reminders.
type PickupReminder interface {
	// RemindUpcomingPickups notifies carriers about waves scheduled for
	// pickup tomorrow. Returns the number of waves reminded.
	RemindUpcomingPickups(ctx context.Context, now time.Time) (int, error)
}

// PickupReminderJob sends a daily reminder for waves picked up the next day.
type PickupReminderJob struct {
	reminder PickupReminder
	logger   *zap.Logger
	timeout  time.Duration
}

// NewPickupReminderJob creates a new pickup reminder job.
func NewPickupReminderJob(reminder PickupReminder, logger *zap.Logger, timeout time.Duration) *PickupReminderJob {
	return &PickupReminderJob{
		reminder: reminder,
		logger:   logger,
		timeout:  timeout,
	}
}

// Run executes one reminder pass. Called by the scheduler.
func (j *PickupReminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()

	reminded, err := j.reminder.RemindUpcomingPickups(ctx, time.Now())
	if err != nil {
		j.logger.Error("pickup reminder job failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("pickup reminder job completed",
		zap.Int("waves_reminded", reminded),
		zap.Duration("duration", time.Since(start)))
}

// RegisterPickupReminderJob registers the pickup reminder job with the scheduler.
func RegisterPickupReminderJob(scheduler *Scheduler, reminder PickupReminder, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewPickupReminderJob(reminder, logger, timeout)
	return scheduler.AddJob(PickupReminderJobName, cronExpr, job.Run)
}
