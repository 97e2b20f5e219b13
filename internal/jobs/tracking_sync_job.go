package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TrackingSyncJobName is the name of the tracking feed sync job
const TrackingSyncJobName = "tracking_sync"

// DefaultSyncLookback is how far back the job asks the feed for scan events.
// It is a few runs wide so a missed run never loses events.
const DefaultSyncLookback = 2 * time.Hour

// ShipmentTrackingSyncer defines the interface for reconciling shipment
// statuses with the carrier tracking feed. It allows the job to call the
// service without importing the service package directly.
type ShipmentTrackingSyncer interface {
	// SyncActiveShipments applies recent scan events to in-flight shipments.
	// Returns counts for successfully updated and failed shipments.
	SyncActiveShipments(ctx context.Context, lookback time.Duration) (synced int, failed int, err error)
}

// TrackingSyncJob pulls carrier scan events and advances shipment statuses.
type TrackingSyncJob struct {
	syncer   ShipmentTrackingSyncer
	logger   *zap.Logger
	timeout  time.Duration
	lookback time.Duration
}

// NewTrackingSyncJob creates a new tracking feed sync job.
// The timeout controls how long one sync run is allowed to take.
func NewTrackingSyncJob(syncer ShipmentTrackingSyncer, logger *zap.Logger, timeout time.Duration) *TrackingSyncJob {
	return &TrackingSyncJob{
		syncer:   syncer,
		logger:   logger,
		timeout:  timeout,
		lookback: DefaultSyncLookback,
	}
}

// Run executes one sync pass. Called by the scheduler.
func (j *TrackingSyncJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()

	synced, failed, err := j.syncer.SyncActiveShipments(ctx, j.lookback)
	if err != nil {
		j.logger.Error("tracking feed sync failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("tracking feed sync completed",
		zap.Int("shipments_synced", synced),
		zap.Int("shipments_failed", failed),
		zap.Duration("duration", time.Since(start)))
}

// RegisterTrackingSyncJob registers the tracking feed sync job with the scheduler.
func RegisterTrackingSyncJob(scheduler *Scheduler, syncer ShipmentTrackingSyncer, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewTrackingSyncJob(syncer, logger, timeout)
	return scheduler.AddJob(TrackingSyncJobName, cronExpr, job.Run)
}
