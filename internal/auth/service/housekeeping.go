package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/laqq/authd/internal/auth/store"
)

// Default retention for enrollments that were started but never confirmed.
const defaultEnrollmentTTL = 24 * time.Hour

// HousekeepingService periodically prunes abandoned TOTP enrollments so the
// totp_devices table doesn't accumulate unconfirmed rows forever.
type HousekeepingService struct {
	Store         store.Store
	Logger        *slog.Logger
	Interval      time.Duration
	EnrollmentTTL time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:         store,
		Logger:        logger,
		Interval:      interval,
		EnrollmentTTL: defaultEnrollmentTTL,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

// run is the main background worker loop.
func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual deletion of stale records.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-s.EnrollmentTTL)

	deleted, err := s.Store.TOTPDevices().DeleteUnconfirmedBefore(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to prune stale totp enrollments", "error", err)
		return
	}
	if deleted > 0 {
		s.Logger.Info("pruned stale totp enrollments", "deleted", deleted)
	}
}
