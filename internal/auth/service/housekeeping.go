package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/cache"
	"github.com/aussiebroadwan/patchnotes/internal/auth/store"
)

// DefaultQRRetention is how long finished QR sessions are kept.
const DefaultQRRetention = 24 * time.Hour

// HousekeepingService periodically deletes QR sessions past retention and
// purges expired cache entries for caches that do not expire on their own.
type HousekeepingService struct {
	Store     store.Store
	Cache     cache.Cache
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration
	Now       func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults interval to 1h and retention to 24h.
func NewHousekeepingService(st store.Store, c cache.Cache, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = DefaultQRRetention
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Store:     st,
		Cache:     c,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		Now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs a cleanup immediately and then every Interval. Non-blocking.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "qr_retention", s.Retention)
}

// Stop blocks until an in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs one pass. Each step is independent.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	cutoff := s.Now().Add(-s.Retention)

	if n, err := s.Store.QRSessions().DeleteQRSessionsExpiredBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete old qr sessions", "error", err)
	} else if n > 0 {
		s.Logger.Info("deleted old qr sessions", "count", n, "cutoff", cutoff)
	}

	if p, ok := s.Cache.(cache.Purger); ok {
		if n, err := p.PurgeExpired(ctx); err != nil {
			s.Logger.Error("failed to purge expired cache entries", "error", err)
		} else if n > 0 {
			s.Logger.Debug("purged expired cache entries", "count", n)
		}
	}
}
