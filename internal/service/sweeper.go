package service

import (
	"context"
	"log"
	"time"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/redis"
	"github.com/jerrymcma/rideglad-sub000/internal/repository"
)

// SweeperService enforces the request timeout in the background: trips
// stuck in the requested state past the ceiling are cancelled with
// reason timeout. The read path in TripService.GetActiveTrip does the
// same check per rider, so stale trips never leak into a client even
// between ticks; the sweep keeps the table clean and fires the rider
// notifications for trips nobody is polling.
type SweeperService struct {
	tripRepo       repository.TripRepository
	lockStore      redis.LockStoreInterface
	notifier       MatchingNotifier
	requestTimeout time.Duration
	interval       time.Duration
}

// NewSweeperService creates a new SweeperService. The lock store is
// optional; with one, only a single instance sweeps per tick.
func NewSweeperService(
	tripRepo repository.TripRepository,
	lockStore redis.LockStoreInterface,
	notifier MatchingNotifier,
	requestTimeout, interval time.Duration,
) *SweeperService {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweeperService{
		tripRepo:       tripRepo,
		lockStore:      lockStore,
		notifier:       notifier,
		requestTimeout: requestTimeout,
		interval:       interval,
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *SweeperService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				log.Printf("sweep: %v", err)
			} else if n > 0 {
				log.Printf("sweep: cancelled %d timed-out trips", n)
			}
		}
	}
}

// SweepOnce cancels every trip that has been requested for longer than
// the timeout, and notifies the affected riders. Idempotent against
// concurrent rider cancels: the conditional update only touches trips
// still in the requested state.
func (s *SweeperService) SweepOnce(ctx context.Context) (int, error) {
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireSweepLock(ctx, s.interval)
		if err != nil {
			// Redis being down must not stop the sweep; a duplicate
			// sweep is harmless because the cancel is conditional.
			log.Printf("sweep: lock unavailable, proceeding: %v", err)
		} else if !locked {
			return 0, nil
		} else {
			defer func() { _ = s.lockStore.ReleaseSweepLock(ctx) }()
		}
	}

	cutoff := time.Now().Add(-s.requestTimeout)
	cancelled, err := s.tripRepo.CancelStaleRequested(ctx, cutoff, domain.CancelReasonTimeout)
	if err != nil {
		return 0, err
	}

	if s.notifier != nil {
		for _, trip := range cancelled {
			s.notifier.NotifyCancelled(ctx, trip.RiderID, trip.ID, domain.CancelReasonTimeout)
		}
	}

	return len(cancelled), nil
}
