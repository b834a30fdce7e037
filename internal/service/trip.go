package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/repository"
	"github.com/jerrymcma/rideglad-sub000/internal/repository/postgres"
)

// DefaultRequestTimeout is how long a trip may sit in the requested
// state before the sweep cancels it.
const DefaultRequestTimeout = 10 * time.Minute

// TripService owns the trip lifecycle state machine:
//
//	requested -> matched -> pickup -> in_progress -> completed
//
// with cancelled reachable from requested, matched and pickup. Every
// transition is a conditional write in the repository; this service
// adds input validation, pricing, promo redemption and notifications.
type TripService struct {
	db             *sql.DB
	tripRepo       repository.TripRepository
	driverRepo     repository.DriverRepository
	promoRepo      repository.PromoRepository
	pricing        *PricingService
	notifier       MatchingNotifier
	requestTimeout time.Duration
}

// NewTripService creates a new TripService. db may be nil in tests; the
// promo redemption then runs against the injected repositories without
// a wrapping transaction.
func NewTripService(
	db *sql.DB,
	tripRepo repository.TripRepository,
	driverRepo repository.DriverRepository,
	promoRepo repository.PromoRepository,
	pricing *PricingService,
	notifier MatchingNotifier,
	requestTimeout time.Duration,
) *TripService {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &TripService{
		db:             db,
		tripRepo:       tripRepo,
		driverRepo:     driverRepo,
		promoRepo:      promoRepo,
		pricing:        pricing,
		notifier:       notifier,
		requestTimeout: requestTimeout,
	}
}

// CreateTripRequest contains the parameters for requesting a trip.
type CreateTripRequest struct {
	RiderID            string
	PickupAddress      string
	PickupLat          float64
	PickupLng          float64
	DestinationAddress string
	DestinationLat     float64
	DestinationLng     float64
	PlanName           string
	DistanceKm         float64
	DurationMin        float64 // optional; 0 derives an estimate
	PromoCode          string  // optional
}

// CreateTripResponse contains the created trip and its quote.
type CreateTripResponse struct {
	Trip  *domain.Trip
	Quote *domain.Quote
}

// Create requests a new trip for a rider. Exactly one non-terminal trip
// per rider: the request is rejected with ErrRiderHasActiveTrip if one
// exists. The estimated price is computed up front; a valid promo code
// is redeemed atomically with the trip insert.
func (s *TripService) Create(ctx context.Context, req CreateTripRequest) (*CreateTripResponse, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	// Sweep-then-check: a stale requested trip must not block a new one.
	active, err := s.GetActiveTrip(ctx, req.RiderID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrRiderHasActiveTrip
	}

	quote, err := s.pricing.Calculate(ctx, CalculateRequest{
		DistanceKm:  req.DistanceKm,
		DurationMin: req.DurationMin,
		PlanName:    req.PlanName,
		PromoCode:   req.PromoCode,
		UserID:      req.RiderID,
	})
	if err != nil {
		return nil, err
	}

	trip := &domain.Trip{
		ID:                 uuid.New().String(),
		RiderID:            req.RiderID,
		PickupAddress:      req.PickupAddress,
		PickupLat:          req.PickupLat,
		PickupLng:          req.PickupLng,
		DestinationAddress: req.DestinationAddress,
		DestinationLat:     req.DestinationLat,
		DestinationLng:     req.DestinationLng,
		PlanName:           req.PlanName,
		EstimatedPrice:     quote.EstimatedPrice,
		DistanceKm:         req.DistanceKm,
		DurationMin:        quote.EstimatedDuration,
		Status:             domain.TripStatusRequested,
		RequestedAt:        time.Now(),
	}
	if quote.PromoApplied {
		trip.PromoCode = NormalizePromoCode(req.PromoCode)
	}

	if err := s.insertWithPromo(ctx, trip, quote); err != nil {
		return nil, err
	}

	// Best effort: a lost notification does not roll back the trip.
	if s.notifier != nil {
		s.notifier.NotifyNewTrip(ctx, trip)
	}

	return &CreateTripResponse{Trip: trip, Quote: quote}, nil
}

// insertWithPromo inserts the trip, redeeming the promo code in the
// same transaction so the usage counter can never over-redeem.
func (s *TripService) insertWithPromo(ctx context.Context, trip *domain.Trip, quote *domain.Quote) error {
	insert := func(tripRepo repository.TripRepository, promoRepo repository.PromoRepository) error {
		if trip.PromoCode != "" {
			ok, err := promoRepo.IncrementUsage(ctx, trip.PromoCode)
			if err != nil {
				return err
			}
			if !ok {
				return ErrPromoExhausted
			}
			if err := promoRepo.RecordUse(ctx, trip.PromoCode, trip.RiderID, trip.ID, quote.Breakdown.Discount); err != nil {
				return err
			}
		}
		if err := tripRepo.Create(ctx, trip); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrRiderHasActiveTrip
			}
			return err
		}
		return nil
	}

	if s.db == nil {
		return insert(s.tripRepo, s.promoRepo)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := insert(postgres.NewTripRepositoryWithTx(tx), postgres.NewPromoRepositoryWithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// MatchRequest contains the parameters for a driver accepting a trip.
type MatchRequest struct {
	TripID    string
	DriverID  string
	VehicleID string
}

// Match assigns a driver and vehicle to a requested trip. The write is
// a single conditional update: when two drivers race to accept, exactly
// one succeeds and the other gets ErrAlreadyMatched.
func (s *TripService) Match(ctx context.Context, req MatchRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if req.VehicleID == "" {
		return nil, ErrInvalidVehicleID
	}

	ok, err := s.tripRepo.Match(ctx, req.TripID, req.DriverID, req.VehicleID, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.classifyMatchFailure(ctx, req.TripID)
	}

	if s.driverRepo != nil {
		_ = s.driverRepo.UpdateStatus(ctx, req.DriverID, domain.DriverStatusOnTrip)
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyMatched(ctx, trip.RiderID, trip.ID, req.DriverID)
	}

	return trip, nil
}

// classifyMatchFailure decides what a zero-rows match means: a missing
// trip, a concurrent accept that won, or a state the transition cannot
// depart from.
func (s *TripService) classifyMatchFailure(ctx context.Context, tripID string) error {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	switch trip.Status {
	case domain.TripStatusMatched, domain.TripStatusPickup,
		domain.TripStatusInProgress, domain.TripStatusCompleted:
		return ErrAlreadyMatched
	default:
		return ErrInvalidTransition
	}
}

// BeginPickupWait moves a matched trip into the pickup state (driver
// has arrived, waiting for the rider).
func (s *TripService) BeginPickupWait(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	ok, err := s.tripRepo.MarkPickup(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.classifyTransitionFailure(ctx, tripID)
	}
	return s.tripRepo.GetByID(ctx, tripID)
}

// StartTrip moves a pickup trip into in_progress and stamps startedAt.
func (s *TripService) StartTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	ok, err := s.tripRepo.MarkInProgress(ctx, tripID, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.classifyTransitionFailure(ctx, tripID)
	}
	return s.tripRepo.GetByID(ctx, tripID)
}

// Complete finishes an in_progress trip. finalPrice <= 0 defaults to
// the trip's estimated price, exactly.
func (s *TripService) Complete(ctx context.Context, tripID string, finalPrice float64) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if finalPrice <= 0 {
		finalPrice = trip.EstimatedPrice
	}

	ok, err := s.tripRepo.MarkCompleted(ctx, tripID, finalPrice, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.classifyTransitionFailure(ctx, tripID)
	}

	if s.driverRepo != nil && trip.DriverID != "" {
		_ = s.driverRepo.UpdateStatus(ctx, trip.DriverID, domain.DriverStatusOnline)
	}

	return s.tripRepo.GetByID(ctx, tripID)
}

// classifyTransitionFailure maps a zero-rows progression update to the
// right caller-facing error.
func (s *TripService) classifyTransitionFailure(ctx context.Context, tripID string) error {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	return ErrInvalidTransition
}

// CancelRequest contains the parameters for cancelling a trip.
type CancelRequest struct {
	TripID  string
	ActorID string
	Reason  domain.CancelReason
}

// Cancel moves a requested, matched or pickup trip to cancelled. A trip
// already in a terminal state yields ErrAlreadyTerminal: the concurrent
// sweep or rider cancel that got there first achieved the same end
// state, so callers treat it as settled.
func (s *TripService) Cancel(ctx context.Context, req CancelRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	switch req.Reason {
	case domain.CancelReasonUserRequested, domain.CancelReasonDriverOffline, domain.CancelReasonTimeout:
	case "":
		req.Reason = domain.CancelReasonUserRequested
	default:
		return nil, ErrInvalidCancelReason
	}

	ok, err := s.tripRepo.Cancel(ctx, req.TripID, req.Reason, time.Now())
	if err != nil {
		return nil, err
	}
	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if trip.Status.IsTerminal() {
			return nil, ErrAlreadyTerminal
		}
		return nil, ErrInvalidTransition
	}

	// Release the driver, if one was matched.
	if s.driverRepo != nil && trip.DriverID != "" {
		_ = s.driverRepo.UpdateStatus(ctx, trip.DriverID, domain.DriverStatusOnline)
	}

	if s.notifier != nil {
		s.notifier.NotifyCancelled(ctx, trip.RiderID, trip.ID, req.Reason)
	}

	return trip, nil
}

// CancelForDriverOffline force-cancels every non-terminal trip matched
// to the driver and notifies the affected riders. Terminal trips are
// left untouched.
func (s *TripService) CancelForDriverOffline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	trips, err := s.tripRepo.GetActiveByDriverID(ctx, driverID)
	if err != nil {
		return err
	}

	for _, trip := range trips {
		// ForceCancel also departs from in_progress: a driver who
		// disappears mid-trip strands the rider either way. Terminal
		// trips never match the guard, so a trip that completed in the
		// meantime stays completed.
		ok, err := s.tripRepo.ForceCancel(ctx, trip.ID, domain.CancelReasonDriverOffline, time.Now())
		if err != nil {
			return err
		}
		if ok && s.notifier != nil {
			s.notifier.NotifyCancelled(ctx, trip.RiderID, trip.ID, domain.CancelReasonDriverOffline)
		}
	}
	return nil
}

// GetActiveTrip returns the rider's current non-terminal trip, applying
// the request timeout first: a trip stuck in requested for longer than
// the ceiling is cancelled with reason timeout and never surfaces to
// the caller. The check is idempotent; whoever lands the conditional
// cancel first wins.
func (s *TripService) GetActiveTrip(ctx context.Context, riderID string) (*domain.Trip, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}

	trip, err := s.tripRepo.GetActiveByRiderID(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, nil
	}

	if trip.Status == domain.TripStatusRequested && time.Since(trip.RequestedAt) > s.requestTimeout {
		// Requested-only guard: a driver may have matched the trip
		// between the read above and this write, and a matched trip must
		// keep its driver.
		ok, err := s.tripRepo.CancelIfRequested(ctx, trip.ID, domain.CancelReasonTimeout, time.Now())
		if err != nil {
			return nil, err
		}
		if ok {
			if s.notifier != nil {
				s.notifier.NotifyCancelled(ctx, trip.RiderID, trip.ID, domain.CancelReasonTimeout)
			}
			return nil, nil
		}
		// The trip left requested under us. Re-read and surface it if it
		// is still live; a concurrent cancel leaves nothing to return.
		current, err := s.tripRepo.GetByID(ctx, trip.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if current.Status.IsTerminal() {
			return nil, nil
		}
		return current, nil
	}

	return trip, nil
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	return s.tripRepo.GetByID(ctx, tripID)
}

func (s *TripService) validateCreateRequest(req CreateTripRequest) error {
	if req.RiderID == "" {
		return ErrInvalidRiderID
	}
	if req.PickupAddress == "" || !isValidLatitude(req.PickupLat) || !isValidLongitude(req.PickupLng) {
		return ErrInvalidPickupLocation
	}
	if req.DestinationAddress == "" || !isValidLatitude(req.DestinationLat) || !isValidLongitude(req.DestinationLng) {
		return ErrInvalidDestinationLocation
	}
	if req.DistanceKm < 0 {
		return ErrInvalidDistance
	}
	return nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
