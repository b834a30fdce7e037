package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/service"
)

// ──────────────────────────────────────────────
// TRIP LIFECYCLE
// ──────────────────────────────────────────────

type tripFixture struct {
	tripRepo   *MockTripRepository
	driverRepo *MockDriverRepository
	promoRepo  *MockPromoRepository
	notifier   *MockNotifier
	service    *service.TripService
}

func newTripFixture(t *testing.T) *tripFixture {
	t.Helper()

	planRepo := NewMockPlanRepository()
	planRepo.AddPlan(testPlan())
	promoRepo := NewMockPromoRepository()
	tripRepo := NewMockTripRepository()
	driverRepo := NewMockDriverRepository()
	notifier := NewMockNotifier()

	pricing := newTestPricing(planRepo, promoRepo)
	svc := service.NewTripService(nil, tripRepo, driverRepo, promoRepo, pricing, notifier, 10*time.Minute)

	return &tripFixture{
		tripRepo:   tripRepo,
		driverRepo: driverRepo,
		promoRepo:  promoRepo,
		notifier:   notifier,
		service:    svc,
	}
}

func validCreateRequest(riderID string) service.CreateTripRequest {
	return service.CreateTripRequest{
		RiderID:            riderID,
		PickupAddress:      "12 Harbor St",
		PickupLat:          40.71,
		PickupLng:          -74.00,
		DestinationAddress: "98 Summit Ave",
		DestinationLat:     40.75,
		DestinationLng:     -73.98,
		PlanName:           "glad-go",
		DistanceKm:         20,
	}
}

func TestCreateTrip_Succeeds(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	ctx := context.Background()

	result, err := f.service.Create(ctx, validCreateRequest("rider-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Trip.Status != domain.TripStatusRequested {
		t.Errorf("expected status requested, got %s", result.Trip.Status)
	}
	if result.Trip.EstimatedPrice != result.Quote.EstimatedPrice {
		t.Error("trip estimated price must match the quote")
	}
	if result.Trip.RequestedAt.IsZero() {
		t.Error("expected requestedAt to be stamped")
	}
	if f.notifier.NewTripCount != 1 {
		t.Errorf("expected 1 new-trip notification, got %d", f.notifier.NewTripCount)
	}
}

func TestCreateTrip_SecondActiveTripRejected(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	ctx := context.Background()

	if _, err := f.service.Create(ctx, validCreateRequest("rider-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.service.Create(ctx, validCreateRequest("rider-1"))
	if !errors.Is(err, service.ErrRiderHasActiveTrip) {
		t.Errorf("expected ErrRiderHasActiveTrip, got %v", err)
	}

	// Another rider is unaffected.
	if _, err := f.service.Create(ctx, validCreateRequest("rider-2")); err != nil {
		t.Errorf("unexpected error for second rider: %v", err)
	}
}

func TestCreateTrip_Validation(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*service.CreateTripRequest)
		want   error
	}{
		{"empty rider", func(r *service.CreateTripRequest) { r.RiderID = "" }, service.ErrInvalidRiderID},
		{"bad pickup lat", func(r *service.CreateTripRequest) { r.PickupLat = 91 }, service.ErrInvalidPickupLocation},
		{"empty pickup address", func(r *service.CreateTripRequest) { r.PickupAddress = "" }, service.ErrInvalidPickupLocation},
		{"bad destination lng", func(r *service.CreateTripRequest) { r.DestinationLng = -181 }, service.ErrInvalidDestinationLocation},
		{"negative distance", func(r *service.CreateTripRequest) { r.DistanceKm = -1 }, service.ErrInvalidDistance},
	}

	for _, tc := range cases {
		req := validCreateRequest("rider-v")
		tc.mutate(&req)
		_, err := f.service.Create(ctx, req)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestTrip_FullLifecycle(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	ctx := context.Background()
	f.driverRepo.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusOnline})

	result, err := f.service.Create(ctx, validCreateRequest("rider-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tripID := result.Trip.ID

	trip, err := f.service.Match(ctx, service.MatchRequest{
		TripID:    tripID,
		DriverID:  "driver-1",
		VehicleID: "vehicle-1",
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if trip.Status != domain.TripStatusMatched {
		t.Errorf("expected matched, got %s", trip.Status)
	}
	if trip.MatchedAt.IsZero() {
		t.Error("expected matchedAt to be stamped")
	}
	if f.driverRepo.GetDriver("driver-1").Status != domain.DriverStatusOnTrip {
		t.Error("expected driver to be on_trip after match")
	}
	if f.notifier.MatchedCount != 1 {
		t.Errorf("expected 1 matched notification, got %d", f.notifier.MatchedCount)
	}

	trip, err = f.service.BeginPickupWait(ctx, tripID)
	if err != nil {
		t.Fatalf("pickup: %v", err)
	}
	if trip.Status != domain.TripStatusPickup {
		t.Errorf("expected pickup, got %s", trip.Status)
	}

	trip, err = f.service.StartTrip(ctx, tripID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if trip.Status != domain.TripStatusInProgress {
		t.Errorf("expected in_progress, got %s", trip.Status)
	}
	if trip.StartedAt.IsZero() {
		t.Error("expected startedAt to be stamped")
	}

	trip, err = f.service.Complete(ctx, tripID, 18.75)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if trip.Status != domain.TripStatusCompleted {
		t.Errorf("expected completed, got %s", trip.Status)
	}
	if trip.FinalPrice != 18.75 {
		t.Errorf("expected final price 18.75, got %.2f", trip.FinalPrice)
	}
	if f.driverRepo.GetDriver("driver-1").Status != domain.DriverStatusOnline {
		t.Error("expected driver released to online after completion")
	}
}

func TestComplete_DefaultsToEstimatedPrice(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:             "trip-1",
		RiderID:        "rider-1",
		Status:         domain.TripStatusInProgress,
		EstimatedPrice: 14.50,
	})

	trip, err := f.service.Complete(context.Background(), "trip-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.FinalPrice != 14.50 {
		t.Errorf("expected final price to default to estimate 14.50, got %.2f", trip.FinalPrice)
	}
}

func TestTransitions_OutOfOrderRejected(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	ctx := context.Background()
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusRequested,
	})

	// requested cannot jump to in_progress or completed.
	if _, err := f.service.StartTrip(ctx, "trip-1"); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("start from requested: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.service.Complete(ctx, "trip-1", 10); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("complete from requested: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.service.BeginPickupWait(ctx, "trip-1"); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("pickup from requested: expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancel_FromRequested(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusRequested,
	})

	trip, err := f.service.Cancel(context.Background(), service.CancelRequest{TripID: "trip-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != domain.TripStatusCancelled {
		t.Errorf("expected cancelled, got %s", trip.Status)
	}
	// Empty reason defaults to user_requested.
	if trip.CancelReason != domain.CancelReasonUserRequested {
		t.Errorf("expected reason user_requested, got %s", trip.CancelReason)
	}
	if f.notifier.CancelledCount != 1 {
		t.Errorf("expected 1 cancel notification, got %d", f.notifier.CancelledCount)
	}
}

func TestCancel_ReleasesMatchedDriver(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	f.driverRepo.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusOnTrip})
	f.tripRepo.AddTrip(&domain.Trip{
		ID:       "trip-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.TripStatusMatched,
	})

	if _, err := f.service.Cancel(context.Background(), service.CancelRequest{TripID: "trip-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.driverRepo.GetDriver("driver-1").Status != domain.DriverStatusOnline {
		t.Error("expected driver released to online after cancel")
	}
}

func TestCancel_TerminalTripRejected(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	ctx := context.Background()
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-done",
		RiderID: "rider-1",
		Status:  domain.TripStatusCompleted,
	})
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-gone",
		RiderID: "rider-2",
		Status:  domain.TripStatusCancelled,
	})

	if _, err := f.service.Cancel(ctx, service.CancelRequest{TripID: "trip-done"}); !errors.Is(err, service.ErrAlreadyTerminal) {
		t.Errorf("cancel completed: expected ErrAlreadyTerminal, got %v", err)
	}
	if _, err := f.service.Cancel(ctx, service.CancelRequest{TripID: "trip-gone"}); !errors.Is(err, service.ErrAlreadyTerminal) {
		t.Errorf("cancel cancelled: expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestCancel_InProgressRejected(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusInProgress,
	})

	// A trip underway cannot be cancelled through the ordinary path.
	_, err := f.service.Cancel(context.Background(), service.CancelRequest{TripID: "trip-1"})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancel_UnknownReasonRejected(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusRequested,
	})

	_, err := f.service.Cancel(context.Background(), service.CancelRequest{
		TripID: "trip-1",
		Reason: domain.CancelReason("felt_like_it"),
	})
	if !errors.Is(err, service.ErrInvalidCancelReason) {
		t.Errorf("expected ErrInvalidCancelReason, got %v", err)
	}
}

func TestGetActiveTrip_SweepsStaleRequest(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:          "trip-stale",
		RiderID:     "rider-1",
		Status:      domain.TripStatusRequested,
		RequestedAt: time.Now().Add(-11 * time.Minute),
	})

	trip, err := f.service.GetActiveTrip(context.Background(), "rider-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip != nil {
		t.Errorf("expected no active trip after timeout, got %s", trip.Status)
	}

	stored := f.tripRepo.GetTrip("trip-stale")
	if stored.Status != domain.TripStatusCancelled {
		t.Errorf("expected stale trip cancelled, got %s", stored.Status)
	}
	if stored.CancelReason != domain.CancelReasonTimeout {
		t.Errorf("expected reason timeout, got %s", stored.CancelReason)
	}
	if f.notifier.CancelledCount != 1 {
		t.Errorf("expected cancel notification, got %d", f.notifier.CancelledCount)
	}
}

func TestGetActiveTrip_MatchedTripIsNotSwept(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	// Old but already matched: the timeout only applies to requested.
	f.tripRepo.AddTrip(&domain.Trip{
		ID:          "trip-1",
		RiderID:     "rider-1",
		DriverID:    "driver-1",
		Status:      domain.TripStatusMatched,
		RequestedAt: time.Now().Add(-2 * time.Hour),
	})

	trip, err := f.service.GetActiveTrip(context.Background(), "rider-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip == nil {
		t.Fatal("expected the matched trip to still be active")
	}
	if trip.Status != domain.TripStatusMatched {
		t.Errorf("expected matched, got %s", trip.Status)
	}
}

// matchDuringSweepRepo lands a driver match between the sweep's
// active-trip read and its conditional cancel, so the cancel must lose.
type matchDuringSweepRepo struct {
	*MockTripRepository
	driverID  string
	vehicleID string
	once      sync.Once
}

func (r *matchDuringSweepRepo) GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Trip, error) {
	trip, err := r.MockTripRepository.GetActiveByRiderID(ctx, riderID)
	if err == nil && trip != nil && trip.Status == domain.TripStatusRequested {
		r.once.Do(func() {
			_, _ = r.MockTripRepository.Match(ctx, trip.ID, r.driverID, r.vehicleID, time.Now())
		})
	}
	return trip, err
}

func TestGetActiveTrip_MatchDuringSweepKeepsDriver(t *testing.T) {
	t.Parallel()

	planRepo := NewMockPlanRepository()
	planRepo.AddPlan(testPlan())
	promoRepo := NewMockPromoRepository()
	tripRepo := NewMockTripRepository()
	notifier := NewMockNotifier()
	racing := &matchDuringSweepRepo{
		MockTripRepository: tripRepo,
		driverID:           "driver-1",
		vehicleID:          "vehicle-1",
	}
	svc := service.NewTripService(nil, racing, NewMockDriverRepository(), promoRepo,
		newTestPricing(planRepo, promoRepo), notifier, 10*time.Minute)

	tripRepo.AddTrip(&domain.Trip{
		ID:          "trip-1",
		RiderID:     "rider-1",
		Status:      domain.TripStatusRequested,
		RequestedAt: time.Now().Add(-11 * time.Minute),
	})

	trip, err := svc.GetActiveTrip(context.Background(), "rider-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip == nil {
		t.Fatal("expected the just-matched trip to surface")
	}
	if trip.Status != domain.TripStatusMatched {
		t.Errorf("expected matched, got %s", trip.Status)
	}
	if trip.DriverID != "driver-1" {
		t.Errorf("expected driver-1 on the trip, got %q", trip.DriverID)
	}

	stored := tripRepo.GetTrip("trip-1")
	if stored.Status != domain.TripStatusMatched {
		t.Errorf("expected the match to survive the timeout check, got %s", stored.Status)
	}
	if stored.CancelReason != "" {
		t.Errorf("expected no cancel reason, got %s", stored.CancelReason)
	}
	if notifier.CancelledCount != 0 {
		t.Errorf("expected no cancel notification, got %d", notifier.CancelledCount)
	}
}

func TestGetActiveTrip_FreshRequestSurvives(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:          "trip-1",
		RiderID:     "rider-1",
		Status:      domain.TripStatusRequested,
		RequestedAt: time.Now().Add(-time.Minute),
	})

	trip, err := f.service.GetActiveTrip(context.Background(), "rider-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip == nil {
		t.Fatal("expected the fresh request to still be active")
	}
}

func TestCreateTrip_StaleRequestDoesNotBlockNewOne(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:          "trip-stale",
		RiderID:     "rider-1",
		Status:      domain.TripStatusRequested,
		RequestedAt: time.Now().Add(-time.Hour),
	})

	// The stale trip is swept during the create's active-trip check.
	result, err := f.service.Create(context.Background(), validCreateRequest("rider-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Trip.Status != domain.TripStatusRequested {
		t.Errorf("expected requested, got %s", result.Trip.Status)
	}
	if f.tripRepo.GetTrip("trip-stale").Status != domain.TripStatusCancelled {
		t.Error("expected the stale trip to be cancelled")
	}
}

func TestCreateTrip_RedeemsPromoAtomically(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	f.promoRepo.AddPromo(testPromo())

	result, err := f.service.Create(context.Background(), func() service.CreateTripRequest {
		r := validCreateRequest("rider-1")
		r.PromoCode = "save3"
		return r
	}())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Quote.PromoApplied {
		t.Fatal("expected promo to apply")
	}
	if result.Trip.PromoCode != "SAVE3" {
		t.Errorf("expected normalized promo code on trip, got %q", result.Trip.PromoCode)
	}
	if f.promoRepo.UsageCount("SAVE3") != 1 {
		t.Errorf("expected usage count 1, got %d", f.promoRepo.UsageCount("SAVE3"))
	}
}
