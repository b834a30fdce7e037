package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/redis"
	"github.com/jerrymcma/rideglad-sub000/internal/service"
)

// ──────────────────────────────────────────────
// DRIVER PRESENCE
// ──────────────────────────────────────────────

type driverFixture struct {
	driverRepo    *MockDriverRepository
	vehicleRepo   *MockVehicleRepository
	locationStore *MockLocationStore
	tripRepo      *MockTripRepository
	notifier      *MockNotifier
	service       *service.DriverService
}

func newDriverFixture(t *testing.T) *driverFixture {
	t.Helper()

	trips := newTripFixture(t)
	driverRepo := trips.driverRepo
	vehicleRepo := NewMockVehicleRepository()
	locationStore := NewMockLocationStore()

	svc := service.NewDriverService(driverRepo, vehicleRepo, locationStore, trips.service)
	return &driverFixture{
		driverRepo:    driverRepo,
		vehicleRepo:   vehicleRepo,
		locationStore: locationStore,
		tripRepo:      trips.tripRepo,
		notifier:      trips.notifier,
		service:       svc,
	}
}

func TestRegisterDriver_StartsOffline(t *testing.T) {
	t.Parallel()

	f := newDriverFixture(t)

	driver, vehicle, err := f.service.Register(context.Background(), service.RegisterDriverRequest{
		Name:         "Dana",
		Phone:        "+15550100",
		VehicleMake:  "Toyota",
		VehicleModel: "Camry",
		VehiclePlate: "GLD-1234",
		VehicleType:  "sedan",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if driver.Status != domain.DriverStatusOffline {
		t.Errorf("expected new driver offline, got %s", driver.Status)
	}
	if vehicle.DriverID != driver.ID {
		t.Error("expected vehicle bound to driver")
	}
	if f.vehicleRepo.CountVehicles() != 1 {
		t.Errorf("expected 1 vehicle, got %d", f.vehicleRepo.CountVehicles())
	}
}

func TestUpdateLocation_ValidatesCoordinates(t *testing.T) {
	t.Parallel()

	f := newDriverFixture(t)
	ctx := context.Background()

	if err := f.service.UpdateLocation(ctx, "driver-1", 40.71, -74.00); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.locationStore.HasLocation("driver-1") {
		t.Error("expected location to be stored")
	}

	if err := f.service.UpdateLocation(ctx, "driver-1", 91, 0); err == nil {
		t.Error("expected error for out-of-range latitude")
	}
}

func TestGoOffline_ForceCancelsActiveTrips(t *testing.T) {
	t.Parallel()

	f := newDriverFixture(t)
	ctx := context.Background()

	f.driverRepo.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusOnTrip})
	f.locationStore.AddDriverLocation(redis.DriverLocation{DriverID: "driver-1", Lat: 40.71, Lng: -74.00})

	f.tripRepo.AddTrip(&domain.Trip{
		ID:       "trip-matched",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.TripStatusMatched,
	})
	f.tripRepo.AddTrip(&domain.Trip{
		ID:        "trip-underway",
		RiderID:   "rider-2",
		DriverID:  "driver-1",
		Status:    domain.TripStatusInProgress,
		StartedAt: time.Now(),
	})
	f.tripRepo.AddTrip(&domain.Trip{
		ID:          "trip-done",
		RiderID:     "rider-3",
		DriverID:    "driver-1",
		Status:      domain.TripStatusCompleted,
		FinalPrice:  20,
		CompletedAt: time.Now(),
	})

	if err := f.service.GoOffline(ctx, "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.driverRepo.GetDriver("driver-1").Status; got != domain.DriverStatusOffline {
		t.Errorf("expected driver offline, got %s", got)
	}
	if f.locationStore.HasLocation("driver-1") {
		t.Error("expected driver dropped from the geo index")
	}

	// Both non-terminal trips are cancelled, the completed one untouched.
	for _, id := range []string{"trip-matched", "trip-underway"} {
		trip := f.tripRepo.GetTrip(id)
		if trip.Status != domain.TripStatusCancelled {
			t.Errorf("%s: expected cancelled, got %s", id, trip.Status)
		}
		if trip.CancelReason != domain.CancelReasonDriverOffline {
			t.Errorf("%s: expected reason driver_offline, got %s", id, trip.CancelReason)
		}
	}
	if got := f.tripRepo.GetTrip("trip-done").Status; got != domain.TripStatusCompleted {
		t.Errorf("completed trip must stay completed, got %s", got)
	}

	if f.notifier.CancelledCount != 2 {
		t.Errorf("expected 2 cancel notifications, got %d", f.notifier.CancelledCount)
	}
}

func TestGoOnline_SetsStatus(t *testing.T) {
	t.Parallel()

	f := newDriverFixture(t)
	f.driverRepo.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusOffline})

	if err := f.service.GoOnline(context.Background(), "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.driverRepo.GetDriver("driver-1").Status; got != domain.DriverStatusOnline {
		t.Errorf("expected online, got %s", got)
	}
}

func TestGoOffline_NoActiveTrips(t *testing.T) {
	t.Parallel()

	f := newDriverFixture(t)
	f.driverRepo.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusOnline})

	if err := f.service.GoOffline(context.Background(), "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.notifier.CancelledCount != 0 {
		t.Errorf("expected no cancel notifications, got %d", f.notifier.CancelledCount)
	}
}

// ──────────────────────────────────────────────
// RATINGS
// ──────────────────────────────────────────────

type ratingFixture struct {
	ratingRepo *MockRatingRepository
	tripRepo   *MockTripRepository
	service    *service.RatingService
}

func newRatingFixture(t *testing.T) *ratingFixture {
	t.Helper()

	trips := newTripFixture(t)
	ratingRepo := NewMockRatingRepository()
	svc := service.NewRatingService(ratingRepo, trips.service)
	return &ratingFixture{
		ratingRepo: ratingRepo,
		tripRepo:   trips.tripRepo,
		service:    svc,
	}
}

func TestRating_CompletedTrip(t *testing.T) {
	t.Parallel()

	f := newRatingFixture(t)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusCompleted,
	})

	rating, err := f.service.Create(context.Background(), service.CreateRatingRequest{
		TripID:     "trip-1",
		FromUserID: "rider-1",
		ToUserID:   "driver-1",
		Rating:     5,
		Comment:    "smooth ride",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rating.Rating != 5 {
		t.Errorf("expected rating 5, got %d", rating.Rating)
	}
	if f.ratingRepo.CountRatings() != 1 {
		t.Errorf("expected 1 rating stored, got %d", f.ratingRepo.CountRatings())
	}
}

func TestRating_InProgressTripForcesCompletion(t *testing.T) {
	t.Parallel()

	f := newRatingFixture(t)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:             "trip-1",
		RiderID:        "rider-1",
		Status:         domain.TripStatusInProgress,
		EstimatedPrice: 14.50,
	})

	if _, err := f.service.Create(context.Background(), service.CreateRatingRequest{
		TripID:     "trip-1",
		FromUserID: "rider-1",
		ToUserID:   "driver-1",
		Rating:     4,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trip := f.tripRepo.GetTrip("trip-1")
	if trip.Status != domain.TripStatusCompleted {
		t.Errorf("expected rating to complete the trip, got %s", trip.Status)
	}
	// Forced completion settles at the estimated price.
	if trip.FinalPrice != 14.50 {
		t.Errorf("expected final price 14.50, got %.2f", trip.FinalPrice)
	}
}

func TestRating_RejectsUnstartedAndCancelledTrips(t *testing.T) {
	t.Parallel()

	f := newRatingFixture(t)
	ctx := context.Background()
	for id, status := range map[string]domain.TripStatus{
		"trip-requested": domain.TripStatusRequested,
		"trip-matched":   domain.TripStatusMatched,
		"trip-pickup":    domain.TripStatusPickup,
		"trip-cancelled": domain.TripStatusCancelled,
	} {
		f.tripRepo.AddTrip(&domain.Trip{ID: id, RiderID: "rider-" + id, Status: status})

		_, err := f.service.Create(ctx, service.CreateRatingRequest{
			TripID:     id,
			FromUserID: "rider-1",
			ToUserID:   "driver-1",
			Rating:     3,
		})
		if !errors.Is(err, service.ErrTripNotRateable) {
			t.Errorf("%s: expected ErrTripNotRateable, got %v", id, err)
		}
	}
}

func TestRating_RejectsOutOfRangeValues(t *testing.T) {
	t.Parallel()

	f := newRatingFixture(t)
	ctx := context.Background()
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusCompleted,
	})

	for _, v := range []int{0, -1, 6} {
		_, err := f.service.Create(ctx, service.CreateRatingRequest{
			TripID:     "trip-1",
			FromUserID: "rider-1",
			ToUserID:   "driver-1",
			Rating:     v,
		})
		if !errors.Is(err, service.ErrInvalidRating) {
			t.Errorf("rating %d: expected ErrInvalidRating, got %v", v, err)
		}
	}
}

func TestRating_DuplicateBySameRaterRejected(t *testing.T) {
	t.Parallel()

	f := newRatingFixture(t)
	ctx := context.Background()
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusCompleted,
	})

	req := service.CreateRatingRequest{
		TripID:     "trip-1",
		FromUserID: "rider-1",
		ToUserID:   "driver-1",
		Rating:     5,
	}
	if _, err := f.service.Create(ctx, req); err != nil {
		t.Fatalf("first rating: %v", err)
	}
	if _, err := f.service.Create(ctx, req); err == nil {
		t.Error("expected duplicate rating to be rejected")
	}

	// The other party can still rate the same trip.
	req.FromUserID = "driver-1"
	req.ToUserID = "rider-1"
	if _, err := f.service.Create(ctx, req); err != nil {
		t.Errorf("counterpart rating: %v", err)
	}

	ratings, err := f.service.ListByTrip(ctx, "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ratings) != 2 {
		t.Errorf("expected 2 ratings, got %d", len(ratings))
	}
}
