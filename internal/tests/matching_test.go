package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/service"
)

// ──────────────────────────────────────────────
// MATCHING AND RACES
// ──────────────────────────────────────────────

func TestMatch_AssignsDriverAndVehicle(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	f.driverRepo.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusOnline})
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusRequested,
	})

	trip, err := f.service.Match(context.Background(), service.MatchRequest{
		TripID:    "trip-1",
		DriverID:  "driver-1",
		VehicleID: "vehicle-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trip.DriverID != "driver-1" || trip.VehicleID != "vehicle-1" {
		t.Errorf("expected driver-1/vehicle-1, got %s/%s", trip.DriverID, trip.VehicleID)
	}
}

func TestMatch_SecondDriverLoses(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	ctx := context.Background()
	f.driverRepo.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusOnline})
	f.driverRepo.AddDriver(&domain.Driver{ID: "driver-2", Status: domain.DriverStatusOnline})
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusRequested,
	})

	if _, err := f.service.Match(ctx, service.MatchRequest{
		TripID: "trip-1", DriverID: "driver-1", VehicleID: "vehicle-1",
	}); err != nil {
		t.Fatalf("first match: %v", err)
	}

	_, err := f.service.Match(ctx, service.MatchRequest{
		TripID: "trip-1", DriverID: "driver-2", VehicleID: "vehicle-2",
	})
	if !errors.Is(err, service.ErrAlreadyMatched) {
		t.Errorf("expected ErrAlreadyMatched, got %v", err)
	}

	// The first assignment is untouched.
	if trip := f.tripRepo.GetTrip("trip-1"); trip.DriverID != "driver-1" {
		t.Errorf("expected driver-1 to keep the trip, got %s", trip.DriverID)
	}
}

func TestMatch_ConcurrentDrivers_ExactlyOneWins(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	ctx := context.Background()

	const drivers = 16
	for i := 0; i < drivers; i++ {
		f.driverRepo.AddDriver(&domain.Driver{
			ID:     driverID(i),
			Status: domain.DriverStatusOnline,
		})
	}
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-hot",
		RiderID: "rider-1",
		Status:  domain.TripStatusRequested,
	})

	var wins, losses int32
	var wg sync.WaitGroup
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.service.Match(ctx, service.MatchRequest{
				TripID:    "trip-hot",
				DriverID:  driverID(i),
				VehicleID: "vehicle-" + driverID(i),
			})
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, service.ErrAlreadyMatched):
				atomic.AddInt32(&losses, 1)
			default:
				t.Errorf("driver %d: unexpected error: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins)
	}
	if losses != drivers-1 {
		t.Errorf("expected %d losers, got %d", drivers-1, losses)
	}

	trip := f.tripRepo.GetTrip("trip-hot")
	if trip.Status != domain.TripStatusMatched {
		t.Errorf("expected matched, got %s", trip.Status)
	}
	if trip.DriverID == "" {
		t.Error("expected a driver to be assigned")
	}
}

func driverID(i int) string {
	return "driver-" + string(rune('a'+i))
}

func TestMatch_UnknownTrip(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	_, err := f.service.Match(context.Background(), service.MatchRequest{
		TripID: "no-such-trip", DriverID: "driver-1", VehicleID: "vehicle-1",
	})
	if err == nil {
		t.Error("expected error for unknown trip")
	}
}

func TestMatch_CancelledTripRejected(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusCancelled,
	})

	_, err := f.service.Match(context.Background(), service.MatchRequest{
		TripID: "trip-1", DriverID: "driver-1", VehicleID: "vehicle-1",
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestPromoExhaustion_ConcurrentRedemptions_OneWins(t *testing.T) {
	t.Parallel()

	f := newTripFixture(t)
	ctx := context.Background()
	f.promoRepo.AddPromo(&domain.PromoCode{
		Code:          "LASTONE",
		DiscountType:  domain.DiscountTypeFlat,
		DiscountValue: 3.00,
		UsageLimit:    1,
		Active:        true,
	})

	// Both riders validate against usage count 0, then race for the
	// single remaining redemption at insert time.
	const riders = 8
	var applied, exhausted int32
	var wg sync.WaitGroup
	for i := 0; i < riders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validCreateRequest("rider-" + string(rune('a'+i)))
			req.PromoCode = "LASTONE"
			_, err := f.service.Create(ctx, req)
			switch {
			case err == nil:
				atomic.AddInt32(&applied, 1)
			case errors.Is(err, service.ErrPromoExhausted):
				atomic.AddInt32(&exhausted, 1)
			default:
				t.Errorf("rider %d: unexpected error: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if f.promoRepo.UsageCount("LASTONE") != 1 {
		t.Errorf("expected usage count 1, got %d", f.promoRepo.UsageCount("LASTONE"))
	}
	if applied < 1 {
		t.Error("expected at least one successful redemption")
	}
	if applied+exhausted != riders {
		t.Errorf("expected all %d attempts accounted for, got %d applied + %d exhausted",
			riders, applied, exhausted)
	}
}
