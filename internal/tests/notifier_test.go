package tests

import (
	"context"
	"testing"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/redis"
	"github.com/jerrymcma/rideglad-sub000/internal/service"
)

// ──────────────────────────────────────────────
// NOTIFICATION REGISTRY
// ──────────────────────────────────────────────

func TestNotifier_NewTripFansOutToNearbyDrivers(t *testing.T) {
	t.Parallel()

	locations := NewMockLocationStore()
	locations.AddDriverLocation(redis.DriverLocation{DriverID: "driver-1", Lat: 40.71, Lng: -74.00})
	locations.AddDriverLocation(redis.DriverLocation{DriverID: "driver-2", Lat: 40.72, Lng: -74.01})
	notifier := service.NewRegistryNotifier(locations)

	ch1 := notifier.Subscribe("driver-1")
	ch2 := notifier.Subscribe("driver-2")

	trip := &domain.Trip{
		ID:            "trip-1",
		PickupAddress: "12 Harbor St",
		PickupLat:     40.71,
		PickupLng:     -74.00,
		PlanName:      "glad-go",
	}
	notifier.NotifyNewTrip(context.Background(), trip)

	for name, ch := range map[string]<-chan service.Event{"driver-1": ch1, "driver-2": ch2} {
		select {
		case event := <-ch:
			if event.Type != service.EventNewTrip {
				t.Errorf("%s: expected NEW_TRIP, got %s", name, event.Type)
			}
			if event.TripID != "trip-1" {
				t.Errorf("%s: expected trip-1, got %s", name, event.TripID)
			}
		default:
			t.Errorf("%s: expected an event", name)
		}
	}
}

func TestNotifier_MatchedAndCancelledReachRider(t *testing.T) {
	t.Parallel()

	notifier := service.NewRegistryNotifier(nil)
	ch := notifier.Subscribe("rider-1")
	ctx := context.Background()

	notifier.NotifyMatched(ctx, "rider-1", "trip-1", "driver-1")
	notifier.NotifyCancelled(ctx, "rider-1", "trip-1", domain.CancelReasonTimeout)

	event := <-ch
	if event.Type != service.EventMatched || event.DriverID != "driver-1" {
		t.Errorf("expected MATCHED from driver-1, got %s/%s", event.Type, event.DriverID)
	}
	event = <-ch
	if event.Type != service.EventCancelled || event.Reason != domain.CancelReasonTimeout {
		t.Errorf("expected CANCELLED/timeout, got %s/%s", event.Type, event.Reason)
	}
}

func TestNotifier_MissingSubscriberIsSkipped(t *testing.T) {
	t.Parallel()

	notifier := service.NewRegistryNotifier(nil)
	// Nobody subscribed; must not panic or block.
	notifier.NotifyMatched(context.Background(), "rider-ghost", "trip-1", "driver-1")
}

func TestNotifier_UnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	notifier := service.NewRegistryNotifier(nil)
	ch := notifier.Subscribe("rider-1")
	notifier.Unsubscribe("rider-1")

	if _, open := <-ch; open {
		t.Error("expected channel closed after unsubscribe")
	}

	// Events after unsubscribe are dropped silently.
	notifier.NotifyMatched(context.Background(), "rider-1", "trip-1", "driver-1")
}

func TestNotifier_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	notifier := service.NewRegistryNotifier(nil)
	notifier.Subscribe("rider-1")
	ctx := context.Background()

	// Push well past the buffer size; the send must never block.
	for i := 0; i < 100; i++ {
		notifier.NotifyMatched(ctx, "rider-1", "trip-1", "driver-1")
	}
}
