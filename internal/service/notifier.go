package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/redis"
)

// MatchingNotifier informs idle drivers of new requests and riders of
// match/cancel outcomes. Fire and forget: the trip record is the source
// of truth, delivery failures never roll back a state transition, and
// nothing here is awaited inside a transition's transaction.
type MatchingNotifier interface {
	NotifyNewTrip(ctx context.Context, trip *domain.Trip)
	NotifyMatched(ctx context.Context, riderID, tripID, driverID string)
	NotifyCancelled(ctx context.Context, riderID, tripID string, reason domain.CancelReason)
}

// EventType identifies a notification event.
type EventType string

const (
	EventNewTrip   EventType = "NEW_TRIP"
	EventMatched   EventType = "MATCHED"
	EventCancelled EventType = "CANCELLED"
)

// Event is one notification delivered to a subscriber.
type Event struct {
	Type      EventType
	TripID    string
	DriverID  string
	Reason    domain.CancelReason
	Data      map[string]any
	CreatedAt time.Time
}

const (
	notifyRadiusKm       = 5.0
	subscriberBufferSize = 16
)

// RegistryNotifier delivers events through per-user channels held in a
// mutex-guarded registry. The transport adapter (WebSocket, SSE) owns
// draining the channels; slow or absent subscribers are skipped, never
// blocked on.
type RegistryNotifier struct {
	mu            sync.RWMutex
	subscribers   map[string]chan Event
	locationStore redis.LocationStoreInterface
}

// NewRegistryNotifier creates a RegistryNotifier. The location store is
// used to pick which nearby drivers hear about a new trip; nil disables
// the fanout.
func NewRegistryNotifier(locationStore redis.LocationStoreInterface) *RegistryNotifier {
	return &RegistryNotifier{
		subscribers:   make(map[string]chan Event),
		locationStore: locationStore,
	}
}

// Subscribe registers a user (rider or driver) and returns the channel
// their events arrive on. A second subscribe for the same id replaces
// the first.
func (n *RegistryNotifier) Subscribe(userID string) <-chan Event {
	ch := make(chan Event, subscriberBufferSize)
	n.mu.Lock()
	if old, ok := n.subscribers[userID]; ok {
		close(old)
	}
	n.subscribers[userID] = ch
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a user's channel and closes it.
func (n *RegistryNotifier) Unsubscribe(userID string) {
	n.mu.Lock()
	if ch, ok := n.subscribers[userID]; ok {
		close(ch)
		delete(n.subscribers, userID)
	}
	n.mu.Unlock()
}

// NotifyNewTrip fans a new trip request out to drivers near the pickup.
func (n *RegistryNotifier) NotifyNewTrip(ctx context.Context, trip *domain.Trip) {
	if n.locationStore == nil {
		return
	}

	nearby, err := n.locationStore.FindNearbyDrivers(ctx, trip.PickupLat, trip.PickupLng, notifyRadiusKm)
	if err != nil {
		log.Printf("notify: nearby driver lookup failed for trip %s: %v", trip.ID, err)
		return
	}

	event := Event{
		Type:   EventNewTrip,
		TripID: trip.ID,
		Data: map[string]any{
			"pickup_address": trip.PickupAddress,
			"pickup_lat":     trip.PickupLat,
			"pickup_lng":     trip.PickupLng,
			"plan_name":      trip.PlanName,
		},
		CreatedAt: time.Now(),
	}

	for _, loc := range nearby {
		n.send(loc.DriverID, event)
	}
}

// NotifyMatched informs the rider their trip has a driver.
func (n *RegistryNotifier) NotifyMatched(ctx context.Context, riderID, tripID, driverID string) {
	n.send(riderID, Event{
		Type:      EventMatched,
		TripID:    tripID,
		DriverID:  driverID,
		CreatedAt: time.Now(),
	})
}

// NotifyCancelled informs the rider their trip was cancelled.
func (n *RegistryNotifier) NotifyCancelled(ctx context.Context, riderID, tripID string, reason domain.CancelReason) {
	n.send(riderID, Event{
		Type:      EventCancelled,
		TripID:    tripID,
		Reason:    reason,
		CreatedAt: time.Now(),
	})
}

// send delivers without blocking. A full buffer or missing subscriber
// drops the event; the trip record remains the source of truth.
func (n *RegistryNotifier) send(userID string, event Event) {
	n.mu.RLock()
	ch, ok := n.subscribers[userID]
	n.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case ch <- event:
	default:
		log.Printf("notify: dropping %s event for %s, buffer full", event.Type, userID)
	}
}

// Ensure the registry satisfies the capability interface.
var _ MatchingNotifier = (*RegistryNotifier)(nil)
