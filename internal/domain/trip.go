package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusRequested  TripStatus = "requested"
	TripStatusMatched    TripStatus = "matched"
	TripStatusPickup     TripStatus = "pickup"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

// IsTerminal reports whether the status is a terminal state.
// Trips are never deleted, only transitioned into a terminal state.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// ActiveTripStatuses are the non-terminal statuses. A rider may hold at
// most one trip in any of these states at a time.
var ActiveTripStatuses = []TripStatus{
	TripStatusRequested,
	TripStatusMatched,
	TripStatusPickup,
	TripStatusInProgress,
}

// CancelReason records why a trip was cancelled.
type CancelReason string

const (
	CancelReasonUserRequested CancelReason = "user_requested"
	CancelReasonDriverOffline CancelReason = "driver_offline"
	CancelReasonTimeout       CancelReason = "timeout"
)

// Trip represents one ride request end-to-end.
//
// DriverID and VehicleID are empty while the trip is in the requested
// state and are both set by the match transition. FinalPrice is zero
// until the trip completes.
type Trip struct {
	ID        string
	RiderID   string
	DriverID  string
	VehicleID string

	PickupAddress      string
	PickupLat          float64
	PickupLng          float64
	DestinationAddress string
	DestinationLat     float64
	DestinationLng     float64

	PlanName       string
	PromoCode      string
	EstimatedPrice float64
	FinalPrice     float64
	DistanceKm     float64
	DurationMin    float64

	Status       TripStatus
	CancelReason CancelReason

	// Each timestamp is set exactly once, by its own transition.
	RequestedAt time.Time
	MatchedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	CancelledAt time.Time
}
