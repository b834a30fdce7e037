package service

import "errors"

// Validation errors: malformed input the caller can correct.
var (
	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidVehicleID is returned when vehicle ID is empty.
	ErrInvalidVehicleID = errors.New("invalid vehicle id")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidPickupLocation is returned when pickup coordinates are invalid.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidDestinationLocation is returned when destination coordinates are invalid.
	ErrInvalidDestinationLocation = errors.New("invalid destination location")

	// ErrInvalidDistance is returned when distance is negative or not finite.
	ErrInvalidDistance = errors.New("invalid distance")

	// ErrInvalidDuration is returned when a supplied duration is negative or not finite.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidRating is returned when a rating is outside 1-5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidStatus is returned when a requested target status is unknown.
	ErrInvalidStatus = errors.New("invalid trip status")

	// ErrInvalidCancelReason is returned when a cancel reason is unknown.
	ErrInvalidCancelReason = errors.New("invalid cancel reason")
)

// Not-found errors.
var (
	// ErrPlanNotFound is returned when a pricing plan is unknown or inactive.
	ErrPlanNotFound = errors.New("pricing plan not found")
)

// State conflicts: a concurrent caller won the race. Expected under
// normal operation; callers should refresh their view, not alarm.
var (
	// ErrAlreadyMatched is returned to the loser of a concurrent match.
	ErrAlreadyMatched = errors.New("trip already matched to another driver")

	// ErrAlreadyTerminal is returned when acting on a completed or cancelled trip.
	ErrAlreadyTerminal = errors.New("trip already completed or cancelled")

	// ErrPromoExhausted is returned when a redemption loses the race for
	// the last remaining use of a promo code.
	ErrPromoExhausted = errors.New("promo code usage limit reached")
)

// Policy violations: the request is well-formed but the business rules
// forbid it right now.
var (
	// ErrRiderHasActiveTrip is returned when the rider already has a
	// non-terminal trip.
	ErrRiderHasActiveTrip = errors.New("rider already has an active trip")

	// ErrInvalidTransition is returned when a trip is not in the state
	// the requested transition departs from.
	ErrInvalidTransition = errors.New("invalid trip state transition")

	// ErrTripNotRateable is returned when rating a trip that never got
	// underway.
	ErrTripNotRateable = errors.New("trip cannot be rated in its current state")
)
