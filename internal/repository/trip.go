package repository

import (
	"context"
	"time"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
)

// TripRepository defines the persistence operations for trips.
//
// Every state transition is a conditional update keyed on the trip's
// current status: the boolean result reports whether the row was
// actually moved, so concurrent callers can detect a lost race without
// a read-modify-write window.
type TripRepository interface {
	// Create persists a new trip in the requested state.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetActiveByRiderID retrieves the rider's single non-terminal trip.
	// Returns nil if the rider has no active trip.
	GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Trip, error)

	// GetActiveByDriverID retrieves all non-terminal trips matched to a driver.
	GetActiveByDriverID(ctx context.Context, driverID string) ([]*domain.Trip, error)

	// Match assigns a driver and vehicle to a requested trip. The update
	// only lands if the trip is still in the requested state; exactly one
	// of any set of concurrent callers observes true.
	Match(ctx context.Context, tripID, driverID, vehicleID string, at time.Time) (bool, error)

	// MarkPickup moves a matched trip to the pickup state.
	MarkPickup(ctx context.Context, tripID string) (bool, error)

	// MarkInProgress moves a pickup trip to in_progress and stamps startedAt.
	MarkInProgress(ctx context.Context, tripID string, at time.Time) (bool, error)

	// MarkCompleted moves an in_progress trip to completed, setting the
	// final price and completedAt.
	MarkCompleted(ctx context.Context, tripID string, finalPrice float64, at time.Time) (bool, error)

	// Cancel moves a non-terminal, not-yet-started trip (requested,
	// matched or pickup) to cancelled with the given reason.
	Cancel(ctx context.Context, tripID string, reason domain.CancelReason, at time.Time) (bool, error)

	// CancelIfRequested cancels a trip only if it is still in the
	// requested state. The timeout sweep uses it so a trip a driver
	// matched in the meantime is left alone.
	CancelIfRequested(ctx context.Context, tripID string, reason domain.CancelReason, at time.Time) (bool, error)

	// ForceCancel cancels a trip from any non-terminal state, including
	// in_progress. Used when a driver goes offline mid-trip; completed
	// and cancelled trips are never touched.
	ForceCancel(ctx context.Context, tripID string, reason domain.CancelReason, at time.Time) (bool, error)

	// CancelStaleRequested cancels every trip still in the requested
	// state whose requestedAt precedes the cutoff, and returns the trips
	// it cancelled so callers can notify the affected riders.
	CancelStaleRequested(ctx context.Context, cutoff time.Time, reason domain.CancelReason) ([]*domain.Trip, error)
}
