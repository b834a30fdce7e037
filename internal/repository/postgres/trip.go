package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `id, rider_id, driver_id, vehicle_id, pickup_address, pickup_lat, pickup_lng,
		destination_address, destination_lat, destination_lng, plan_name, promo_code,
		estimated_price, final_price, distance_km, duration_min, status, cancel_reason,
		requested_at, matched_at, started_at, completed_at, cancelled_at`

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.RiderID,
		nullString(trip.DriverID),
		nullString(trip.VehicleID),
		trip.PickupAddress,
		trip.PickupLat,
		trip.PickupLng,
		trip.DestinationAddress,
		trip.DestinationLat,
		trip.DestinationLng,
		trip.PlanName,
		nullString(trip.PromoCode),
		trip.EstimatedPrice,
		nullFloat(trip.FinalPrice),
		trip.DistanceKm,
		trip.DurationMin,
		trip.Status,
		nullString(string(trip.CancelReason)),
		trip.RequestedAt,
		nullTime(trip.MatchedAt),
		nullTime(trip.StartedAt),
		nullTime(trip.CompletedAt),
		nullTime(trip.CancelledAt),
	)
	if err != nil {
		var pqErr *pq.Error
		// 23505 = unique_violation: the partial unique index on rider_id
		// backs up the one-active-trip-per-rider rule under concurrency.
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return trip, nil
}

// GetActiveByRiderID retrieves the rider's non-terminal trip, or nil.
func (r *TripRepository) GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Trip, error) {
	query := `
		SELECT ` + tripColumns + ` FROM trips
		WHERE rider_id = $1 AND status IN ('requested', 'matched', 'pickup', 'in_progress')
	`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, riderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return trip, nil
}

// GetActiveByDriverID retrieves all non-terminal trips matched to a driver.
func (r *TripRepository) GetActiveByDriverID(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	query := `
		SELECT ` + tripColumns + ` FROM trips
		WHERE driver_id = $1 AND status IN ('matched', 'pickup', 'in_progress')
		ORDER BY requested_at
	`

	rows, err := r.q.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// Match assigns a driver and vehicle to a requested trip. The status
// guard in the WHERE clause makes the transition atomic: of any number
// of concurrent accepts, exactly one sees a row affected.
func (r *TripRepository) Match(ctx context.Context, tripID, driverID, vehicleID string, at time.Time) (bool, error) {
	query := `
		UPDATE trips
		SET status = 'matched', driver_id = $2, vehicle_id = $3, matched_at = $4
		WHERE id = $1 AND status = 'requested'
	`
	return r.conditionalUpdate(ctx, query, tripID, driverID, vehicleID, at)
}

// MarkPickup moves a matched trip to the pickup state.
func (r *TripRepository) MarkPickup(ctx context.Context, tripID string) (bool, error) {
	query := `UPDATE trips SET status = 'pickup' WHERE id = $1 AND status = 'matched'`
	return r.conditionalUpdate(ctx, query, tripID)
}

// MarkInProgress moves a pickup trip to in_progress.
func (r *TripRepository) MarkInProgress(ctx context.Context, tripID string, at time.Time) (bool, error) {
	query := `
		UPDATE trips SET status = 'in_progress', started_at = $2
		WHERE id = $1 AND status = 'pickup'
	`
	return r.conditionalUpdate(ctx, query, tripID, at)
}

// MarkCompleted moves an in_progress trip to completed.
func (r *TripRepository) MarkCompleted(ctx context.Context, tripID string, finalPrice float64, at time.Time) (bool, error) {
	query := `
		UPDATE trips SET status = 'completed', final_price = $2, completed_at = $3
		WHERE id = $1 AND status = 'in_progress'
	`
	return r.conditionalUpdate(ctx, query, tripID, finalPrice, at)
}

// Cancel moves a requested, matched or pickup trip to cancelled.
func (r *TripRepository) Cancel(ctx context.Context, tripID string, reason domain.CancelReason, at time.Time) (bool, error) {
	query := `
		UPDATE trips SET status = 'cancelled', cancel_reason = $2, cancelled_at = $3
		WHERE id = $1 AND status IN ('requested', 'matched', 'pickup')
	`
	return r.conditionalUpdate(ctx, query, tripID, string(reason), at)
}

// CancelIfRequested cancels a trip only while it is still requested. A
// trip matched between the caller's read and this update keeps its
// driver; the caller sees ok == false.
func (r *TripRepository) CancelIfRequested(ctx context.Context, tripID string, reason domain.CancelReason, at time.Time) (bool, error) {
	query := `
		UPDATE trips SET status = 'cancelled', cancel_reason = $2, cancelled_at = $3
		WHERE id = $1 AND status = 'requested'
	`
	return r.conditionalUpdate(ctx, query, tripID, string(reason), at)
}

// ForceCancel cancels a trip from any non-terminal state. Terminal
// trips are never touched.
func (r *TripRepository) ForceCancel(ctx context.Context, tripID string, reason domain.CancelReason, at time.Time) (bool, error) {
	query := `
		UPDATE trips SET status = 'cancelled', cancel_reason = $2, cancelled_at = $3
		WHERE id = $1 AND status IN ('requested', 'matched', 'pickup', 'in_progress')
	`
	return r.conditionalUpdate(ctx, query, tripID, string(reason), at)
}

// CancelStaleRequested cancels all requested trips older than the cutoff
// and returns them so callers can notify the affected riders.
func (r *TripRepository) CancelStaleRequested(ctx context.Context, cutoff time.Time, reason domain.CancelReason) ([]*domain.Trip, error) {
	query := `
		UPDATE trips SET status = 'cancelled', cancel_reason = $1, cancelled_at = now()
		WHERE status = 'requested' AND requested_at < $2
		RETURNING ` + tripColumns

	rows, err := r.q.QueryContext(ctx, query, string(reason), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// conditionalUpdate runs a guarded UPDATE and reports whether it landed.
func (r *TripRepository) conditionalUpdate(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	var driverID, vehicleID, promoCode, cancelReason sql.NullString
	var finalPrice sql.NullFloat64
	var matchedAt, startedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.RiderID,
		&driverID,
		&vehicleID,
		&trip.PickupAddress,
		&trip.PickupLat,
		&trip.PickupLng,
		&trip.DestinationAddress,
		&trip.DestinationLat,
		&trip.DestinationLng,
		&trip.PlanName,
		&promoCode,
		&trip.EstimatedPrice,
		&finalPrice,
		&trip.DistanceKm,
		&trip.DurationMin,
		&trip.Status,
		&cancelReason,
		&trip.RequestedAt,
		&matchedAt,
		&startedAt,
		&completedAt,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	trip.DriverID = driverID.String
	trip.VehicleID = vehicleID.String
	trip.PromoCode = promoCode.String
	trip.CancelReason = domain.CancelReason(cancelReason.String)
	trip.FinalPrice = finalPrice.Float64
	if matchedAt.Valid {
		trip.MatchedAt = matchedAt.Time
	}
	if startedAt.Valid {
		trip.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		trip.CompletedAt = completedAt.Time
	}
	if cancelledAt.Valid {
		trip.CancelledAt = cancelledAt.Time
	}
	return &trip, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: f != 0}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
