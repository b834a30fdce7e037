package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/repository"
)

// PlanRepository is a PostgreSQL implementation of repository.PlanRepository.
type PlanRepository struct {
	q Querier
}

// NewPlanRepository creates a new PostgreSQL plan repository.
func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{q: db}
}

const planColumns = `name, display_name, vehicle_type, base_fare, per_distance_rate, per_time_rate,
		minimum_fare, cancellation_fee, booking_fee, surge_multiplier, active`

// Upsert inserts or updates a plan, keyed by unique name. Running the
// default seeding twice must not duplicate plans.
func (r *PlanRepository) Upsert(ctx context.Context, plan *domain.PricingPlan) error {
	query := `
		INSERT INTO pricing_plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (name) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			vehicle_type = EXCLUDED.vehicle_type,
			base_fare = EXCLUDED.base_fare,
			per_distance_rate = EXCLUDED.per_distance_rate,
			per_time_rate = EXCLUDED.per_time_rate,
			minimum_fare = EXCLUDED.minimum_fare,
			cancellation_fee = EXCLUDED.cancellation_fee,
			booking_fee = EXCLUDED.booking_fee,
			surge_multiplier = EXCLUDED.surge_multiplier,
			active = EXCLUDED.active
	`

	_, err := r.q.ExecContext(ctx, query,
		plan.Name,
		plan.DisplayName,
		plan.VehicleType,
		plan.BaseFare,
		plan.PerDistanceRate,
		plan.PerTimeRate,
		plan.MinimumFare,
		plan.CancellationFee,
		plan.BookingFee,
		plan.SurgeMultiplier,
		plan.Active,
	)
	return err
}

// GetByName retrieves a plan by name.
func (r *PlanRepository) GetByName(ctx context.Context, name string) (*domain.PricingPlan, error) {
	query := `SELECT ` + planColumns + ` FROM pricing_plans WHERE name = $1`

	var plan domain.PricingPlan
	err := r.q.QueryRowContext(ctx, query, name).Scan(
		&plan.Name,
		&plan.DisplayName,
		&plan.VehicleType,
		&plan.BaseFare,
		&plan.PerDistanceRate,
		&plan.PerTimeRate,
		&plan.MinimumFare,
		&plan.CancellationFee,
		&plan.BookingFee,
		&plan.SurgeMultiplier,
		&plan.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ListActive retrieves all active plans ordered by name.
func (r *PlanRepository) ListActive(ctx context.Context) ([]*domain.PricingPlan, error) {
	query := `SELECT ` + planColumns + ` FROM pricing_plans WHERE active = true ORDER BY name`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*domain.PricingPlan
	for rows.Next() {
		var plan domain.PricingPlan
		if err := rows.Scan(
			&plan.Name,
			&plan.DisplayName,
			&plan.VehicleType,
			&plan.BaseFare,
			&plan.PerDistanceRate,
			&plan.PerTimeRate,
			&plan.MinimumFare,
			&plan.CancellationFee,
			&plan.BookingFee,
			&plan.SurgeMultiplier,
			&plan.Active,
		); err != nil {
			return nil, err
		}
		plans = append(plans, &plan)
	}
	return plans, rows.Err()
}

// PromoRepository is a PostgreSQL implementation of repository.PromoRepository.
type PromoRepository struct {
	q Querier
}

// NewPromoRepository creates a new PostgreSQL promo repository.
func NewPromoRepository(db *sql.DB) *PromoRepository {
	return &PromoRepository{q: db}
}

// NewPromoRepositoryWithTx creates a promo repository using a transaction.
func NewPromoRepositoryWithTx(tx *sql.Tx) *PromoRepository {
	return &PromoRepository{q: tx}
}

const promoColumns = `code, discount_type, discount_value, min_trip_value, usage_limit,
		usage_count, per_user_limit, expires_at, active`

// Create persists a new promo code. Codes are stored uppercase.
func (r *PromoRepository) Create(ctx context.Context, promo *domain.PromoCode) error {
	query := `
		INSERT INTO promo_codes (` + promoColumns + `)
		VALUES (upper($1), $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		promo.Code,
		promo.DiscountType,
		promo.DiscountValue,
		promo.MinTripValue,
		promo.UsageLimit,
		promo.UsageCount,
		promo.PerUserLimit,
		nullTime(promo.ExpiresAt),
		promo.Active,
	)
	return err
}

// GetByCode retrieves a promo code, matching case-insensitively.
func (r *PromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = upper($1)`

	var promo domain.PromoCode
	var expiresAt sql.NullTime
	err := r.q.QueryRowContext(ctx, query, code).Scan(
		&promo.Code,
		&promo.DiscountType,
		&promo.DiscountValue,
		&promo.MinTripValue,
		&promo.UsageLimit,
		&promo.UsageCount,
		&promo.PerUserLimit,
		&expiresAt,
		&promo.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if expiresAt.Valid {
		promo.ExpiresAt = expiresAt.Time
	}
	return &promo, nil
}

// CountUsesByUser returns how many times the user has redeemed the code.
func (r *PromoRepository) CountUsesByUser(ctx context.Context, code, userID string) (int, error) {
	query := `SELECT count(*) FROM promo_code_uses WHERE code = upper($1) AND user_id = $2`

	var count int
	if err := r.q.QueryRowContext(ctx, query, code, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementUsage bumps the usage count with the limit check inside the
// UPDATE. Returns false when the limit has been reached: two concurrent
// redemptions of the last remaining use cannot both land.
func (r *PromoRepository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	query := `
		UPDATE promo_codes SET usage_count = usage_count + 1
		WHERE code = upper($1) AND (usage_limit = 0 OR usage_count < usage_limit)
	`

	result, err := r.q.ExecContext(ctx, query, code)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

// RecordUse records a single redemption against a trip.
func (r *PromoRepository) RecordUse(ctx context.Context, code, userID, tripID string, discount float64) error {
	query := `
		INSERT INTO promo_code_uses (code, user_id, trip_id, discount, used_at)
		VALUES (upper($1), $2, $3, $4, $5)
	`

	_, err := r.q.ExecContext(ctx, query, code, userID, tripID, discount, time.Now())
	return err
}
