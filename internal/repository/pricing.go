package repository

import (
	"context"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
)

// PlanRepository defines the persistence operations for pricing plans.
type PlanRepository interface {
	// Upsert inserts the plan or updates it in place, keyed by unique
	// name. Used by idempotent default seeding.
	Upsert(ctx context.Context, plan *domain.PricingPlan) error

	// GetByName retrieves a plan by name.
	GetByName(ctx context.Context, name string) (*domain.PricingPlan, error)

	// ListActive retrieves all active plans ordered by name.
	ListActive(ctx context.Context) ([]*domain.PricingPlan, error)
}

// PromoRepository defines the persistence operations for promo codes.
type PromoRepository interface {
	// Create persists a new promo code.
	Create(ctx context.Context, promo *domain.PromoCode) error

	// GetByCode retrieves a promo code. The lookup is case-insensitive.
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)

	// CountUsesByUser returns how many times the user has redeemed the code.
	CountUsesByUser(ctx context.Context, code, userID string) (int, error)

	// IncrementUsage bumps the code's usage count, but only while the
	// count is still under the usage limit. The limit check lives inside
	// the update itself so two concurrent redemptions of the last
	// remaining use cannot both succeed.
	IncrementUsage(ctx context.Context, code string) (bool, error)

	// RecordUse records a single redemption against a trip.
	RecordUse(ctx context.Context, code, userID, tripID string, discount float64) error
}
