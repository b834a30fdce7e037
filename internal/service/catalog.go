package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/redis"
	"github.com/jerrymcma/rideglad-sub000/internal/repository"
)

// CatalogService is the source of truth for pricing plans and promo
// codes. Read-only during trip pricing; plans mutate only through the
// idempotent seeding at startup.
type CatalogService struct {
	planRepo   repository.PlanRepository
	promoRepo  repository.PromoRepository
	cacheStore *redis.CacheStore
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	planRepo repository.PlanRepository,
	promoRepo repository.PromoRepository,
	cacheStore *redis.CacheStore,
) *CatalogService {
	return &CatalogService{
		planRepo:   planRepo,
		promoRepo:  promoRepo,
		cacheStore: cacheStore,
	}
}

// GetPlan resolves a plan by name. Inactive plans are treated the same
// as unknown ones: ErrPlanNotFound.
func (s *CatalogService) GetPlan(ctx context.Context, name string) (*domain.PricingPlan, error) {
	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetPlan(ctx, name); err == nil && cached != nil {
			if !cached.Active {
				return nil, ErrPlanNotFound
			}
			return cachedToPlan(cached), nil
		}
	}

	plan, err := s.planRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetPlan(ctx, planToCached(plan))
	}

	if !plan.Active {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

// ListActivePlans returns all active plans in stable name order.
func (s *CatalogService) ListActivePlans(ctx context.Context) ([]*domain.PricingPlan, error) {
	return s.planRepo.ListActive(ctx)
}

// GetPromo looks up a promo code. Lookup trims whitespace and is
// case-insensitive.
func (s *CatalogService) GetPromo(ctx context.Context, code string) (*domain.PromoCode, error) {
	return s.promoRepo.GetByCode(ctx, NormalizePromoCode(code))
}

// NormalizePromoCode trims whitespace and uppercases a promo code.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// defaultPlans are seeded at startup so a fresh deployment can quote
// prices immediately.
func defaultPlans() []*domain.PricingPlan {
	return []*domain.PricingPlan{
		{
			Name:            "glad-go",
			DisplayName:     "GladGo",
			VehicleType:     "sedan",
			BaseFare:        2.00,
			PerDistanceRate: 0.40,
			PerTimeRate:     0.10,
			MinimumFare:     5.00,
			CancellationFee: 2.00,
			BookingFee:      0.50,
			SurgeMultiplier: 1.5,
			Active:          true,
		},
		{
			Name:            "glad-premium",
			DisplayName:     "GladPremium",
			VehicleType:     "luxury",
			BaseFare:        4.00,
			PerDistanceRate: 0.90,
			PerTimeRate:     0.25,
			MinimumFare:     9.00,
			CancellationFee: 4.00,
			BookingFee:      1.00,
			SurgeMultiplier: 1.75,
			Active:          true,
		},
		{
			Name:            "glad-xl",
			DisplayName:     "GladXL",
			VehicleType:     "suv",
			BaseFare:        3.00,
			PerDistanceRate: 0.65,
			PerTimeRate:     0.15,
			MinimumFare:     7.00,
			CancellationFee: 3.00,
			BookingFee:      0.75,
			SurgeMultiplier: 1.5,
			Active:          true,
		},
	}
}

// EnsureDefaultPlans upserts the default plans by unique name. Calling
// it twice must not duplicate plans.
func (s *CatalogService) EnsureDefaultPlans(ctx context.Context) error {
	for _, plan := range defaultPlans() {
		if err := s.planRepo.Upsert(ctx, plan); err != nil {
			return err
		}
		if s.cacheStore != nil {
			_ = s.cacheStore.InvalidatePlan(ctx, plan.Name)
		}
	}
	return nil
}

func cachedToPlan(c *redis.CachedPlan) *domain.PricingPlan {
	return &domain.PricingPlan{
		Name:            c.Name,
		DisplayName:     c.DisplayName,
		VehicleType:     c.VehicleType,
		BaseFare:        c.BaseFare,
		PerDistanceRate: c.PerDistanceRate,
		PerTimeRate:     c.PerTimeRate,
		MinimumFare:     c.MinimumFare,
		CancellationFee: c.CancellationFee,
		BookingFee:      c.BookingFee,
		SurgeMultiplier: c.SurgeMultiplier,
		Active:          c.Active,
	}
}

func planToCached(p *domain.PricingPlan) *redis.CachedPlan {
	return &redis.CachedPlan{
		Name:            p.Name,
		DisplayName:     p.DisplayName,
		VehicleType:     p.VehicleType,
		BaseFare:        p.BaseFare,
		PerDistanceRate: p.PerDistanceRate,
		PerTimeRate:     p.PerTimeRate,
		MinimumFare:     p.MinimumFare,
		CancellationFee: p.CancellationFee,
		BookingFee:      p.BookingFee,
		SurgeMultiplier: p.SurgeMultiplier,
		Active:          p.Active,
	}
}
