package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/repository"
)

// Peak windows: 07:00-09:00 and 17:00-19:00 local time, inclusive of
// the start minute, exclusive of the end.
const (
	morningPeakStart = 7
	morningPeakEnd   = 9
	eveningPeakStart = 17
	eveningPeakEnd   = 19
)

// minimumDurationMin is the floor for the derived duration estimate.
const minimumDurationMin = 5.0

// PricingService computes deterministic price breakdowns for trip
// requests against the catalog.
type PricingService struct {
	catalog *CatalogService
}

// NewPricingService creates a new PricingService.
func NewPricingService(catalog *CatalogService) *PricingService {
	return &PricingService{catalog: catalog}
}

// CalculateRequest contains the parameters for a price calculation.
type CalculateRequest struct {
	DistanceKm  float64
	DurationMin float64 // 0 means derive an estimate from distance
	PlanName    string
	PickupTime  time.Time // zero means now
	PromoCode   string    // optional
	UserID      string    // for per-user promo usage checks
}

// Calculate computes the price breakdown for a single trip request.
//
// Promo invalidity never fails the calculation: the quote degrades to
// no-discount and carries the rejection reason.
func (s *PricingService) Calculate(ctx context.Context, req CalculateRequest) (*domain.Quote, error) {
	if math.IsNaN(req.DistanceKm) || math.IsInf(req.DistanceKm, 0) || req.DistanceKm < 0 {
		return nil, ErrInvalidDistance
	}
	if math.IsNaN(req.DurationMin) || math.IsInf(req.DurationMin, 0) || req.DurationMin < 0 {
		return nil, ErrInvalidDuration
	}

	plan, err := s.catalog.GetPlan(ctx, req.PlanName)
	if err != nil {
		return nil, err
	}

	duration := req.DurationMin
	if duration == 0 {
		duration = EstimateDuration(req.DistanceKm)
	}

	pickupTime := req.PickupTime
	if pickupTime.IsZero() {
		pickupTime = time.Now()
	}

	quote := &domain.Quote{EstimatedDuration: duration}

	// Base components, recorded unmultiplied.
	baseFare := plan.BaseFare
	distanceCharge := req.DistanceKm * plan.PerDistanceRate
	timeCharge := duration * plan.PerTimeRate
	subtotal := baseFare + distanceCharge + timeCharge

	quote.Breakdown.BaseFare = baseFare
	quote.Breakdown.DistanceCharge = distanceCharge
	quote.Breakdown.TimeCharge = timeCharge
	quote.Adjustments = append(quote.Adjustments,
		domain.Adjustment{Type: domain.AdjustmentBaseFare, Amount: baseFare, Description: "base fare"},
		domain.Adjustment{Type: domain.AdjustmentDistance, Amount: distanceCharge, Description: fmt.Sprintf("distance %.1f km", req.DistanceKm)},
		domain.Adjustment{Type: domain.AdjustmentTime, Amount: timeCharge, Description: fmt.Sprintf("time %.0f min", duration)},
	)

	total := subtotal

	// Surge is a distinct addend over the unmultiplied subtotal, so the
	// breakdown shows exactly what surge added.
	if InPeakWindow(pickupTime) && plan.SurgeMultiplier > 1 {
		surgeFee := subtotal * (plan.SurgeMultiplier - 1)
		quote.Breakdown.SurgeFee = surgeFee
		quote.Adjustments = append(quote.Adjustments, domain.Adjustment{
			Type:        domain.AdjustmentSurge,
			Amount:      surgeFee,
			Description: fmt.Sprintf("peak time surge x%.2f", plan.SurgeMultiplier),
		})
		total += surgeFee
	}

	if plan.BookingFee != 0 {
		quote.Breakdown.BookingFee = plan.BookingFee
		quote.Adjustments = append(quote.Adjustments, domain.Adjustment{
			Type:        domain.AdjustmentBookingFee,
			Amount:      plan.BookingFee,
			Description: "booking fee",
		})
		total += plan.BookingFee
	}

	// Promo discount, capped so it never exceeds the subtotal plus fees.
	// The cap is applied before the minimum-fare floor.
	if req.PromoCode != "" {
		validation, err := s.ValidatePromo(ctx, req.PromoCode, req.UserID, total)
		if err != nil {
			return nil, err
		}
		if validation.Valid {
			discount := validation.Discount
			if discount > total {
				discount = total
			}
			quote.Breakdown.Discount = discount
			quote.PromoApplied = true
			quote.Adjustments = append(quote.Adjustments, domain.Adjustment{
				Type:        domain.AdjustmentPromo,
				Amount:      -discount,
				Description: "promo " + NormalizePromoCode(req.PromoCode),
			})
			total -= discount
		} else {
			quote.PromoReason = validation.Reason
		}
	}

	// Minimum-fare floor, itemized so the lines still sum to the total.
	if total < plan.MinimumFare {
		bump := plan.MinimumFare - total
		quote.Breakdown.MinimumFareAdj = bump
		quote.Adjustments = append(quote.Adjustments, domain.Adjustment{
			Type:        domain.AdjustmentMinimumFare,
			Amount:      bump,
			Description: fmt.Sprintf("minimum fare $%.2f applied", plan.MinimumFare),
		})
		total = plan.MinimumFare
	}

	total = RoundCurrency(total)
	quote.Breakdown.Total = total
	quote.EstimatedPrice = total
	return quote, nil
}

// PromoValidation is the result of validating a promo code.
type PromoValidation struct {
	Valid    bool
	Discount float64
	Reason   string
}

// ValidatePromo checks a promo code against its constraints and
// computes the discount it would grant on tripValue. The discount is
// not applied or persisted here; redeeming and incrementing usage is
// the trip-creation path's responsibility.
func (s *PricingService) ValidatePromo(ctx context.Context, code, userID string, tripValue float64) (*PromoValidation, error) {
	promo, err := s.catalog.GetPromo(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &PromoValidation{Reason: "code not found"}, nil
		}
		return nil, err
	}

	if !promo.Active {
		return &PromoValidation{Reason: "code not active"}, nil
	}
	if promo.Expired(time.Now()) {
		return &PromoValidation{Reason: "code expired"}, nil
	}
	if tripValue < promo.MinTripValue {
		return &PromoValidation{
			Reason: fmt.Sprintf("minimum trip value $%.2f required", promo.MinTripValue),
		}, nil
	}
	if promo.UsageLimit > 0 && promo.UsageCount >= promo.UsageLimit {
		return &PromoValidation{Reason: "usage limit reached"}, nil
	}

	if promo.PerUserLimit > 0 && userID != "" {
		userUses, err := s.catalog.promoRepo.CountUsesByUser(ctx, promo.Code, userID)
		if err != nil {
			return nil, err
		}
		if userUses >= promo.PerUserLimit {
			return &PromoValidation{Reason: "per-user usage limit reached"}, nil
		}
	}

	var discount float64
	switch promo.DiscountType {
	case domain.DiscountTypePercentage:
		discount = tripValue * promo.DiscountValue / 100
	default:
		discount = promo.DiscountValue
	}

	return &PromoValidation{Valid: true, Discount: discount}, nil
}

// EstimateDuration derives a minimum duration estimate in minutes from
// distance when the caller passes none: max(distance*2, 5).
func EstimateDuration(distanceKm float64) float64 {
	return math.Max(distanceKm*2, minimumDurationMin)
}

// InPeakWindow reports whether t falls in a surge window.
func InPeakWindow(t time.Time) bool {
	h := t.Hour()
	return (h >= morningPeakStart && h < morningPeakEnd) ||
		(h >= eveningPeakStart && h < eveningPeakEnd)
}

// RoundCurrency rounds to 2 decimal places, half away from zero, the
// standard half-up rounding for currency.
func RoundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}
