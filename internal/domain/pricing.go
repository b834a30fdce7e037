package domain

import "time"

// PricingPlan is a named commercial tier. Plans are seeded at startup
// and read-only during trip pricing.
type PricingPlan struct {
	Name            string
	DisplayName     string
	VehicleType     string
	BaseFare        float64
	PerDistanceRate float64 // per kilometre
	PerTimeRate     float64 // per minute
	MinimumFare     float64
	CancellationFee float64
	BookingFee      float64
	SurgeMultiplier float64
	Active          bool
}

// DiscountType distinguishes flat and percentage promo discounts.
type DiscountType string

const (
	DiscountTypeFlat       DiscountType = "flat"
	DiscountTypePercentage DiscountType = "percentage"
)

// PromoCode is an optional discount applied at calculation time.
// Codes are stored uppercase; lookup is case-insensitive.
type PromoCode struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue float64
	MinTripValue  float64
	UsageLimit    int // 0 means unlimited
	UsageCount    int
	PerUserLimit  int // 0 means unlimited
	ExpiresAt     time.Time
	Active        bool
}

// Expired reports whether the code has expired as of now.
func (p *PromoCode) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// AdjustmentType identifies a line in a price breakdown.
type AdjustmentType string

const (
	AdjustmentBaseFare    AdjustmentType = "base_fare"
	AdjustmentDistance    AdjustmentType = "distance"
	AdjustmentTime        AdjustmentType = "time"
	AdjustmentSurge       AdjustmentType = "surge"
	AdjustmentBookingFee  AdjustmentType = "booking_fee"
	AdjustmentPromo       AdjustmentType = "promo_discount"
	AdjustmentMinimumFare AdjustmentType = "minimum_fare"
)

// Adjustment is one signed contribution to a trip's total.
type Adjustment struct {
	Type        AdjustmentType
	Amount      float64 // negative for discounts
	Description string
}

// PriceBreakdown explains every contribution to a computed total. Base
// components are recorded unmultiplied; surge is a distinct addend so a
// reader can audit exactly what surge added.
type PriceBreakdown struct {
	BaseFare       float64
	DistanceCharge float64
	TimeCharge     float64
	SurgeFee       float64
	BookingFee     float64
	Discount       float64
	MinimumFareAdj float64
	Total          float64
}

// Quote is the result of a price calculation. Derived, never persisted
// as its own entity.
type Quote struct {
	EstimatedPrice    float64
	EstimatedDuration float64 // minutes
	Breakdown         PriceBreakdown
	Adjustments       []Adjustment
	PromoApplied      bool
	PromoReason       string // set when a supplied code was rejected
}
