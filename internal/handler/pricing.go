package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/service"
)

// PricingHandler handles HTTP requests for price quotes and the plan
// catalog.
type PricingHandler struct {
	pricingService *service.PricingService
	catalogService *service.CatalogService
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(pricingService *service.PricingService, catalogService *service.CatalogService) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
		catalogService: catalogService,
	}
}

// CalculateRequest is the HTTP request body for a price quote.
type CalculateRequest struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
	PlanName    string  `json:"plan_name" binding:"required"`
	PickupTime  string  `json:"pickup_time"`
	PromoCode   string  `json:"promo_code"`
	UserID      string  `json:"user_id"`
}

// AdjustmentResponse is one line of a quote breakdown.
type AdjustmentResponse struct {
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// BreakdownResponse itemizes a quote's total.
type BreakdownResponse struct {
	BaseFare       float64 `json:"base_fare"`
	DistanceCharge float64 `json:"distance_charge"`
	TimeCharge     float64 `json:"time_charge"`
	SurgeFee       float64 `json:"surge_fee,omitempty"`
	BookingFee     float64 `json:"booking_fee,omitempty"`
	Discount       float64 `json:"discount,omitempty"`
	MinimumFareAdj float64 `json:"minimum_fare_adjustment,omitempty"`
	Total          float64 `json:"total"`
}

// QuoteResponse is the HTTP response for a price calculation.
type QuoteResponse struct {
	EstimatedPrice    float64              `json:"estimated_price"`
	EstimatedDuration float64              `json:"estimated_duration_min"`
	Breakdown         BreakdownResponse    `json:"breakdown"`
	Adjustments       []AdjustmentResponse `json:"adjustments"`
	PromoApplied      bool                 `json:"promo_applied"`
	PromoReason       string               `json:"promo_reason,omitempty"`
}

// PlanResponse is the HTTP representation of a pricing plan.
type PlanResponse struct {
	Name            string  `json:"name"`
	DisplayName     string  `json:"display_name"`
	VehicleType     string  `json:"vehicle_type"`
	BaseFare        float64 `json:"base_fare"`
	PerDistanceRate float64 `json:"per_distance_rate"`
	PerTimeRate     float64 `json:"per_time_rate"`
	MinimumFare     float64 `json:"minimum_fare"`
	CancellationFee float64 `json:"cancellation_fee"`
	BookingFee      float64 `json:"booking_fee"`
	SurgeMultiplier float64 `json:"surge_multiplier"`
}

// ValidatePromoRequest is the HTTP request body for promo validation.
type ValidatePromoRequest struct {
	Code      string  `json:"code" binding:"required"`
	UserID    string  `json:"user_id"`
	TripValue float64 `json:"trip_value"`
}

// ValidatePromoResponse is the HTTP response for promo validation.
type ValidatePromoResponse struct {
	Valid    bool    `json:"valid"`
	Discount float64 `json:"discount,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

func quoteToResponse(quote *domain.Quote) QuoteResponse {
	resp := QuoteResponse{
		EstimatedPrice:    quote.EstimatedPrice,
		EstimatedDuration: quote.EstimatedDuration,
		Breakdown: BreakdownResponse{
			BaseFare:       quote.Breakdown.BaseFare,
			DistanceCharge: quote.Breakdown.DistanceCharge,
			TimeCharge:     quote.Breakdown.TimeCharge,
			SurgeFee:       quote.Breakdown.SurgeFee,
			BookingFee:     quote.Breakdown.BookingFee,
			Discount:       quote.Breakdown.Discount,
			MinimumFareAdj: quote.Breakdown.MinimumFareAdj,
			Total:          quote.Breakdown.Total,
		},
		PromoApplied: quote.PromoApplied,
		PromoReason:  quote.PromoReason,
	}
	for _, adj := range quote.Adjustments {
		resp.Adjustments = append(resp.Adjustments, AdjustmentResponse{
			Type:        string(adj.Type),
			Amount:      adj.Amount,
			Description: adj.Description,
		})
	}
	return resp
}

// Calculate handles POST /v1/pricing/calculate
func (h *PricingHandler) Calculate(c *gin.Context) {
	var req CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	var pickupTime time.Time
	if req.PickupTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.PickupTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid pickup_time, expected RFC3339"})
			return
		}
		pickupTime = parsed
	}

	quote, err := h.pricingService.Calculate(c.Request.Context(), service.CalculateRequest{
		DistanceKm:  req.DistanceKm,
		DurationMin: req.DurationMin,
		PlanName:    req.PlanName,
		PickupTime:  pickupTime,
		PromoCode:   req.PromoCode,
		UserID:      req.UserID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, quoteToResponse(quote))
}

// ListPlans handles GET /v1/pricing/plans
func (h *PricingHandler) ListPlans(c *gin.Context) {
	plans, err := h.catalogService.ListActivePlans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]PlanResponse, 0, len(plans))
	for _, plan := range plans {
		response = append(response, PlanResponse{
			Name:            plan.Name,
			DisplayName:     plan.DisplayName,
			VehicleType:     plan.VehicleType,
			BaseFare:        plan.BaseFare,
			PerDistanceRate: plan.PerDistanceRate,
			PerTimeRate:     plan.PerTimeRate,
			MinimumFare:     plan.MinimumFare,
			CancellationFee: plan.CancellationFee,
			BookingFee:      plan.BookingFee,
			SurgeMultiplier: plan.SurgeMultiplier,
		})
	}

	respondJSON(c, http.StatusOK, response)
}

// ValidatePromo handles POST /v1/pricing/promos/validate
func (h *PricingHandler) ValidatePromo(c *gin.Context) {
	var req ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	validation, err := h.pricingService.ValidatePromo(c.Request.Context(), req.Code, req.UserID, req.TripValue)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ValidatePromoResponse{
		Valid:    validation.Valid,
		Discount: validation.Discount,
		Reason:   validation.Reason,
	})
}
