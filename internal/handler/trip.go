package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// CreateTripRequest is the HTTP request body for requesting a trip.
type CreateTripRequest struct {
	RiderID            string  `json:"rider_id" binding:"required"`
	PickupAddress      string  `json:"pickup_address" binding:"required"`
	PickupLat          float64 `json:"pickup_lat"`
	PickupLng          float64 `json:"pickup_lng"`
	DestinationAddress string  `json:"destination_address" binding:"required"`
	DestinationLat     float64 `json:"destination_lat"`
	DestinationLng     float64 `json:"destination_lng"`
	PlanName           string  `json:"plan_name" binding:"required"`
	DistanceKm         float64 `json:"distance_km"`
	DurationMin        float64 `json:"duration_min"`
	PromoCode          string  `json:"promo_code"`
}

// MatchTripRequest is the HTTP request body for a driver accepting a trip.
type MatchTripRequest struct {
	DriverID  string `json:"driver_id" binding:"required"`
	VehicleID string `json:"vehicle_id" binding:"required"`
}

// CancelTripRequest is the HTTP request body for cancelling a trip.
type CancelTripRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}

// UpdateTripStatusRequest is the HTTP request body for progressing a trip.
type UpdateTripStatusRequest struct {
	Status     string  `json:"status" binding:"required"`
	FinalPrice float64 `json:"final_price"`
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	TripID             string  `json:"trip_id"`
	RiderID            string  `json:"rider_id"`
	DriverID           string  `json:"driver_id,omitempty"`
	VehicleID          string  `json:"vehicle_id,omitempty"`
	PickupAddress      string  `json:"pickup_address"`
	DestinationAddress string  `json:"destination_address"`
	PlanName           string  `json:"plan_name"`
	PromoCode          string  `json:"promo_code,omitempty"`
	Status             string  `json:"status"`
	CancelReason       string  `json:"cancel_reason,omitempty"`
	EstimatedPrice     float64 `json:"estimated_price"`
	FinalPrice         float64 `json:"final_price,omitempty"`
	DistanceKm         float64 `json:"distance_km"`
	DurationMin        float64 `json:"duration_min"`
	RequestedAt        string  `json:"requested_at"`
	MatchedAt          string  `json:"matched_at,omitempty"`
	StartedAt          string  `json:"started_at,omitempty"`
	CompletedAt        string  `json:"completed_at,omitempty"`
	CancelledAt        string  `json:"cancelled_at,omitempty"`
}

// CreateTripResponse is the HTTP response for trip creation: the trip
// plus the quote that priced it.
type CreateTripResponse struct {
	Trip  TripResponse  `json:"trip"`
	Quote QuoteResponse `json:"quote"`
}

func tripToResponse(trip *domain.Trip) TripResponse {
	r := TripResponse{
		TripID:             trip.ID,
		RiderID:            trip.RiderID,
		DriverID:           trip.DriverID,
		VehicleID:          trip.VehicleID,
		PickupAddress:      trip.PickupAddress,
		DestinationAddress: trip.DestinationAddress,
		PlanName:           trip.PlanName,
		PromoCode:          trip.PromoCode,
		Status:             string(trip.Status),
		CancelReason:       string(trip.CancelReason),
		EstimatedPrice:     trip.EstimatedPrice,
		FinalPrice:         trip.FinalPrice,
		DistanceKm:         trip.DistanceKm,
		DurationMin:        trip.DurationMin,
		RequestedAt:        trip.RequestedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if !trip.MatchedAt.IsZero() {
		r.MatchedAt = trip.MatchedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if !trip.StartedAt.IsZero() {
		r.StartedAt = trip.StartedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if !trip.CompletedAt.IsZero() {
		r.CompletedAt = trip.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if !trip.CancelledAt.IsZero() {
		r.CancelledAt = trip.CancelledAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return r
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.tripService.Create(c.Request.Context(), service.CreateTripRequest{
		RiderID:            req.RiderID,
		PickupAddress:      req.PickupAddress,
		PickupLat:          req.PickupLat,
		PickupLng:          req.PickupLng,
		DestinationAddress: req.DestinationAddress,
		DestinationLat:     req.DestinationLat,
		DestinationLng:     req.DestinationLng,
		PlanName:           req.PlanName,
		DistanceKm:         req.DistanceKm,
		DurationMin:        req.DurationMin,
		PromoCode:          req.PromoCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateTripResponse{
		Trip:  tripToResponse(result.Trip),
		Quote: quoteToResponse(result.Quote),
	})
}

// MatchTrip handles POST /v1/trips/:id/match
func (h *TripHandler) MatchTrip(c *gin.Context) {
	var req MatchTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	trip, err := h.tripService.Match(c.Request.Context(), service.MatchRequest{
		TripID:    c.Param("id"),
		DriverID:  req.DriverID,
		VehicleID: req.VehicleID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripToResponse(trip))
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	var req CancelTripRequest
	// An empty body means a plain user cancel.
	_ = c.ShouldBindJSON(&req)

	trip, err := h.tripService.Cancel(c.Request.Context(), service.CancelRequest{
		TripID:  c.Param("id"),
		ActorID: req.ActorID,
		Reason:  domain.CancelReason(req.Reason),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripToResponse(trip))
}

// UpdateStatus handles PATCH /v1/trips/:id/status
func (h *TripHandler) UpdateStatus(c *gin.Context) {
	var req UpdateTripStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	tripID := c.Param("id")
	ctx := c.Request.Context()

	var (
		trip *domain.Trip
		err  error
	)
	switch domain.TripStatus(req.Status) {
	case domain.TripStatusPickup:
		trip, err = h.tripService.BeginPickupWait(ctx, tripID)
	case domain.TripStatusInProgress:
		trip, err = h.tripService.StartTrip(ctx, tripID)
	case domain.TripStatusCompleted:
		trip, err = h.tripService.Complete(ctx, tripID, req.FinalPrice)
	default:
		respondError(c, service.ErrInvalidStatus)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripToResponse(trip))
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripToResponse(trip))
}

// GetActiveTrip handles GET /v1/riders/:id/trips/active
func (h *TripHandler) GetActiveTrip(c *gin.Context) {
	trip, err := h.tripService.GetActiveTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if trip == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no active trip"})
		return
	}

	respondJSON(c, http.StatusOK, tripToResponse(trip))
}
