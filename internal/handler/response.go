package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jerrymcma/rideglad-sub000/internal/repository"
	"github.com/jerrymcma/rideglad-sub000/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrPlanNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidVehicleID),
		errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidPickupLocation),
		errors.Is(err, service.ErrInvalidDestinationLocation),
		errors.Is(err, service.ErrInvalidDistance),
		errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidCancelReason):
		return http.StatusBadRequest

	// State conflicts: someone else won the race, refresh your view.
	case errors.Is(err, service.ErrAlreadyMatched),
		errors.Is(err, service.ErrAlreadyTerminal),
		errors.Is(err, service.ErrPromoExhausted),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict

	// Policy violations
	case errors.Is(err, service.ErrRiderHasActiveTrip),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrTripNotRateable):
		return http.StatusUnprocessableEntity

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
