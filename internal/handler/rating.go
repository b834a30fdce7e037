package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/service"
)

// RatingHandler handles HTTP requests for trip ratings.
type RatingHandler struct {
	ratingService *service.RatingService
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(ratingService *service.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: ratingService}
}

// CreateRatingRequest is the HTTP request body for rating a trip.
type CreateRatingRequest struct {
	FromUserID string `json:"from_user_id" binding:"required"`
	ToUserID   string `json:"to_user_id" binding:"required"`
	Rating     int    `json:"rating" binding:"required"`
	Comment    string `json:"comment"`
}

// RatingResponse is the HTTP representation of a rating.
type RatingResponse struct {
	ID         string `json:"id"`
	TripID     string `json:"trip_id"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func ratingToResponse(rating *domain.Rating) RatingResponse {
	return RatingResponse{
		ID:         rating.ID,
		TripID:     rating.TripID,
		FromUserID: rating.FromUserID,
		ToUserID:   rating.ToUserID,
		Rating:     rating.Rating,
		Comment:    rating.Comment,
		CreatedAt:  rating.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// CreateRating handles POST /v1/trips/:id/ratings
func (h *RatingHandler) CreateRating(c *gin.Context) {
	var req CreateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	rating, err := h.ratingService.Create(c.Request.Context(), service.CreateRatingRequest{
		TripID:     c.Param("id"),
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, ratingToResponse(rating))
}

// ListRatings handles GET /v1/trips/:id/ratings
func (h *RatingHandler) ListRatings(c *gin.Context) {
	ratings, err := h.ratingService.ListByTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RatingResponse, 0, len(ratings))
	for _, rating := range ratings {
		response = append(response, ratingToResponse(rating))
	}

	respondJSON(c, http.StatusOK, response)
}
