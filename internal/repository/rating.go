package repository

import (
	"context"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
)

// RatingRepository defines the persistence operations for ratings.
// Ratings are immutable: there is no update or delete.
type RatingRepository interface {
	// Create persists a new rating. Returns ErrDuplicate if the rater
	// has already rated this trip.
	Create(ctx context.Context, rating *domain.Rating) error

	// GetByTripID retrieves all ratings for a trip.
	GetByTripID(ctx context.Context, tripID string) ([]*domain.Rating, error)
}
