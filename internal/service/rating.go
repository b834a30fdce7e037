package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/repository"
)

// RatingService records trip ratings. Creating a rating is the terminal
// event for a trip: a trip still underway is forced to completed first.
type RatingService struct {
	ratingRepo  repository.RatingRepository
	tripService *TripService
}

// NewRatingService creates a new RatingService.
func NewRatingService(ratingRepo repository.RatingRepository, tripService *TripService) *RatingService {
	return &RatingService{
		ratingRepo:  ratingRepo,
		tripService: tripService,
	}
}

// CreateRatingRequest contains the parameters for rating a trip.
type CreateRatingRequest struct {
	TripID     string
	FromUserID string
	ToUserID   string
	Rating     int
	Comment    string
}

// Create records a rating. Ratings are immutable; a second rating by
// the same user for the same trip is rejected. A cancelled trip cannot
// be rated, and a trip that never started cannot be either.
func (s *RatingService) Create(ctx context.Context, req CreateRatingRequest) (*domain.Rating, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	trip, err := s.tripService.GetTrip(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	switch trip.Status {
	case domain.TripStatusCompleted:
		// Already terminal; nothing to force.
	case domain.TripStatusInProgress:
		// Rating is the terminal event: force completion at the
		// estimated price. A concurrent explicit complete is fine; the
		// conditional update makes one of the two a no-op.
		if _, err := s.tripService.Complete(ctx, trip.ID, 0); err != nil &&
			!errors.Is(err, ErrAlreadyTerminal) {
			return nil, err
		}
	default:
		return nil, ErrTripNotRateable
	}

	rating := &domain.Rating{
		ID:         uuid.New().String(),
		TripID:     req.TripID,
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		CreatedAt:  time.Now(),
	}

	if err := s.ratingRepo.Create(ctx, rating); err != nil {
		return nil, err
	}
	return rating, nil
}

// ListByTrip retrieves all ratings for a trip.
func (s *RatingService) ListByTrip(ctx context.Context, tripID string) ([]*domain.Rating, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	return s.ratingRepo.GetByTripID(ctx, tripID)
}
