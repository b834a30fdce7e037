package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/jerrymcma/rideglad-sub000/internal/domain"
	"github.com/jerrymcma/rideglad-sub000/internal/repository"
)

// RatingRepository is a PostgreSQL implementation of repository.RatingRepository.
type RatingRepository struct {
	q Querier
}

// NewRatingRepository creates a new PostgreSQL rating repository.
func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{q: db}
}

// NewRatingRepositoryWithTx creates a rating repository using a transaction.
func NewRatingRepositoryWithTx(tx *sql.Tx) *RatingRepository {
	return &RatingRepository{q: tx}
}

// Create persists a new rating. The unique index on (trip_id, from_user_id)
// keeps ratings immutable and one-per-rater.
func (r *RatingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	query := `
		INSERT INTO ratings (id, trip_id, from_user_id, to_user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var comment sql.NullString
	if rating.Comment != "" {
		comment = sql.NullString{String: rating.Comment, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		rating.ID,
		rating.TripID,
		rating.FromUserID,
		rating.ToUserID,
		rating.Rating,
		comment,
		rating.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByTripID retrieves all ratings for a trip.
func (r *RatingRepository) GetByTripID(ctx context.Context, tripID string) ([]*domain.Rating, error) {
	query := `
		SELECT id, trip_id, from_user_id, to_user_id, rating, comment, created_at
		FROM ratings WHERE trip_id = $1 ORDER BY created_at
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []*domain.Rating
	for rows.Next() {
		var rating domain.Rating
		var comment sql.NullString
		if err := rows.Scan(
			&rating.ID,
			&rating.TripID,
			&rating.FromUserID,
			&rating.ToUserID,
			&rating.Rating,
			&comment,
			&rating.CreatedAt,
		); err != nil {
			return nil, err
		}
		rating.Comment = comment.String
		ratings = append(ratings, &rating)
	}
	return ratings, rows.Err()
}
