package domain

import "time"

// Rating is a 1-5 rating left by one trip party about the other.
// Immutable once created; creating a rating is the terminal event that
// also forces the trip to completed.
type Rating struct {
	ID         string
	TripID     string
	FromUserID string
	ToUserID   string
	Rating     int
	Comment    string
	CreatedAt  time.Time
}
