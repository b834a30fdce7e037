package postgres

import (
	"context"
	"database/sql"
)

// EnsureSchema creates the tables and indexes if they do not exist.
// Safe to run on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pricing_plans (
			name              TEXT PRIMARY KEY,
			display_name      TEXT NOT NULL,
			vehicle_type      TEXT NOT NULL,
			base_fare         DOUBLE PRECISION NOT NULL,
			per_distance_rate DOUBLE PRECISION NOT NULL,
			per_time_rate     DOUBLE PRECISION NOT NULL,
			minimum_fare      DOUBLE PRECISION NOT NULL,
			cancellation_fee  DOUBLE PRECISION NOT NULL DEFAULT 0,
			booking_fee       DOUBLE PRECISION NOT NULL DEFAULT 0,
			surge_multiplier  DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			active            BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE TABLE IF NOT EXISTS promo_codes (
			code            TEXT PRIMARY KEY,
			discount_type   TEXT NOT NULL,
			discount_value  DOUBLE PRECISION NOT NULL,
			min_trip_value  DOUBLE PRECISION NOT NULL DEFAULT 0,
			usage_limit     INTEGER NOT NULL DEFAULT 0,
			usage_count     INTEGER NOT NULL DEFAULT 0,
			per_user_limit  INTEGER NOT NULL DEFAULT 0,
			expires_at      TIMESTAMPTZ,
			active          BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE TABLE IF NOT EXISTS promo_code_uses (
			id       BIGSERIAL PRIMARY KEY,
			code     TEXT NOT NULL REFERENCES promo_codes(code),
			user_id  TEXT NOT NULL,
			trip_id  TEXT NOT NULL,
			discount DOUBLE PRECISION NOT NULL,
			used_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS drivers (
			id     TEXT PRIMARY KEY,
			name   TEXT NOT NULL,
			phone  TEXT NOT NULL,
			status TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vehicles (
			id        TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL REFERENCES drivers(id),
			make      TEXT NOT NULL,
			model     TEXT NOT NULL,
			plate     TEXT NOT NULL,
			type      TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trips (
			id                  TEXT PRIMARY KEY,
			rider_id            TEXT NOT NULL,
			driver_id           TEXT,
			vehicle_id          TEXT,
			pickup_address      TEXT NOT NULL,
			pickup_lat          DOUBLE PRECISION NOT NULL,
			pickup_lng          DOUBLE PRECISION NOT NULL,
			destination_address TEXT NOT NULL,
			destination_lat     DOUBLE PRECISION NOT NULL,
			destination_lng     DOUBLE PRECISION NOT NULL,
			plan_name           TEXT NOT NULL,
			promo_code          TEXT,
			estimated_price     DOUBLE PRECISION NOT NULL,
			final_price         DOUBLE PRECISION,
			distance_km         DOUBLE PRECISION NOT NULL,
			duration_min        DOUBLE PRECISION NOT NULL,
			status              TEXT NOT NULL,
			cancel_reason       TEXT,
			requested_at        TIMESTAMPTZ NOT NULL,
			matched_at          TIMESTAMPTZ,
			started_at          TIMESTAMPTZ,
			completed_at        TIMESTAMPTZ,
			cancelled_at        TIMESTAMPTZ
		)`,
		// Backstop for the one-active-trip-per-rider rule: the insert
		// itself fails if a concurrent create slipped past the read check.
		`CREATE UNIQUE INDEX IF NOT EXISTS trips_one_active_per_rider
			ON trips (rider_id)
			WHERE status IN ('requested', 'matched', 'pickup', 'in_progress')`,
		`CREATE INDEX IF NOT EXISTS trips_driver_active
			ON trips (driver_id)
			WHERE status IN ('matched', 'pickup', 'in_progress')`,
		`CREATE INDEX IF NOT EXISTS trips_stale_requested
			ON trips (requested_at)
			WHERE status = 'requested'`,
		`CREATE TABLE IF NOT EXISTS ratings (
			id           TEXT PRIMARY KEY,
			trip_id      TEXT NOT NULL REFERENCES trips(id),
			from_user_id TEXT NOT NULL,
			to_user_id   TEXT NOT NULL,
			rating       INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			comment      TEXT,
			created_at   TIMESTAMPTZ NOT NULL,
			UNIQUE (trip_id, from_user_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
