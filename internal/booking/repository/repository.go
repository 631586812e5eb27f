// Package repository persists availability configuration and bookings.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadfunnel_backend/platform/apperr"
)

var ErrNotFound = errors.New("booking not found")

// AvailabilityRule opens a weekly recurring window. Minutes are measured from
// local midnight in the configured booking timezone.
type AvailabilityRule struct {
	ID          uuid.UUID
	Weekday     int
	StartMinute int
	EndMinute   int
}

// AvailabilityOverride replaces the rule-derived window for a single day.
// IsAvailable false blocks the day entirely.
type AvailabilityOverride struct {
	ID          uuid.UUID
	Day         time.Time
	IsAvailable bool
	StartMinute *int
	EndMinute   *int
}

type Booking struct {
	ID              uuid.UUID
	LeadID          *uuid.UUID
	Name            string
	Email           string
	Phone           string
	MeetingType     string
	DurationMinutes int
	StartTime       time.Time
	EndTime         time.Time
	Timezone        string
	Notes           string
	Status          string
	CreatedAt       time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRules returns every recurring availability rule.
func (r *Repository) ListRules(ctx context.Context) ([]AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, weekday, start_minute, end_minute
		FROM availability_rules
		ORDER BY weekday, start_minute
	`)
	if err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	defer rows.Close()

	rules := make([]AvailabilityRule, 0)
	for rows.Next() {
		var rule AvailabilityRule
		if err := rows.Scan(&rule.ID, &rule.Weekday, &rule.StartMinute, &rule.EndMinute); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// GetOverride returns the override for a day, or nil when the day has none.
func (r *Repository) GetOverride(ctx context.Context, day time.Time) (*AvailabilityOverride, error) {
	var o AvailabilityOverride
	err := r.pool.QueryRow(ctx, `
		SELECT id, day, is_available, start_minute, end_minute
		FROM availability_overrides
		WHERE day = $1
	`, day.Format("2006-01-02")).Scan(&o.ID, &o.Day, &o.IsAvailable, &o.StartMinute, &o.EndMinute)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get availability override: %w", err)
	}
	return &o, nil
}

// ListBookingsBetween returns confirmed bookings overlapping the window.
func (r *Repository) ListBookingsBetween(ctx context.Context, from, to time.Time) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, name, email, phone, meeting_type, duration_minutes,
			start_time, end_time, timezone, notes, status, created_at
		FROM bookings
		WHERE status = 'confirmed' AND start_time < $2 AND end_time > $1
		ORDER BY start_time
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]Booking, 0)
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.LeadID, &b.Name, &b.Email, &b.Phone, &b.MeetingType, &b.DurationMinutes,
			&b.StartTime, &b.EndTime, &b.Timezone, &b.Notes, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// CreateBooking inserts a booking after re-checking the window for overlaps
// inside the same transaction. A concurrent claim of the slot surfaces as a
// conflict, never a double booking.
func (r *Repository) CreateBooking(ctx context.Context, b Booking) (Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Booking{}, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// FOR UPDATE locks any overlapping rows so two transactions cannot both
	// pass the check and insert.
	rows, err := tx.Query(ctx, `
		SELECT id
		FROM bookings
		WHERE status = 'confirmed' AND start_time < $2 AND end_time > $1
		FOR UPDATE
	`, b.StartTime, b.EndTime)
	if err != nil {
		return Booking{}, fmt.Errorf("check booking overlap: %w", err)
	}
	clash := rows.Next()
	rows.Close()
	if err := rows.Err(); err != nil {
		return Booking{}, fmt.Errorf("check booking overlap: %w", err)
	}
	if clash {
		return Booking{}, apperr.Conflict("the selected slot was just taken")
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (id, lead_id, name, email, phone, meeting_type, duration_minutes,
			start_time, end_time, timezone, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'confirmed')
		RETURNING created_at
	`, b.ID, b.LeadID, b.Name, b.Email, b.Phone, b.MeetingType, b.DurationMinutes,
		b.StartTime, b.EndTime, b.Timezone, b.Notes).Scan(&b.CreatedAt)
	if err != nil {
		return Booking{}, fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Booking{}, fmt.Errorf("commit booking tx: %w", err)
	}
	b.Status = "confirmed"
	return b, nil
}

// GetBooking loads one booking by ID.
func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (Booking, error) {
	var b Booking
	err := r.pool.QueryRow(ctx, `
		SELECT id, lead_id, name, email, phone, meeting_type, duration_minutes,
			start_time, end_time, timezone, notes, status, created_at
		FROM bookings
		WHERE id = $1
	`, id).Scan(&b.ID, &b.LeadID, &b.Name, &b.Email, &b.Phone, &b.MeetingType, &b.DurationMinutes,
		&b.StartTime, &b.EndTime, &b.Timezone, &b.Notes, &b.Status, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	if err != nil {
		return Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListUpcomingForReminder returns confirmed bookings starting inside the
// reminder window.
func (r *Repository) ListUpcomingForReminder(ctx context.Context, from, to time.Time) ([]Booking, error) {
	return r.ListBookingsBetween(ctx, from, to)
}
