package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// ExcludedStatuses are appointment statuses that do not occupy the boat.
var ExcludedStatuses = []string{"cancelled", "rejected"}

// GetBookedAppointments returns appointments starting within [start, end]
// whose status is not excluded, ordered by start time.
func (db *DB) GetBookedAppointments(ctx context.Context, start, end time.Time, excluded []string) ([]Appointment, error) {
	query := `
		SELECT id, customer_name, customer_email, service_name, starts_at, ends_at, status
		FROM booknetic_appointments
		WHERE starts_at >= ? AND starts_at <= ?`
	args := []any{start.Unix(), end.Unix()}
	if len(excluded) > 0 {
		query += ` AND status NOT IN (` + placeholders(len(excluded)) + `)`
		for _, s := range excluded {
			args = append(args, s)
		}
	}
	query += ` ORDER BY starts_at`

	began := time.Now()
	rows, err := db.query(ctx, query, args...)
	if err != nil {
		slog.ErrorContext(ctx, "failed to query appointments",
			"start", start,
			"end", end,
			"error", err)
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Appointment
	for rows.Next() {
		var (
			a        Appointment
			startsAt int64
			endsAt   sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.CustomerName, &a.CustomerEmail, &a.ServiceName, &startsAt, &endsAt, &a.Status); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		a.StartsAt = time.Unix(startsAt, 0)
		if endsAt.Valid {
			a.EndsAt = time.Unix(endsAt.Int64, 0)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	warnSlow(ctx, "GetBookedAppointments", began, "count", len(out))
	return out, nil
}

// IsSlotFree is the authoritative single-slot check. A candidate trip
// [start-buffer, start+duration+buffer] is free when no non-excluded
// appointment's buffered interval overlaps it. Appointments are assumed to
// last duration, matching the bulk availability computation. Appointments
// whose status is in excluded do not occupy the boat.
func (db *DB) IsSlotFree(ctx context.Context, start time.Time, duration, buffer time.Duration, excluded []string) (bool, error) {
	// Overlap of [s-b, s+d+b] with [c-b, c+d+b] reduces to
	// c-d-2b < s < c+d+2b.
	span := duration + 2*buffer
	lower := start.Add(-span).Unix()
	upper := start.Add(span).Unix()

	query := `
		SELECT COUNT(*) FROM booknetic_appointments
		WHERE starts_at > ? AND starts_at < ?`
	args := []any{lower, upper}
	if len(excluded) > 0 {
		query += ` AND status NOT IN (` + placeholders(len(excluded)) + `)`
		for _, s := range excluded {
			args = append(args, s)
		}
	}

	var count int
	if err := db.queryRow(ctx, query, args...).Scan(&count); err != nil {
		slog.ErrorContext(ctx, "failed to check slot",
			"start", start,
			"error", err)
		return false, fmt.Errorf("check slot: %w", err)
	}
	return count == 0, nil
}

// SaveAppointment records a booking. The booking system normally owns this
// table; the method exists for imports and tests.
func (db *DB) SaveAppointment(ctx context.Context, a *Appointment) error {
	query := `
		INSERT INTO booknetic_appointments (customer_name, customer_email, service_name, starts_at, ends_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	var endsAt sql.NullInt64
	if !a.EndsAt.IsZero() {
		endsAt = sql.NullInt64{Int64: a.EndsAt.Unix(), Valid: true}
	}
	if _, err := db.exec(ctx, query, a.CustomerName, a.CustomerEmail, a.ServiceName, a.StartsAt.Unix(), endsAt, a.Status); err != nil {
		return fmt.Errorf("save appointment: %w", err)
	}
	return nil
}
