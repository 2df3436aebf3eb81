package appointments

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barberdesk/barberdesk/internal/reporting"
)

// Repository is the read-only pgx view of the appointment stream and
// implements reporting.AppointmentSource. Writes belong to the scheduling
// collaborator, not to this service.
type Repository struct {
	pool     *pgxpool.Pool
	timezone string
}

// NewRepository constructs a repository bound to the shop timezone.
func NewRepository(pool *pgxpool.Pool, timezone string) *Repository {
	return &Repository{pool: pool, timezone: timezone}
}

// RevenueByBarber groups completed appointments inside the window by barber,
// summing the denormalized price.
func (r *Repository) RevenueByBarber(ctx context.Context, window reporting.Window, barberID *uuid.UUID) (map[uuid.UUID]reporting.Figures, error) {
	query := `
		SELECT barber_id, COALESCE(SUM(price), 0), COUNT(*)
		FROM appointments
		WHERE status = 'completed'`
	args := make([]interface{}, 0, 3)
	if !window.Unbounded {
		query += ` AND scheduled_at BETWEEN $1 AND $2`
		args = append(args, window.Start, window.End)
	}
	if barberID != nil {
		query += ` AND barber_id = $` + strconv.Itoa(len(args)+1)
		args = append(args, *barberID)
	}
	query += ` GROUP BY barber_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	figures := make(map[uuid.UUID]reporting.Figures)
	for rows.Next() {
		var id uuid.UUID
		var fig reporting.Figures
		if err := rows.Scan(&id, &fig.Total, &fig.Count); err != nil {
			return nil, err
		}
		figures[id] = fig
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return figures, nil
}

// ActiveDates lists the distinct shop-timezone calendar dates carrying at
// least one completed appointment, ascending.
func (r *Repository) ActiveDates(ctx context.Context, barberID *uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT to_char((scheduled_at AT TIME ZONE $1)::date, 'YYYY-MM-DD') AS day
		FROM appointments
		WHERE status = 'completed'`
	args := []interface{}{r.timezone}
	if barberID != nil {
		query += ` AND barber_id = $2`
		args = append(args, *barberID)
	}
	query += ` ORDER BY day`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		dates = append(dates, day)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dates, nil
}
