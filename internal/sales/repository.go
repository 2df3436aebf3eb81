package sales

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barberdesk/barberdesk/internal/reporting"
)

var (
	ErrNotFound      = errors.New("sale not found")
	ErrAlreadyExists = errors.New("sale already recorded")
)

// Repository provides PostgreSQL backed persistence for the sale stream and
// implements reporting.SaleSource.
type Repository struct {
	pool     *pgxpool.Pool
	timezone string
}

// NewRepository constructs a repository. timezone is the shop's IANA zone
// name, used to bucket occurrence instants into calendar dates in SQL.
func NewRepository(pool *pgxpool.Pool, timezone string) *Repository {
	return &Repository{pool: pool, timezone: timezone}
}

// Insert records a sale. Re-submitting an id already stored returns
// ErrAlreadyExists so POS clients can retry safely.
func (r *Repository) Insert(ctx context.Context, sale Sale) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sales (id, barber_id, kind, amount, quantity, occurred_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		sale.ID, sale.BarberID, string(sale.Kind), sale.Amount, sale.Quantity, sale.OccurredAt, string(sale.Status))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// UpdateStatus moves a sale to a new lifecycle status. Reporting is not
// adjusted retroactively: a cancelled or refunded sale simply stops being
// revenue-bearing from the next read onward.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE sales SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RevenueByBarber groups completed sales inside the window by barber, split
// into product and walk-in figures. Cancelled and refunded rows are excluded
// by the status predicate and therefore contribute exactly zero.
func (r *Repository) RevenueByBarber(ctx context.Context, window reporting.Window, barberID *uuid.UUID) (map[uuid.UUID]reporting.SaleFigures, error) {
	query := `
		SELECT barber_id,
		       COALESCE(SUM(amount) FILTER (WHERE kind = 'product'), 0),
		       COUNT(*) FILTER (WHERE kind = 'product'),
		       COALESCE(SUM(amount) FILTER (WHERE kind = 'walk_in'), 0),
		       COUNT(*) FILTER (WHERE kind = 'walk_in')
		FROM sales
		WHERE status = 'completed'`
	args := make([]interface{}, 0, 3)
	if !window.Unbounded {
		query += ` AND occurred_at BETWEEN $1 AND $2`
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

	figures := make(map[uuid.UUID]reporting.SaleFigures)
	for rows.Next() {
		var id uuid.UUID
		var fig reporting.SaleFigures
		if err := rows.Scan(&id, &fig.Product.Total, &fig.Product.Count, &fig.WalkIn.Total, &fig.WalkIn.Count); err != nil {
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
// least one completed sale, ascending.
func (r *Repository) ActiveDates(ctx context.Context, barberID *uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT to_char((occurred_at AT TIME ZONE $1)::date, 'YYYY-MM-DD') AS day
		FROM sales
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
