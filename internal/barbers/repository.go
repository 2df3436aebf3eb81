package barbers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barberdesk/barberdesk/internal/reporting"
)

var ErrNotFound = errors.New("barber not found")

// Repository provides PostgreSQL backed persistence for the roster and
// implements reporting.BarberRoster.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns every roster entry as a reporting reference, ordered by name
// for stable listings.
func (r *Repository) List(ctx context.Context) ([]reporting.BarberRef, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, active FROM barbers ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []reporting.BarberRef
	for rows.Next() {
		var ref reporting.BarberRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Active); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

// Get loads one barber.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Barber, error) {
	var barber Barber
	err := r.pool.QueryRow(ctx, `SELECT id, name, active, created_at FROM barbers WHERE id = $1`, id).
		Scan(&barber.ID, &barber.Name, &barber.Active, &barber.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Barber{}, ErrNotFound
		}
		return Barber{}, err
	}
	return barber, nil
}

// Create inserts a roster entry.
func (r *Repository) Create(ctx context.Context, barber Barber) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO barbers (id, name, active, created_at)
		VALUES ($1, $2, $3, now())`,
		barber.ID, barber.Name, barber.Active)
	return err
}

// SetActive flips the activity flag without touching history.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE barbers SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
