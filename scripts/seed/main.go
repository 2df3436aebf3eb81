// Command seed provisions the barberdesk schema and a demo dataset.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/barberdesk/barberdesk/internal/app"
)

const schema = `
CREATE TABLE IF NOT EXISTS barbers (
	id uuid PRIMARY KEY,
	name text NOT NULL,
	active boolean NOT NULL DEFAULT true,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sales (
	id uuid PRIMARY KEY,
	barber_id uuid NOT NULL REFERENCES barbers(id),
	kind text NOT NULL CHECK (kind IN ('product', 'walk_in')),
	amount bigint NOT NULL CHECK (amount >= 0),
	quantity integer NOT NULL CHECK (quantity > 0),
	occurred_at timestamptz NOT NULL,
	status text NOT NULL CHECK (status IN ('completed', 'cancelled', 'refunded')),
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sales_occurred ON sales (occurred_at) WHERE status = 'completed';
CREATE INDEX IF NOT EXISTS idx_sales_barber ON sales (barber_id, occurred_at);

CREATE TABLE IF NOT EXISTS appointments (
	id uuid PRIMARY KEY,
	barber_id uuid NOT NULL REFERENCES barbers(id),
	client_name text NOT NULL DEFAULT '',
	price bigint NOT NULL CHECK (price >= 0),
	scheduled_at timestamptz NOT NULL,
	status text NOT NULL CHECK (status IN ('pending', 'confirmed', 'completed', 'cancelled', 'no_show'))
);

CREATE INDEX IF NOT EXISTS idx_appointments_scheduled ON appointments (scheduled_at) WHERE status = 'completed';
CREATE INDEX IF NOT EXISTS idx_appointments_barber ON appointments (barber_id, scheduled_at);
`

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := app.LoadConfig()
	if err != nil {
		logger.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	location, err := cfg.Location()
	if err != nil {
		logger.Error("load shop timezone", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		logger.Error("apply schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("schema applied")

	barberIDs := make([]uuid.UUID, 0, 3)
	for _, name := range []string{"Ana Souza", "Marcos Lima", "Rafael Costa"} {
		id := uuid.New()
		if _, err := pool.Exec(ctx, `
			INSERT INTO barbers (id, name, active) VALUES ($1, $2, true)
			ON CONFLICT (id) DO NOTHING`, id, name); err != nil {
			logger.Error("seed barber", slog.String("name", name), slog.Any("error", err))
			os.Exit(1)
		}
		barberIDs = append(barberIDs, id)
	}

	today := time.Now().In(location)
	for dayOffset := 0; dayOffset < 14; dayOffset++ {
		day := today.AddDate(0, 0, -dayOffset)
		for i, barberID := range barberIDs {
			occurred := time.Date(day.Year(), day.Month(), day.Day(), 10+i, 30, 0, 0, location)
			if _, err := pool.Exec(ctx, `
				INSERT INTO sales (id, barber_id, kind, amount, quantity, occurred_at, status)
				VALUES ($1, $2, $3, $4, $5, $6, 'completed')`,
				uuid.New(), barberID, saleKind(dayOffset+i), int64(2500+500*i), 1, occurred); err != nil {
				logger.Error("seed sale", slog.Any("error", err))
				os.Exit(1)
			}
			scheduled := occurred.Add(3 * time.Hour)
			if _, err := pool.Exec(ctx, `
				INSERT INTO appointments (id, barber_id, client_name, price, scheduled_at, status)
				VALUES ($1, $2, $3, $4, $5, 'completed')`,
				uuid.New(), barberID, "Walk-up Client", int64(4000+1000*i), scheduled); err != nil {
				logger.Error("seed appointment", slog.Any("error", err))
				os.Exit(1)
			}
		}
	}

	logger.Info("demo data seeded", slog.Int("barbers", len(barberIDs)))
}

func saleKind(n int) string {
	if n%2 == 0 {
		return "product"
	}
	return "walk_in"
}
