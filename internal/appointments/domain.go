package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Status follows the appointment lifecycle, which is driven by an external
// collaborator. Reporting only ever reads completed rows.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Appointment is one scheduled service engagement. Price is denormalized at
// execution time so later service-price changes cannot rewrite history.
type Appointment struct {
	ID          uuid.UUID `json:"id"`
	BarberID    uuid.UUID `json:"barber_id"`
	ClientName  string    `json:"client_name"`
	Price       int64     `json:"price"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      Status    `json:"status"`
}
