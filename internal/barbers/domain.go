package barbers

import (
	"time"

	"github.com/google/uuid"
)

// Barber is one roster entry. Inactive barbers keep their id so historical
// reports still attribute their revenue.
type Barber struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
