package sales

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the two revenue-bearing sale flavours.
type Kind string

const (
	KindProduct Kind = "product"
	KindWalkIn  Kind = "walk_in"
)

// Status follows the sale through its lifecycle. Only completed sales bear
// revenue; cancelled and refunded rows contribute zero, never a negative
// adjustment, so already-reported periods stay stable.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Sale is one point-of-sale event. OccurredAt is the canonical instant the
// revenue happened; CreatedAt is row bookkeeping and is never used in a
// window predicate.
type Sale struct {
	ID         uuid.UUID `json:"id"`
	BarberID   uuid.UUID `json:"barber_id"`
	Kind       Kind      `json:"kind"`
	Amount     int64     `json:"amount"`
	Quantity   int       `json:"quantity"`
	OccurredAt time.Time `json:"occurred_at"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
