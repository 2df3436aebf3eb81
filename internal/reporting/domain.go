package reporting

import (
	"github.com/google/uuid"
)

// Source names used in partial-report flags.
const (
	SourceSales        = "sales"
	SourceAppointments = "appointments"
)

// Item kinds carried by itemized daily stats rows.
const (
	ItemProduct     = "product"
	ItemWalkIn      = "walk_in"
	ItemAppointment = "appointment"
)

// Figures is one revenue sub-total: amount in minor currency units plus the
// number of contributing records.
type Figures struct {
	Total int64 `json:"total"`
	Count int64 `json:"count"`
}

func (f Figures) add(other Figures) Figures {
	return Figures{Total: f.Total + other.Total, Count: f.Count + other.Count}
}

// SaleFigures is the sale stream's per-barber partial, split by sale kind.
// The two kinds never overlap: a sale row is either a product or a walk-in.
type SaleFigures struct {
	Product Figures `json:"product"`
	WalkIn  Figures `json:"walk_in"`
}

// SourcePartials holds the three per-source sub-totals for one barber before
// assembly. Each source is populated independently and merged exactly once.
type SourcePartials struct {
	Product     Figures `json:"product"`
	WalkIn      Figures `json:"walk_in"`
	Appointment Figures `json:"appointment"`
}

// TotalRevenue sums the three sources. This is the only place a grand total
// is derived; no field of SourcePartials ever contains another field's sum.
func (p SourcePartials) TotalRevenue() int64 {
	return p.Product.Total + p.WalkIn.Total + p.Appointment.Total
}

// BarberRef is a roster entry reports are keyed by.
type BarberRef struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// BarberReport is one barber's aggregate over a window. Sales are product
// sales, Cuts are walk-in services, Appointments are completed bookings.
type BarberReport struct {
	BarberID     uuid.UUID `json:"barber_id"`
	BarberName   string    `json:"barber_name,omitempty"`
	Sales        Figures   `json:"sales"`
	Cuts         Figures   `json:"cuts"`
	Appointments Figures   `json:"appointments"`
	TotalRevenue int64     `json:"total_revenue"`

	// Partial marks a degraded entry whose window composition lost at
	// least one day. Distinct from a complete entry with zero activity.
	Partial bool `json:"partial,omitempty"`
}

// PeriodReport is the output of a reporting query: the resolved window plus
// per-barber aggregates ordered by revenue.
type PeriodReport struct {
	Window         Window         `json:"window"`
	Partial        bool           `json:"partial"`
	MissingSources []string       `json:"missing_sources,omitempty"`
	Barbers        []BarberReport `json:"barbers"`
}

// DayItem is one itemized revenue row inside a daily stats response.
type DayItem struct {
	Kind   string `json:"kind"`
	Amount int64  `json:"amount"`
}

// DayStats is the per-(barber, date) unit the window compositor consumes.
// A producer may return precomputed aggregates, itemized rows, or both for
// the same source; the compositor counts each source once either way.
type DayStats struct {
	Date        string   `json:"date"`
	Product     *Figures `json:"product,omitempty"`
	WalkIn      *Figures `json:"walk_in,omitempty"`
	Appointment *Figures `json:"appointment,omitempty"`
	Items       []DayItem `json:"items,omitempty"`
}
