package reporting

import (
	"errors"
	"fmt"
	"time"
)

// PeriodKind selects how a report window is derived from its anchor date.
type PeriodKind string

const (
	// PeriodDay covers the anchor date only.
	PeriodDay PeriodKind = "day"
	// PeriodWeek covers the 7 calendar days ending on the anchor date.
	PeriodWeek PeriodKind = "week"
	// PeriodMonth covers the 30 calendar days ending on the anchor date.
	PeriodMonth PeriodKind = "month"
	// PeriodGeneral applies no date filter at all.
	PeriodGeneral PeriodKind = "general"
	// PeriodRange is a caller-supplied custom range.
	PeriodRange PeriodKind = "range"
)

var (
	// ErrInvalidPeriod indicates an unknown period kind.
	ErrInvalidPeriod = errors.New("reporting: invalid period kind")
	// ErrInvalidRange indicates a custom range whose start is after its end.
	ErrInvalidRange = errors.New("reporting: range start after end")
)

// ISODate is the wire format for calendar dates.
const ISODate = "2006-01-02"

// Window is a closed-closed instant range all report queries are bounded by.
// Start and End carry the shop timezone; Unbounded windows have zero Start/End.
type Window struct {
	Kind      PeriodKind `json:"kind"`
	Start     time.Time  `json:"start,omitzero"`
	End       time.Time  `json:"end,omitzero"`
	Unbounded bool       `json:"unbounded,omitempty"`
	Label     string     `json:"label"`
}

// ResolvePeriod maps a period kind and an anchor date to a Window in loc.
// Trailing windows always include the anchor day itself: a week is the anchor
// day plus the 6 days before it, a month the anchor day plus the 29 before.
func ResolvePeriod(kind PeriodKind, anchor time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		return Window{}, errors.New("reporting: location required")
	}
	dayStart := startOfDay(anchor, loc)
	dayEnd := endOfDay(anchor, loc)

	switch kind {
	case PeriodDay:
		return Window{
			Kind:  PeriodDay,
			Start: dayStart,
			End:   dayEnd,
			Label: dayStart.Format(ISODate),
		}, nil
	case PeriodWeek:
		start := dayStart.AddDate(0, 0, -6)
		return Window{
			Kind:  PeriodWeek,
			Start: start,
			End:   dayEnd,
			Label: rangeLabel(start, dayEnd),
		}, nil
	case PeriodMonth:
		start := dayStart.AddDate(0, 0, -29)
		return Window{
			Kind:  PeriodMonth,
			Start: start,
			End:   dayEnd,
			Label: rangeLabel(start, dayEnd),
		}, nil
	case PeriodGeneral:
		return Window{
			Kind:      PeriodGeneral,
			Unbounded: true,
			Label:     "all time",
		}, nil
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, kind)
	}
}

// ResolveRange builds a custom Window from explicit start and end dates,
// snapped to day boundaries in loc.
func ResolveRange(start, end time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		return Window{}, errors.New("reporting: location required")
	}
	s := startOfDay(start, loc)
	e := endOfDay(end, loc)
	if s.After(e) {
		return Window{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange, s.Format(ISODate), end.In(loc).Format(ISODate))
	}
	return Window{
		Kind:  PeriodRange,
		Start: s,
		End:   e,
		Label: rangeLabel(s, e),
	}, nil
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.Unbounded {
		return true
	}
	return !t.Before(w.Start) && !t.After(w.End)
}

// Days enumerates the window's calendar dates in ascending ISO order.
// Unbounded windows have no enumerable days and return nil.
func (w Window) Days() []string {
	if w.Unbounded || w.Start.IsZero() {
		return nil
	}
	var days []string
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(ISODate))
	}
	return days
}

// startOfDay truncates t to 00:00:00.000 of its calendar date in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// endOfDay is 23:59:59.999 of t's calendar date in loc. Source timestamps
// carry at most millisecond precision, so the closed upper bound is exact.
func endOfDay(t time.Time, loc *time.Location) time.Time {
	return startOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Millisecond)
}

func rangeLabel(start, end time.Time) string {
	return start.Format(ISODate) + " to " + end.Format(ISODate)
}
