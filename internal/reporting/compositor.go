package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrThrottled signals a daily stats producer shed load; the fetch is
// retried with backoff instead of failing the barber outright.
var ErrThrottled = errors.New("reporting: daily stats fetch throttled")

// DayStatsFetcher retrieves one (barber, date) granule.
type DayStatsFetcher interface {
	FetchDayStats(ctx context.Context, barberID uuid.UUID, date string) (DayStats, error)
}

// DatesLister enumerates the dates worth fetching. *Service satisfies this,
// as does the HTTP client in reporting/client.
type DatesLister interface {
	AvailableDates(ctx context.Context, barberID *uuid.UUID) ([]string, error)
}

// CompositorConfig bounds the fan-out of window composition.
type CompositorConfig struct {
	Location     *time.Location
	MaxInFlight  int           // concurrent day fetches across all barbers
	FetchTimeout time.Duration // per-fetch deadline
	RetryDelay   time.Duration // base delay for linear backoff on throttling
	MaxAttempts  int
}

// Compositor reassembles a trailing window from per-day granules when only
// single-day endpoints are available. The reduction is additive over
// DayStats, so for the same data it yields the same figures as one ranged
// aggregate query over the window.
type Compositor struct {
	fetcher      DayStatsFetcher
	dates        DatesLister
	loc          *time.Location
	maxInFlight  int
	fetchTimeout time.Duration
	retryDelay   time.Duration
	maxAttempts  int
	logger       *slog.Logger
}

// NewCompositor wires a fetcher and a dates lister with fan-out bounds.
func NewCompositor(fetcher DayStatsFetcher, dates DatesLister, cfg CompositorConfig, logger *slog.Logger) *Compositor {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	maxInFlight := cfg.MaxInFlight
	if maxInFlight < 1 {
		maxInFlight = 4
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 3 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 150 * time.Millisecond
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compositor{
		fetcher:      fetcher,
		dates:        dates,
		loc:          loc,
		maxInFlight:  maxInFlight,
		fetchTimeout: fetchTimeout,
		retryDelay:   retryDelay,
		maxAttempts:  maxAttempts,
		logger:       logger,
	}
}

type dayResult struct {
	stats DayStats
	err   error
}

// ComposeWindow resolves the window, narrows its days to those with data,
// fetches every remaining (barber, date) granule under the concurrency
// bound and folds each barber's days in ascending date order. A failed
// granule degrades only its barber to partial; the rest of the window
// still comes back.
func (c *Compositor) ComposeWindow(ctx context.Context, kind PeriodKind, anchor time.Time, barbers []BarberRef) ([]BarberReport, error) {
	window, err := ResolvePeriod(kind, anchor, c.loc)
	if err != nil {
		return nil, err
	}
	if window.Unbounded {
		return nil, fmt.Errorf("%w: %q cannot be composed from daily granules", ErrInvalidPeriod, kind)
	}

	available, err := c.dates.AvailableDates(ctx, nil)
	if err != nil {
		return nil, err
	}
	days := intersectDays(window.Days(), available)

	results := make([][]dayResult, len(barbers))
	for i := range results {
		results[i] = make([]dayResult, len(days))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxInFlight)
	for bi := range barbers {
		for di := range days {
			bi, di := bi, di
			g.Go(func() error {
				stats, fetchErr := c.fetchDay(gctx, barbers[bi].ID, days[di])
				results[bi][di] = dayResult{stats: stats, err: fetchErr}
				// Fetch failures are contained per (barber, date);
				// only group cancellation stops the remaining work.
				return nil
			})
		}
	}
	_ = g.Wait()

	reports := make([]BarberReport, 0, len(barbers))
	for bi, barber := range barbers {
		acc := windowAccumulator{}
		for di := range days {
			res := results[bi][di]
			if res.err != nil {
				c.logger.Warn("day fetch failed",
					slog.String("barber", barber.ID.String()),
					slog.String("date", days[di]),
					slog.Any("error", res.err))
				acc.Partial = true
				continue
			}
			acc = addDayStats(acc, res.stats)
		}
		reports = append(reports, BarberReport{
			BarberID:     barber.ID,
			BarberName:   barber.Name,
			Sales:        acc.Partials.Product,
			Cuts:         acc.Partials.WalkIn,
			Appointments: acc.Partials.Appointment,
			TotalRevenue: acc.Partials.TotalRevenue(),
			Partial:      acc.Partial,
		})
	}
	SortBarberReports(reports)
	return reports, nil
}

// fetchDay attempts one granule with a per-fetch deadline, retrying
// throttled responses with linear backoff.
func (c *Compositor) fetchDay(ctx context.Context, barberID uuid.UUID, date string) (DayStats, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		stats, err := c.fetcher.FetchDayStats(fctx, barberID, date)
		cancel()
		if err == nil {
			return stats, nil
		}
		lastErr = err
		if !errors.Is(err, ErrThrottled) {
			return DayStats{}, err
		}
		select {
		case <-ctx.Done():
			return DayStats{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * c.retryDelay):
		}
	}
	return DayStats{}, lastErr
}

// fieldState tracks where an accumulator field's value came from within a
// single day merge: unset, from the day's precomputed aggregate, or from
// summed itemized rows. A field set from an aggregate refuses item rows,
// which is what makes re-adding sub-rows on top of a total impossible.
type fieldState uint8

const (
	fieldUnset fieldState = iota
	fieldFromAggregate
	fieldFromItems
)

// windowAccumulator is the immutable-style accumulator window reduction
// folds into. addDayStats takes and returns it by value; nothing shares it.
type windowAccumulator struct {
	Partials SourcePartials
	Partial  bool
}

// addDayStats folds one day's stats into the accumulator. Each source is
// counted exactly once per day: the aggregate figure when present,
// otherwise the sum of that source's itemized rows, never both.
func addDayStats(acc windowAccumulator, day DayStats) windowAccumulator {
	product, walkIn, appointment := fieldUnset, fieldUnset, fieldUnset

	if day.Product != nil {
		acc.Partials.Product = acc.Partials.Product.add(*day.Product)
		product = fieldFromAggregate
	}
	if day.WalkIn != nil {
		acc.Partials.WalkIn = acc.Partials.WalkIn.add(*day.WalkIn)
		walkIn = fieldFromAggregate
	}
	if day.Appointment != nil {
		acc.Partials.Appointment = acc.Partials.Appointment.add(*day.Appointment)
		appointment = fieldFromAggregate
	}

	for _, item := range day.Items {
		switch item.Kind {
		case ItemProduct:
			if product == fieldFromAggregate {
				continue
			}
			acc.Partials.Product.Total += item.Amount
			acc.Partials.Product.Count++
			product = fieldFromItems
		case ItemWalkIn:
			if walkIn == fieldFromAggregate {
				continue
			}
			acc.Partials.WalkIn.Total += item.Amount
			acc.Partials.WalkIn.Count++
			walkIn = fieldFromItems
		case ItemAppointment:
			if appointment == fieldFromAggregate {
				continue
			}
			acc.Partials.Appointment.Total += item.Amount
			acc.Partials.Appointment.Count++
			appointment = fieldFromItems
		}
	}
	return acc
}

// intersectDays keeps the window days that appear in the availability
// index, preserving ascending order.
func intersectDays(windowDays, available []string) []string {
	if len(windowDays) == 0 || len(available) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(available))
	for _, d := range available {
		set[d] = struct{}{}
	}
	var days []string
	for _, d := range windowDays {
		if _, ok := set[d]; ok {
			days = append(days, d)
		}
	}
	return days
}
