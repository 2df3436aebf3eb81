package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrBarberNotFound indicates an explicit barber filter matched no roster entry.
	ErrBarberNotFound = errors.New("reporting: barber not found")
	// ErrSourceUnavailable indicates a source stream failed inside its timeout.
	ErrSourceUnavailable = errors.New("reporting: source unavailable")
)

// SaleSource is the point-of-sale stream contract. Implementations only ever
// see completed sales; cancelled and refunded rows contribute nothing.
type SaleSource interface {
	// RevenueByBarber groups completed sales inside the window by barber,
	// split into product and walk-in figures.
	RevenueByBarber(ctx context.Context, window Window, barberID *uuid.UUID) (map[uuid.UUID]SaleFigures, error)
	// ActiveDates lists the distinct calendar dates with at least one
	// completed sale, ascending ISO order.
	ActiveDates(ctx context.Context, barberID *uuid.UUID) ([]string, error)
}

// AppointmentSource is the completed-appointment stream contract. Revenue is
// the price denormalized onto the appointment at execution time.
type AppointmentSource interface {
	RevenueByBarber(ctx context.Context, window Window, barberID *uuid.UUID) (map[uuid.UUID]Figures, error)
	ActiveDates(ctx context.Context, barberID *uuid.UUID) ([]string, error)
}

// BarberRoster lists the barbers a report must cover.
type BarberRoster interface {
	List(ctx context.Context) ([]BarberRef, error)
}

// ServiceConfig carries the reporting knobs. Location is mandatory: report
// windows are always resolved in the shop timezone, never the host's.
type ServiceConfig struct {
	Location      *time.Location
	SourceTimeout time.Duration

	// AvailabilityTTL shortens the availability index entries relative to
	// full reports. Zero keeps the cache's default TTL.
	AvailabilityTTL time.Duration
}

// Service coordinates period resolution, the two source streams and the
// cache layer. Both stream dependencies are constructor-injected so the
// engine has no hidden coupling to its producers.
type Service struct {
	roster        BarberRoster
	sales         SaleSource
	appointments  AppointmentSource
	cache         *Cache
	availCache    *Cache
	loc           *time.Location
	sourceTimeout time.Duration
	logger        *slog.Logger
}

// NewService wires the roster and the two revenue sources with a cache helper.
func NewService(roster BarberRoster, sales SaleSource, appointments AppointmentSource, cache *Cache, cfg ServiceConfig, logger *slog.Logger) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := cfg.SourceTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	availCache := cache
	if cfg.AvailabilityTTL > 0 {
		availCache = cache.WithTTL(cfg.AvailabilityTTL)
	}
	return &Service{
		roster:        roster,
		sales:         sales,
		appointments:  appointments,
		cache:         cache,
		availCache:    availCache,
		loc:           loc,
		sourceTimeout: timeout,
		logger:        logger,
	}
}

// Location exposes the configured shop timezone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Report computes the aggregate for one resolved window. Validation failures
// surface before any query runs; source failures degrade the report to
// partial with the failed source named instead of aborting it.
func (s *Service) Report(ctx context.Context, kind PeriodKind, anchor time.Time, barberID *uuid.UUID) (PeriodReport, error) {
	window, err := ResolvePeriod(kind, anchor, s.loc)
	if err != nil {
		return PeriodReport{}, err
	}
	return s.reportWindow(ctx, window, barberID)
}

// ReportRange computes the aggregate for a caller-supplied custom range.
func (s *Service) ReportRange(ctx context.Context, start, end time.Time, barberID *uuid.UUID) (PeriodReport, error) {
	window, err := ResolveRange(start, end, s.loc)
	if err != nil {
		return PeriodReport{}, err
	}
	return s.reportWindow(ctx, window, barberID)
}

func (s *Service) reportWindow(ctx context.Context, window Window, barberID *uuid.UUID) (PeriodReport, error) {
	roster, err := s.scopedRoster(ctx, barberID)
	if err != nil {
		return PeriodReport{}, err
	}

	anchorToken := "-"
	if !window.Unbounded {
		anchorToken = window.Start.Format(ISODate) + "_" + window.End.Format(ISODate)
	}
	key, err := s.cache.BuildKey(ctx, keyReport(window.Kind, anchorToken, barberToken(barberID)))
	if err == nil {
		var cached PeriodReport
		hit, getErr := s.cache.GetJSON(ctx, key, &cached)
		if getErr != nil {
			s.logger.Warn("report cache read", slog.Any("error", getErr))
		} else if hit {
			return cached, nil
		}
	} else {
		s.logger.Warn("report cache key", slog.Any("error", err))
	}

	salePartials, apptPartials, missing := s.querySources(ctx, window, barberID)

	report := PeriodReport{
		Window:         window,
		Partial:        len(missing) > 0,
		MissingSources: missing,
		Barbers:        AssembleBarberStats(roster, salePartials, apptPartials),
	}

	// Partial reports are never cached: replaying a transient source
	// failure from cache would present a degraded view as authoritative.
	if !report.Partial && key != "" {
		if setErr := s.cache.SetJSON(ctx, key, report); setErr != nil {
			s.logger.Warn("report cache write", slog.Any("error", setErr))
		}
	}
	return report, nil
}

// querySources runs both stream queries concurrently with independent
// accumulators and timeouts. One source failing leaves the other's partials
// intact; the failed source is named in the returned missing list.
func (s *Service) querySources(ctx context.Context, window Window, barberID *uuid.UUID) (map[uuid.UUID]SaleFigures, map[uuid.UUID]Figures, []string) {
	var (
		wg           sync.WaitGroup
		salePartials map[uuid.UUID]SaleFigures
		apptPartials map[uuid.UUID]Figures
		saleErr      error
		apptErr      error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		sctx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
		defer cancel()
		salePartials, saleErr = s.sales.RevenueByBarber(sctx, window, barberID)
	}()
	go func() {
		defer wg.Done()
		actx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
		defer cancel()
		apptPartials, apptErr = s.appointments.RevenueByBarber(actx, window, barberID)
	}()
	wg.Wait()

	var missing []string
	if saleErr != nil {
		s.logger.Error("sale source query", slog.String("window", window.Label), slog.Any("error", saleErr))
		salePartials = nil
		missing = append(missing, SourceSales)
	}
	if apptErr != nil {
		s.logger.Error("appointment source query", slog.String("window", window.Label), slog.Any("error", apptErr))
		apptPartials = nil
		missing = append(missing, SourceAppointments)
	}
	return salePartials, apptPartials, missing
}

// DailyStats returns one barber's per-source figures for a single calendar
// date, the unit trailing windows are composed from.
func (s *Service) DailyStats(ctx context.Context, barberID uuid.UUID, date string) (SourcePartials, error) {
	day, err := time.ParseInLocation(ISODate, date, s.loc)
	if err != nil {
		return SourcePartials{}, ErrInvalidRange
	}
	if _, err := s.scopedRoster(ctx, &barberID); err != nil {
		return SourcePartials{}, err
	}
	window, err := ResolvePeriod(PeriodDay, day, s.loc)
	if err != nil {
		return SourcePartials{}, err
	}

	salePartials, apptPartials, missing := s.querySources(ctx, window, &barberID)
	if len(missing) > 0 {
		return SourcePartials{}, fmt.Errorf("%w: %s", ErrSourceUnavailable, strings.Join(missing, ", "))
	}

	partials := SourcePartials{}
	if fig, ok := salePartials[barberID]; ok {
		partials.Product = fig.Product
		partials.WalkIn = fig.WalkIn
	}
	if fig, ok := apptPartials[barberID]; ok {
		partials.Appointment = fig
	}
	return partials, nil
}

// FetchDayStats adapts DailyStats to the compositor's granule contract, so
// window composition can run in-process without the HTTP client.
func (s *Service) FetchDayStats(ctx context.Context, barberID uuid.UUID, date string) (DayStats, error) {
	partials, err := s.DailyStats(ctx, barberID, date)
	if err != nil {
		return DayStats{}, err
	}
	product, walkIn, appointment := partials.Product, partials.WalkIn, partials.Appointment
	return DayStats{
		Date:        date,
		Product:     &product,
		WalkIn:      &walkIn,
		Appointment: &appointment,
	}, nil
}

// Roster lists the barbers reports cover.
func (s *Service) Roster(ctx context.Context) ([]BarberRef, error) {
	return s.roster.List(ctx)
}

// AvailableDates returns the sorted distinct calendar dates carrying at
// least one completed sale or appointment, optionally scoped to one barber.
// The result is cached under a short TTL and versioned by write-path bumps;
// it is recomputed from source data, never held for the process lifetime.
func (s *Service) AvailableDates(ctx context.Context, barberID *uuid.UUID) ([]string, error) {
	if barberID != nil {
		if _, err := s.scopedRoster(ctx, barberID); err != nil {
			return nil, err
		}
	}

	loader := func(ctx context.Context) (interface{}, error) {
		var saleDates, apptDates []string
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			saleDates, err = s.sales.ActiveDates(gctx, barberID)
			return err
		})
		g.Go(func() error {
			var err error
			apptDates, err = s.appointments.ActiveDates(gctx, barberID)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return mergeDates(saleDates, apptDates), nil
	}

	key, err := s.availCache.BuildKey(ctx, keyAvailability(barberToken(barberID)))
	if err != nil {
		s.logger.Warn("availability cache key", slog.Any("error", err))
		value, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		return value.([]string), nil
	}
	var dates []string
	if err := s.availCache.FetchJSON(ctx, key, &dates, loader); err != nil {
		return nil, err
	}
	return dates, nil
}

// InvalidateCache bumps the cache version after new source data lands.
func (s *Service) InvalidateCache(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// scopedRoster loads the roster, narrowed to one barber when a filter is
// set. An unknown filter is ErrBarberNotFound, not an empty report, so a
// caller cannot mistake a typo for an idle barber.
func (s *Service) scopedRoster(ctx context.Context, barberID *uuid.UUID) ([]BarberRef, error) {
	roster, err := s.roster.List(ctx)
	if err != nil {
		return nil, err
	}
	if barberID == nil {
		return roster, nil
	}
	for _, barber := range roster {
		if barber.ID == *barberID {
			return []BarberRef{barber}, nil
		}
	}
	return nil, ErrBarberNotFound
}

// mergeDates unions two ascending date lists without duplicates.
func mergeDates(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	merged := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, d := range list {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			merged = append(merged, d)
		}
	}
	sort.Strings(merged)
	return merged
}
