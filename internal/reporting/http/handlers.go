package reportinghttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/barberdesk/barberdesk/internal/platform/httpx"
	"github.com/barberdesk/barberdesk/internal/reporting"
	"github.com/barberdesk/barberdesk/internal/reporting/export"
)

// ReportService defines the reporting contract used by the handler.
type ReportService interface {
	Report(ctx context.Context, kind reporting.PeriodKind, anchor time.Time, barberID *uuid.UUID) (reporting.PeriodReport, error)
	ReportRange(ctx context.Context, start, end time.Time, barberID *uuid.UUID) (reporting.PeriodReport, error)
	DailyStats(ctx context.Context, barberID uuid.UUID, date string) (reporting.SourcePartials, error)
	AvailableDates(ctx context.Context, barberID *uuid.UUID) ([]string, error)
	Location() *time.Location
}

type reportQuery struct {
	Period   string `validate:"required,oneof=day week month general range"`
	Anchor   string `validate:"omitempty,datetime=2006-01-02"`
	Start    string `validate:"omitempty,datetime=2006-01-02"`
	End      string `validate:"omitempty,datetime=2006-01-02"`
	BarberID string `validate:"omitempty,uuid"`
}

type dailyQuery struct {
	BarberID string `validate:"required,uuid"`
	Date     string `validate:"required,datetime=2006-01-02"`
}

// Handler coordinates HTTP requests for the reporting surface.
type Handler struct {
	service  ReportService
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler constructs the handler.
func NewHandler(service ReportService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Report serves GET /api/reports.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	report, ok := h.resolveReport(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// ReportCSV serves GET /api/reports.csv with the same parameters as Report.
func (h *Handler) ReportCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.resolveReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
	if err := export.WriteReportCSV(w, report); err != nil {
		h.logger.Error("write report csv", slog.Any("error", err))
	}
}

// AvailableDates serves GET /api/reports/available-dates.
func (h *Handler) AvailableDates(w http.ResponseWriter, r *http.Request) {
	barberID, ok := h.parseBarberID(w, r.URL.Query().Get("barber_id"))
	if !ok {
		return
	}
	dates, err := h.service.AvailableDates(r.Context(), barberID)
	if err != nil {
		h.respondServiceError(w, err, "available dates")
		return
	}
	if dates == nil {
		dates = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"dates": dates})
}

// DailyStats serves GET /api/reports/daily, the granule trailing windows
// are composed from.
func (h *Handler) DailyStats(w http.ResponseWriter, r *http.Request) {
	query := dailyQuery{
		BarberID: r.URL.Query().Get("barber_id"),
		Date:     r.URL.Query().Get("date"),
	}
	if err := h.validate.Struct(query); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	barberID, err := uuid.Parse(query.BarberID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Barber ID", err.Error())
		return
	}
	partials, err := h.service.DailyStats(r.Context(), barberID, query.Date)
	if err != nil {
		h.respondServiceError(w, err, "daily stats")
		return
	}
	httpx.JSON(w, http.StatusOK, partials)
}

func (h *Handler) resolveReport(w http.ResponseWriter, r *http.Request) (reporting.PeriodReport, bool) {
	params := r.URL.Query()
	query := reportQuery{
		Period:   params.Get("period"),
		Anchor:   params.Get("anchor"),
		Start:    params.Get("start"),
		End:      params.Get("end"),
		BarberID: params.Get("barber_id"),
	}
	if err := h.validate.Struct(query); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return reporting.PeriodReport{}, false
	}
	barberID, ok := h.parseBarberID(w, query.BarberID)
	if !ok {
		return reporting.PeriodReport{}, false
	}

	loc := h.service.Location()
	var (
		report reporting.PeriodReport
		err    error
	)
	if reporting.PeriodKind(query.Period) == reporting.PeriodRange {
		if query.Start == "" || query.End == "" {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "range reports require start and end")
			return reporting.PeriodReport{}, false
		}
		start, _ := time.ParseInLocation(reporting.ISODate, query.Start, loc)
		end, _ := time.ParseInLocation(reporting.ISODate, query.End, loc)
		report, err = h.service.ReportRange(r.Context(), start, end, barberID)
	} else {
		anchor := h.now().In(loc)
		if query.Anchor != "" {
			anchor, _ = time.ParseInLocation(reporting.ISODate, query.Anchor, loc)
		}
		report, err = h.service.Report(r.Context(), reporting.PeriodKind(query.Period), anchor, barberID)
	}
	if err != nil {
		h.respondServiceError(w, err, "report")
		return reporting.PeriodReport{}, false
	}
	return report, true
}

func (h *Handler) parseBarberID(w http.ResponseWriter, raw string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Barber ID", err.Error())
		return nil, false
	}
	return &id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, reporting.ErrInvalidPeriod), errors.Is(err, reporting.ErrInvalidRange):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Period", err.Error())
	case errors.Is(err, reporting.ErrBarberNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "barber not found")
	case errors.Is(err, reporting.ErrSourceUnavailable):
		httpx.Problem(w, http.StatusServiceUnavailable, "Source Unavailable", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
