package reportinghttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/barberdesk/barberdesk/internal/reporting"
)

type stubService struct {
	report     reporting.PeriodReport
	reportErr  error
	partials   reporting.SourcePartials
	dailyErr   error
	dates      []string
	datesErr   error
	lastKind   reporting.PeriodKind
	lastAnchor time.Time
	lastStart  time.Time
	lastEnd    time.Time
	lastFilter *uuid.UUID
	lastDate   string
}

func (s *stubService) Report(ctx context.Context, kind reporting.PeriodKind, anchor time.Time, barberID *uuid.UUID) (reporting.PeriodReport, error) {
	s.lastKind = kind
	s.lastAnchor = anchor
	s.lastFilter = barberID
	return s.report, s.reportErr
}

func (s *stubService) ReportRange(ctx context.Context, start, end time.Time, barberID *uuid.UUID) (reporting.PeriodReport, error) {
	s.lastKind = reporting.PeriodRange
	s.lastStart = start
	s.lastEnd = end
	s.lastFilter = barberID
	return s.report, s.reportErr
}

func (s *stubService) DailyStats(ctx context.Context, barberID uuid.UUID, date string) (reporting.SourcePartials, error) {
	s.lastDate = date
	return s.partials, s.dailyErr
}

func (s *stubService) AvailableDates(ctx context.Context, barberID *uuid.UUID) ([]string, error) {
	s.lastFilter = barberID
	return s.dates, s.datesErr
}

func (s *stubService) Location() *time.Location {
	return time.UTC
}

func newTestRouter(svc ReportService) http.Handler {
	h := NewHandler(svc, nil)
	h.now = func() time.Time { return time.Date(2025, 9, 14, 15, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/api/reports", h.MountRoutes)
	r.Get("/api/reports.csv", h.ReportCSV)
	return r
}

func doRequest(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestReportEndpoint(t *testing.T) {
	svc := &stubService{report: reporting.PeriodReport{
		Window:  reporting.Window{Kind: reporting.PeriodDay, Label: "2025-09-14"},
		Barbers: []reporting.BarberReport{{BarberID: uuid.New(), TotalRevenue: 40000}},
	}}
	router := newTestRouter(svc)

	rec := doRequest(t, router, "/api/reports?period=day&anchor=2025-09-14")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got reporting.PeriodReport
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Window.Label != "2025-09-14" || len(got.Barbers) != 1 {
		t.Fatalf("body = %+v", got)
	}
	if svc.lastKind != reporting.PeriodDay {
		t.Fatalf("kind passed = %q", svc.lastKind)
	}
	if svc.lastAnchor.Format(reporting.ISODate) != "2025-09-14" {
		t.Fatalf("anchor passed = %v", svc.lastAnchor)
	}
}

func TestReportEndpointDefaultsAnchorToNow(t *testing.T) {
	svc := &stubService{}
	rec := doRequest(t, newTestRouter(svc), "/api/reports?period=week")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.lastAnchor.Format(reporting.ISODate) != "2025-09-14" {
		t.Fatalf("anchor should default to the clock, got %v", svc.lastAnchor)
	}
}

func TestReportEndpointValidation(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc)

	cases := map[string]string{
		"missing period":     "/api/reports",
		"unknown period":     "/api/reports?period=quarter",
		"bad anchor":         "/api/reports?period=day&anchor=14-09-2025",
		"bad barber id":      "/api/reports?period=day&barber_id=nope",
		"range without ends": "/api/reports?period=range",
	}
	for name, target := range cases {
		rec := doRequest(t, router, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
			t.Errorf("%s: content type = %q", name, ct)
		}
	}
}

func TestReportEndpointRange(t *testing.T) {
	svc := &stubService{}
	rec := doRequest(t, newTestRouter(svc), "/api/reports?period=range&start=2025-09-01&end=2025-09-07")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.lastStart.Format(reporting.ISODate) != "2025-09-01" || svc.lastEnd.Format(reporting.ISODate) != "2025-09-07" {
		t.Fatalf("range passed = %v..%v", svc.lastStart, svc.lastEnd)
	}
}

func TestReportEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{reporting.ErrInvalidRange, http.StatusBadRequest},
		{reporting.ErrBarberNotFound, http.StatusNotFound},
		{reporting.ErrSourceUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &stubService{reportErr: tc.err}
		rec := doRequest(t, newTestRouter(svc), "/api/reports?period=day")
		if rec.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestReportCSVEndpoint(t *testing.T) {
	svc := &stubService{report: reporting.PeriodReport{
		Window: reporting.Window{Kind: reporting.PeriodDay, Label: "2025-09-14"},
		Barbers: []reporting.BarberReport{{
			BarberID:     uuid.New(),
			BarberName:   "Ana",
			TotalRevenue: 40000,
		}},
	}}
	rec := doRequest(t, newTestRouter(svc), "/api/reports.csv?period=day")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("content disposition = %q", cd)
	}
	if body := rec.Body.String(); !strings.Contains(body, "Ana") {
		t.Fatalf("csv body = %q", body)
	}
}

func TestAvailableDatesEndpoint(t *testing.T) {
	svc := &stubService{dates: []string{"2025-09-13", "2025-09-14"}}
	rec := doRequest(t, newTestRouter(svc), "/api/reports/available-dates")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Dates []string `json:"dates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Dates) != 2 {
		t.Fatalf("dates = %v", body.Dates)
	}
}

func TestAvailableDatesEndpointEmpty(t *testing.T) {
	svc := &stubService{}
	rec := doRequest(t, newTestRouter(svc), "/api/reports/available-dates")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// A nil slice still serializes as an empty JSON array, not null.
	if body := strings.TrimSpace(rec.Body.String()); !strings.Contains(body, `"dates":[]`) {
		t.Fatalf("body = %s", body)
	}
}

func TestDailyStatsEndpoint(t *testing.T) {
	barberID := uuid.New()
	svc := &stubService{partials: reporting.SourcePartials{
		Product:     reporting.Figures{Total: 1500, Count: 1},
		Appointment: reporting.Figures{Total: 2500, Count: 1},
	}}
	rec := doRequest(t, newTestRouter(svc), "/api/reports/daily?barber_id="+barberID.String()+"&date=2025-09-14")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got reporting.SourcePartials
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Product.Total != 1500 || got.Appointment.Total != 2500 {
		t.Fatalf("partials = %+v", got)
	}
	if svc.lastDate != "2025-09-14" {
		t.Fatalf("date passed = %q", svc.lastDate)
	}
}

func TestDailyStatsEndpointRequiresBarber(t *testing.T) {
	rec := doRequest(t, newTestRouter(&stubService{}), "/api/reports/daily?date=2025-09-14")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
