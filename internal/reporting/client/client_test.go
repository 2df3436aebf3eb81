package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/barberdesk/barberdesk/internal/reporting"
)

func TestFetchDayStats(t *testing.T) {
	barberID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/reports/daily" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("barber_id"); got != barberID.String() {
			t.Errorf("barber_id = %s", got)
		}
		if got := r.URL.Query().Get("date"); got != "2025-09-14" {
			t.Errorf("date = %s", got)
		}
		_ = json.NewEncoder(w).Encode(reporting.SourcePartials{
			Product:     reporting.Figures{Total: 1500, Count: 1},
			WalkIn:      reporting.Figures{Total: 2000, Count: 2},
			Appointment: reporting.Figures{Total: 2500, Count: 1},
		})
	}))
	defer server.Close()

	stats, err := New(server.URL, nil).FetchDayStats(context.Background(), barberID, "2025-09-14")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if stats.Date != "2025-09-14" {
		t.Fatalf("date = %s", stats.Date)
	}
	if stats.Product == nil || stats.Product.Total != 1500 {
		t.Fatalf("product = %+v", stats.Product)
	}
	if stats.WalkIn == nil || stats.WalkIn.Count != 2 {
		t.Fatalf("walk-in = %+v", stats.WalkIn)
	}
	if stats.Appointment == nil || stats.Appointment.Total != 2500 {
		t.Fatalf("appointment = %+v", stats.Appointment)
	}
}

func TestFetchDayStatsThrottled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := New(server.URL, nil).FetchDayStats(context.Background(), uuid.New(), "2025-09-14")
	if !errors.Is(err, reporting.ErrThrottled) {
		t.Fatalf("err = %v, want ErrThrottled", err)
	}
}

func TestFetchDayStatsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, nil).FetchDayStats(context.Background(), uuid.New(), "2025-09-14")
	if err == nil || errors.Is(err, reporting.ErrThrottled) {
		t.Fatalf("err = %v, want plain failure", err)
	}
}

func TestAvailableDates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/reports/available-dates" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string][]string{
			"dates": {"2025-09-13", "2025-09-14"},
		})
	}))
	defer server.Close()

	dates, err := New(server.URL, nil).AvailableDates(context.Background(), nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(dates) != 2 || dates[1] != "2025-09-14" {
		t.Fatalf("dates = %v", dates)
	}
}
