package reporting

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockDaySource struct {
	mu       sync.Mutex
	stats    map[uuid.UUID]map[string]DayStats
	failures map[string]error
	throttle map[string]int // remaining throttled responses per barber:date

	dates []string

	fetchCalls   int64
	inFlight     int64
	peakInFlight int64
}

func newMockDaySource(dates []string) *mockDaySource {
	return &mockDaySource{
		stats:    make(map[uuid.UUID]map[string]DayStats),
		failures: make(map[string]error),
		throttle: make(map[string]int),
		dates:    dates,
	}
}

func (m *mockDaySource) set(barberID uuid.UUID, stats DayStats) {
	if m.stats[barberID] == nil {
		m.stats[barberID] = make(map[string]DayStats)
	}
	m.stats[barberID][stats.Date] = stats
}

func fetchKey(barberID uuid.UUID, date string) string {
	return barberID.String() + ":" + date
}

func (m *mockDaySource) FetchDayStats(ctx context.Context, barberID uuid.UUID, date string) (DayStats, error) {
	atomic.AddInt64(&m.fetchCalls, 1)
	current := atomic.AddInt64(&m.inFlight, 1)
	defer atomic.AddInt64(&m.inFlight, -1)
	for {
		peak := atomic.LoadInt64(&m.peakInFlight)
		if current <= peak || atomic.CompareAndSwapInt64(&m.peakInFlight, peak, current) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()
	key := fetchKey(barberID, date)
	if remaining := m.throttle[key]; remaining > 0 {
		m.throttle[key] = remaining - 1
		return DayStats{}, ErrThrottled
	}
	if err := m.failures[key]; err != nil {
		return DayStats{}, err
	}
	if stats, ok := m.stats[barberID][date]; ok {
		return stats, nil
	}
	return DayStats{Date: date}, nil
}

func (m *mockDaySource) AvailableDates(ctx context.Context, barberID *uuid.UUID) ([]string, error) {
	return m.dates, nil
}

func figures(total, count int64) *Figures {
	return &Figures{Total: total, Count: count}
}

func testCompositor(src *mockDaySource, cfg CompositorConfig) *Compositor {
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	return NewCompositor(src, src, cfg, nil)
}

func weekAnchor(t *testing.T) (time.Time, []string) {
	t.Helper()
	anchor := time.Date(2025, 9, 14, 12, 0, 0, 0, time.UTC)
	window, err := ResolvePeriod(PeriodWeek, anchor, time.UTC)
	if err != nil {
		t.Fatalf("resolve week: %v", err)
	}
	return anchor, window.Days()
}

func TestComposeWindowSumsDailyGranules(t *testing.T) {
	anchor, days := weekAnchor(t)
	src := newMockDaySource(days)
	barber := BarberRef{ID: uuid.New(), Name: "Ana"}

	// Revenue lands on three of the seven days; the rest stay empty.
	perDay := []int64{100, 0, 50, 0, 0, 200, 0}
	for i, amount := range perDay {
		if amount == 0 {
			continue
		}
		src.set(barber.ID, DayStats{Date: days[i], Product: figures(amount, 1)})
	}

	reports, err := testCompositor(src, CompositorConfig{}).ComposeWindow(context.Background(), PeriodWeek, anchor, []BarberRef{barber})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports", len(reports))
	}
	got := reports[0]
	if got.TotalRevenue != 350 {
		t.Fatalf("windowed total = %d, want sum of daily granules 350", got.TotalRevenue)
	}
	if got.Sales.Count != 3 {
		t.Fatalf("sale count = %d, want 3", got.Sales.Count)
	}
	if got.Partial {
		t.Fatal("all fetches succeeded, report must not be partial")
	}
}

func TestComposeWindowSkipsDatesOutsideAvailability(t *testing.T) {
	anchor, days := weekAnchor(t)
	// Only two window days carry data; one available date falls outside the window.
	src := newMockDaySource([]string{days[0], days[3], "2024-01-01"})
	barber := BarberRef{ID: uuid.New(), Name: "Ana"}

	_, err := testCompositor(src, CompositorConfig{}).ComposeWindow(context.Background(), PeriodWeek, anchor, []BarberRef{barber})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if src.fetchCalls != 2 {
		t.Fatalf("fetched %d granules, want 2 (window days with data)", src.fetchCalls)
	}
}

func TestComposeWindowRejectsUnboundedPeriod(t *testing.T) {
	src := newMockDaySource(nil)
	_, err := testCompositor(src, CompositorConfig{}).ComposeWindow(context.Background(), PeriodGeneral, time.Now(), nil)
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("err = %v, want ErrInvalidPeriod", err)
	}
}

func TestComposeWindowBoundsConcurrency(t *testing.T) {
	anchor, days := weekAnchor(t)
	src := newMockDaySource(days)
	barbers := []BarberRef{
		{ID: uuid.New(), Name: "Ana"},
		{ID: uuid.New(), Name: "Marcos"},
		{ID: uuid.New(), Name: "Rafael"},
	}

	_, err := testCompositor(src, CompositorConfig{MaxInFlight: 2}).ComposeWindow(context.Background(), PeriodWeek, anchor, barbers)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if src.fetchCalls != int64(len(barbers)*len(days)) {
		t.Fatalf("fetched %d granules, want %d", src.fetchCalls, len(barbers)*len(days))
	}
	if src.peakInFlight > 2 {
		t.Fatalf("peak in-flight fetches = %d, limit is 2", src.peakInFlight)
	}
}

func TestComposeWindowRetriesThrottledFetches(t *testing.T) {
	anchor, days := weekAnchor(t)
	src := newMockDaySource(days[:1])
	barber := BarberRef{ID: uuid.New(), Name: "Ana"}
	src.set(barber.ID, DayStats{Date: days[0], WalkIn: figures(700, 1)})
	// First two attempts shed load; the third succeeds.
	src.throttle[fetchKey(barber.ID, days[0])] = 2

	reports, err := testCompositor(src, CompositorConfig{}).ComposeWindow(context.Background(), PeriodWeek, anchor, []BarberRef{barber})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if src.fetchCalls != 3 {
		t.Fatalf("fetch attempts = %d, want 3", src.fetchCalls)
	}
	if reports[0].Partial || reports[0].Cuts.Total != 700 {
		t.Fatalf("report = %+v, want recovered walk-in total 700", reports[0])
	}
}

func TestComposeWindowExhaustedRetriesDegradeBarber(t *testing.T) {
	anchor, days := weekAnchor(t)
	src := newMockDaySource(days[:1])
	barber := BarberRef{ID: uuid.New(), Name: "Ana"}
	src.throttle[fetchKey(barber.ID, days[0])] = 10

	reports, err := testCompositor(src, CompositorConfig{MaxAttempts: 2}).ComposeWindow(context.Background(), PeriodWeek, anchor, []BarberRef{barber})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !reports[0].Partial {
		t.Fatal("exhausted retries should degrade the barber to partial")
	}
	if src.fetchCalls != 2 {
		t.Fatalf("fetch attempts = %d, want MaxAttempts", src.fetchCalls)
	}
}

func TestComposeWindowIsolatesFailuresPerBarber(t *testing.T) {
	anchor, days := weekAnchor(t)
	src := newMockDaySource(days[:2])
	healthy := BarberRef{ID: uuid.New(), Name: "Ana"}
	degraded := BarberRef{ID: uuid.New(), Name: "Marcos"}

	src.set(healthy.ID, DayStats{Date: days[0], Product: figures(1000, 1)})
	src.set(healthy.ID, DayStats{Date: days[1], Product: figures(500, 1)})
	src.set(degraded.ID, DayStats{Date: days[0], Product: figures(300, 1)})
	src.failures[fetchKey(degraded.ID, days[1])] = errors.New("backend down")

	reports, err := testCompositor(src, CompositorConfig{}).ComposeWindow(context.Background(), PeriodWeek, anchor, []BarberRef{healthy, degraded})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	byID := make(map[uuid.UUID]BarberReport)
	for _, r := range reports {
		byID[r.BarberID] = r
	}
	if h := byID[healthy.ID]; h.Partial || h.TotalRevenue != 1500 {
		t.Fatalf("healthy barber = %+v, failure leaked across barbers", h)
	}
	d := byID[degraded.ID]
	if !d.Partial {
		t.Fatal("degraded barber should be marked partial")
	}
	if d.TotalRevenue != 300 {
		t.Fatalf("degraded barber total = %d, want surviving day only (300)", d.TotalRevenue)
	}
}

func TestAddDayStatsPrefersAggregateOverItems(t *testing.T) {
	// Aggregate and itemized rows describe the same product revenue; only
	// the aggregate may count.
	day := DayStats{
		Date:    "2025-09-14",
		Product: figures(15000, 1),
		Items: []DayItem{
			{Kind: ItemProduct, Amount: 15000},
			{Kind: ItemAppointment, Amount: 25000},
		},
	}

	acc := addDayStats(windowAccumulator{}, day)
	if acc.Partials.Product.Total != 15000 || acc.Partials.Product.Count != 1 {
		t.Fatalf("product = %+v, itemized rows double-counted on top of the aggregate", acc.Partials.Product)
	}
	// Appointment has no aggregate, so its item rows count.
	if acc.Partials.Appointment.Total != 25000 || acc.Partials.Appointment.Count != 1 {
		t.Fatalf("appointment = %+v, want itemized fallback", acc.Partials.Appointment)
	}
	if got := acc.Partials.TotalRevenue(); got != 40000 {
		t.Fatalf("total = %d, want 40000", got)
	}
}

func TestAddDayStatsSumsItemsWhenNoAggregate(t *testing.T) {
	day := DayStats{
		Date: "2025-09-14",
		Items: []DayItem{
			{Kind: ItemWalkIn, Amount: 2000},
			{Kind: ItemWalkIn, Amount: 3000},
			{Kind: ItemProduct, Amount: 1000},
		},
	}

	acc := addDayStats(windowAccumulator{}, day)
	if acc.Partials.WalkIn.Total != 5000 || acc.Partials.WalkIn.Count != 2 {
		t.Fatalf("walk-in = %+v", acc.Partials.WalkIn)
	}
	if acc.Partials.Product.Total != 1000 || acc.Partials.Product.Count != 1 {
		t.Fatalf("product = %+v", acc.Partials.Product)
	}
}

func TestAddDayStatsAccumulatesAcrossDays(t *testing.T) {
	acc := windowAccumulator{}
	acc = addDayStats(acc, DayStats{Date: "2025-09-13", Product: figures(100, 1)})
	acc = addDayStats(acc, DayStats{Date: "2025-09-14", Items: []DayItem{{Kind: ItemProduct, Amount: 50}}})

	// The first day's aggregate must not suppress the second day's items.
	if acc.Partials.Product.Total != 150 || acc.Partials.Product.Count != 2 {
		t.Fatalf("product across days = %+v, want total 150 count 2", acc.Partials.Product)
	}
}
