// Package client is an HTTP consumer of the reporting daily endpoints, for
// environments that compose trailing windows without a ranged-aggregate API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/barberdesk/barberdesk/internal/reporting"
)

// Client implements reporting.DayStatsFetcher and reporting.DatesLister
// against a barberdesk API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a client. A nil httpClient gets a conservative default.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// FetchDayStats retrieves one (barber, date) granule. Throttling responses
// surface as reporting.ErrThrottled so the compositor backs off and retries.
func (c *Client) FetchDayStats(ctx context.Context, barberID uuid.UUID, date string) (reporting.DayStats, error) {
	params := url.Values{}
	params.Set("barber_id", barberID.String())
	params.Set("date", date)

	var partials reporting.SourcePartials
	if err := c.getJSON(ctx, "/api/reports/daily", params, &partials); err != nil {
		return reporting.DayStats{}, err
	}
	product, walkIn, appointment := partials.Product, partials.WalkIn, partials.Appointment
	return reporting.DayStats{
		Date:        date,
		Product:     &product,
		WalkIn:      &walkIn,
		Appointment: &appointment,
	}, nil
}

// AvailableDates retrieves the availability index, optionally per barber.
func (c *Client) AvailableDates(ctx context.Context, barberID *uuid.UUID) ([]string, error) {
	params := url.Values{}
	if barberID != nil {
		params.Set("barber_id", barberID.String())
	}
	var payload struct {
		Dates []string `json:"dates"`
	}
	if err := c.getJSON(ctx, "/api/reports/available-dates", params, &payload); err != nil {
		return nil, err
	}
	return payload.Dates, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(dest)
	case http.StatusTooManyRequests:
		return reporting.ErrThrottled
	default:
		return fmt.Errorf("reporting client: %s returned %d", path, resp.StatusCode)
	}
}
