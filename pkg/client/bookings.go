package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"carrental/pkg/middleware"
	"carrental/pkg/model"
)

// BookingsClient talks to the bookings service HTTP API.
type BookingsClient struct {
	http *HttpClient
}

func NewBookingsClient(baseURL string) *BookingsClient {
	return &BookingsClient{http: NewHttpClient(baseURL)}
}

func (c *BookingsClient) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	return c.http.WaitForHealthy(ctx, maxWait)
}

func datesQuery(dates model.DateRange) url.Values {
	return url.Values{
		"start_date": {dates.Start.String()},
		"end_date":   {dates.End.String()},
	}
}

func (c *BookingsClient) ListAvailableCars(ctx context.Context, dates model.DateRange) ([]model.Car, error) {
	resp, err := c.http.GET(ctx, "/", datesQuery(dates))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var cars []model.Car
	if err := resp.DecodeJSON(&cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// BookCar books carID for dates. A non-empty idempotencyKey makes retries safe.
func (c *BookingsClient) BookCar(ctx context.Context, carID string, dates model.DateRange, idempotencyKey string) (string, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{middleware.DefaultIdempotencyHeader: idempotencyKey}
	}

	resp, err := c.http.POST(ctx, "/"+url.PathEscape(carID), datesQuery(dates), headers)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", newAPIError(resp)
	}

	var body struct {
		BookingID string `json:"booking_id"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return "", err
	}
	return body.BookingID, nil
}

func (c *BookingsClient) IsCarAvailable(ctx context.Context, carID string, dates model.DateRange) (bool, error) {
	resp, err := c.http.GET(ctx, "/api/v1/cars/"+url.PathEscape(carID)+"/availability", datesQuery(dates))
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		return false, newAPIError(resp)
	}

	var body struct {
		Available bool `json:"available"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return false, err
	}
	return body.Available, nil
}
