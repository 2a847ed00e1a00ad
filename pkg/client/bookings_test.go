package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carrental/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubServer(t *testing.T) *httptest.Server {
	t.Helper()

	router := httprouter.New()
	router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.GET("/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if r.URL.Query().Get("start_date") == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid date","code":"INVALID_INPUT"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":"a","model":"Fiat 500","seats":4}]`))
	})
	router.POST("/:car_id", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		switch ps.ByName("car_id") {
		case "taken":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"Car not available for the selected dates.","code":"CONFLICT"}`))
		case "ghost":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Car not found","code":"NOT_FOUND"}`))
		default:
			_, _ = w.Write([]byte(`{"booking_id":"` + r.Header.Get("Idempotency-Key") + `-id"}`))
		}
	})
	router.GET("/api/v1/cars/:car_id/availability", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		_, _ = w.Write([]byte(`{"car_id":"` + ps.ByName("car_id") + `","available":true}`))
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func testDates() model.DateRange {
	return model.NewDateRange(model.MustParseDate("2025-01-01"), model.MustParseDate("2025-01-05"))
}

func TestBookingsClient_ListAvailableCars(t *testing.T) {
	c := NewBookingsClient(newStubServer(t).URL)

	cars, err := c.ListAvailableCars(context.Background(), testDates())
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, model.Car{ID: "a", Model: "Fiat 500", Seats: 4}, cars[0])

	_, err = c.ListAvailableCars(context.Background(), model.DateRange{})
	require.Error(t, err)
}

func TestBookingsClient_BookCar(t *testing.T) {
	c := NewBookingsClient(newStubServer(t).URL)
	ctx := context.Background()

	id, err := c.BookCar(ctx, "car-1", testDates(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "k1-id", id)

	_, err = c.BookCar(ctx, "taken", testDates(), "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsConflict())
	assert.Equal(t, "CONFLICT", apiErr.Code)
	assert.Equal(t, "Car not available for the selected dates.", apiErr.Message)

	_, err = c.BookCar(ctx, "ghost", testDates(), "")
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsNotFound())
}

func TestBookingsClient_IsCarAvailable(t *testing.T) {
	c := NewBookingsClient(newStubServer(t).URL)

	ok, err := c.IsCarAvailable(context.Background(), "car-1", testDates())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHttpClient_WaitForHealthy(t *testing.T) {
	c := NewHttpClient(newStubServer(t).URL)
	require.NoError(t, c.WaitForHealthy(context.Background(), time.Second))

	dead := NewHttpClient("http://127.0.0.1:1")
	err := dead.WaitForHealthy(context.Background(), 300*time.Millisecond)
	assert.Error(t, err)
}
