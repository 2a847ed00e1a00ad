package handler

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carrental/internal/bookings/service"
	apperrors "carrental/pkg/errors"
	"carrental/pkg/logger"
	"carrental/pkg/middleware"
	"carrental/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock service for testing
type mockBookingService struct {
	isCarAvailableFunc    func(ctx context.Context, carID string, dates model.DateRange) (bool, error)
	listAvailableCarsFunc func(ctx context.Context, dates model.DateRange) iter.Seq2[*model.Car, error]
	bookCarFunc           func(ctx context.Context, booking *model.Booking) error
}

func (m *mockBookingService) AddCar(ctx context.Context, car *model.Car) error {
	return nil
}

func (m *mockBookingService) ExistsCar(ctx context.Context, carID string) (bool, error) {
	return true, nil
}

func (m *mockBookingService) IsCarAvailable(ctx context.Context, carID string, dates model.DateRange) (bool, error) {
	if m.isCarAvailableFunc != nil {
		return m.isCarAvailableFunc(ctx, carID, dates)
	}
	return true, nil
}

func (m *mockBookingService) ListAvailableCars(ctx context.Context, dates model.DateRange) iter.Seq2[*model.Car, error] {
	if m.listAvailableCarsFunc != nil {
		return m.listAvailableCarsFunc(ctx, dates)
	}
	return func(yield func(*model.Car, error) bool) {}
}

func (m *mockBookingService) BookCar(ctx context.Context, booking *model.Booking) error {
	if m.bookCarFunc != nil {
		return m.bookCarFunc(ctx, booking)
	}
	booking.ID = "generated"
	return nil
}

func newTestRouter(svc service.BookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(svc, logger.NewNop()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func carsSeq(cars []*model.Car, tail error) iter.Seq2[*model.Car, error] {
	return func(yield func(*model.Car, error) bool) {
		for _, c := range cars {
			if !yield(c, nil) {
				return
			}
		}
		if tail != nil {
			yield(nil, tail)
		}
	}
}

func TestListAvailable_StreamsArray(t *testing.T) {
	var gotDates model.DateRange
	router := newTestRouter(&mockBookingService{
		listAvailableCarsFunc: func(ctx context.Context, dates model.DateRange) iter.Seq2[*model.Car, error] {
			gotDates = dates
			return carsSeq([]*model.Car{
				{ID: "a", Model: "Fiat 500", Seats: 4},
				{ID: "b", Model: "VW Golf", Seats: 5},
			}, nil)
		},
	})

	rec := serve(router, http.MethodGet, "/?start_date=2025-01-01&end_date=2025-01-05")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `[{"id":"a","model":"Fiat 500","seats":4},{"id":"b","model":"VW Golf","seats":5}]`, rec.Body.String())
	assert.Equal(t, "2025-01-01..2025-01-05", gotDates.String())
}

func TestListAvailable_Empty(t *testing.T) {
	router := newTestRouter(&mockBookingService{})

	rec := serve(router, http.MethodGet, "/?start_date=2025-01-01&end_date=2025-01-05")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestListAvailable_ErrorBeforeFirstCar(t *testing.T) {
	router := newTestRouter(&mockBookingService{
		listAvailableCarsFunc: func(ctx context.Context, dates model.DateRange) iter.Seq2[*model.Car, error] {
			return carsSeq(nil, apperrors.InvalidInput("Invalid date range"))
		},
	})

	rec := serve(router, http.MethodGet, "/?start_date=2025-01-05&end_date=2025-01-01")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid date range")
}

func TestListAvailable_ErrorMidStreamAborts(t *testing.T) {
	router := newTestRouter(&mockBookingService{
		listAvailableCarsFunc: func(ctx context.Context, dates model.DateRange) iter.Seq2[*model.Car, error] {
			return carsSeq([]*model.Car{{ID: "a", Model: "Fiat", Seats: 4}}, errors.New("disk gone"))
		},
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		serve(router, http.MethodGet, "/?start_date=2025-01-01&end_date=2025-01-05")
	})
}

func TestListAvailable_TimeoutMidStreamAborts(t *testing.T) {
	router := newTestRouter(&mockBookingService{
		listAvailableCarsFunc: func(ctx context.Context, dates model.DateRange) iter.Seq2[*model.Car, error] {
			return func(yield func(*model.Car, error) bool) {
				if !yield(&model.Car{ID: "a", Model: "A", Seats: 4}, nil) {
					return
				}
				<-ctx.Done()
				time.Sleep(20 * time.Millisecond)
				yield(nil, ctx.Err())
			}
		},
	})

	var h http.Handler = router
	h = middleware.RequestTimeout(50 * time.Millisecond)(h)
	h = middleware.Recovery(logger.NewNop())(h)

	var rec *httptest.ResponseRecorder
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		rec = serve(h, http.MethodGet, "/?start_date=2025-01-01&end_date=2025-01-05")
	})
	assert.Nil(t, rec, "a truncated listing must not complete as a response")
}

func TestDateParameters(t *testing.T) {
	router := newTestRouter(&mockBookingService{})

	tests := []struct {
		name   string
		method string
		target string
	}{
		{"list missing dates", http.MethodGet, "/"},
		{"list bad start", http.MethodGet, "/?start_date=01-01-2025&end_date=2025-01-05"},
		{"book missing end", http.MethodPost, "/car-1?start_date=2025-01-01"},
		{"availability bad end", http.MethodGet, "/api/v1/cars/car-1/availability?start_date=2025-01-01&end_date=tomorrow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.method, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, apperrors.CodeInvalidInput, body["code"])
		})
	}
}

func TestBook(t *testing.T) {
	tests := []struct {
		name       string
		svc        *mockBookingService
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "success",
			svc:        &mockBookingService{},
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"booking_id": "generated"},
		},
		{
			name: "unavailable",
			svc: &mockBookingService{
				isCarAvailableFunc: func(ctx context.Context, carID string, dates model.DateRange) (bool, error) {
					return false, nil
				},
				bookCarFunc: func(ctx context.Context, booking *model.Booking) error {
					t.Error("BookCar must not be called when the precheck fails")
					return nil
				},
			},
			wantStatus: http.StatusConflict,
			wantBody:   map[string]any{"error": "Car not available for the selected dates.", "code": apperrors.CodeConflict},
		},
		{
			name: "lost race under lock",
			svc: &mockBookingService{
				bookCarFunc: func(ctx context.Context, booking *model.Booking) error {
					return apperrors.Conflict(service.MsgCarNotAvailable)
				},
			},
			wantStatus: http.StatusConflict,
			wantBody:   map[string]any{"error": "Car not available for the selected dates.", "code": apperrors.CodeConflict},
		},
		{
			name: "unknown car",
			svc: &mockBookingService{
				isCarAvailableFunc: func(ctx context.Context, carID string, dates model.DateRange) (bool, error) {
					return false, apperrors.NotFoundWithID("Car", carID)
				},
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "lock timeout",
			svc: &mockBookingService{
				bookCarFunc: func(ctx context.Context, booking *model.Booking) error {
					return apperrors.Timeout("Timed out waiting for car lock", nil)
				},
			},
			wantStatus: http.StatusGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestRouter(tt.svc), http.MethodPost, "/car-1?start_date=2025-01-01&end_date=2025-01-05")

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody == nil {
				return
			}
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			for k, v := range tt.wantBody {
				assert.Equal(t, v, body[k], k)
			}
		})
	}
}

func TestBook_PassesRequestToService(t *testing.T) {
	var got model.Booking
	router := newTestRouter(&mockBookingService{
		bookCarFunc: func(ctx context.Context, booking *model.Booking) error {
			got = *booking
			booking.ID = "b-1"
			return nil
		},
	})

	rec := serve(router, http.MethodPost, "/car-7?start_date=2025-03-01&end_date=2025-03-02")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"booking_id":"b-1"}`, rec.Body.String())
	assert.Equal(t, "car-7", got.CarID)
	assert.Equal(t, "2025-03-01", got.StartDate.String())
	assert.Equal(t, "2025-03-02", got.EndDate.String())
	assert.Empty(t, got.ID, "id is left for the service to assign")
}

func TestAvailability(t *testing.T) {
	router := newTestRouter(&mockBookingService{
		isCarAvailableFunc: func(ctx context.Context, carID string, dates model.DateRange) (bool, error) {
			return carID == "free", nil
		},
	})

	rec := serve(router, http.MethodGet, "/api/v1/cars/free/availability?start_date=2025-01-01&end_date=2025-01-02")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"car_id":"free","available":true}`, rec.Body.String())

	rec = serve(router, http.MethodGet, "/api/v1/cars/taken/availability?start_date=2025-01-01&end_date=2025-01-02")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"car_id":"taken","available":false}`, rec.Body.String())
}
