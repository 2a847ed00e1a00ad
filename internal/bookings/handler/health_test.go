package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"carrental/pkg/logger"
	"carrental/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

type mockCarRepository struct {
	pingErr error
}

func (m *mockCarRepository) PutCar(ctx context.Context, car *model.Car) error { return nil }

func (m *mockCarRepository) GetCar(ctx context.Context, carID string) (*model.Car, error) {
	return nil, nil
}

func (m *mockCarRepository) CarExists(ctx context.Context, carID string) (bool, error) {
	return false, nil
}

func (m *mockCarRepository) ListCarIDs(ctx context.Context) ([]string, error) { return nil, nil }

func (m *mockCarRepository) PutBooking(ctx context.Context, booking *model.Booking) error {
	return nil
}

func (m *mockCarRepository) ListBookings(ctx context.Context, carID string) ([]*model.Booking, error) {
	return nil, nil
}

func (m *mockCarRepository) LoadBookings(ctx context.Context, carID string) ([]*model.Booking, error) {
	return nil, nil
}

func (m *mockCarRepository) Ping(ctx context.Context) error { return m.pingErr }

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		pingErr    error
		wantStatus int
		wantBody   string
	}{
		{"health", "/health", nil, http.StatusOK, `{"status":"ok"}`},
		{"ready", "/ready", nil, http.StatusOK, `{"status":"ready","storage":"ok"}`},
		{"not ready", "/ready", errors.New("permission denied"), http.StatusServiceUnavailable, `{"status":"unavailable","storage":"error"}`},
		{"health ignores storage", "/health", errors.New("permission denied"), http.StatusOK, `{"status":"ok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(&mockCarRepository{pingErr: tt.pingErr}, logger.NewNop()).RegisterRoutes(router)

			rec := serve(router, http.MethodGet, tt.path)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
