package validator

import (
	"errors"
	"strings"
	"testing"

	"carrental/pkg/logger"
	"carrental/pkg/model"
)

func TestValidateCar(t *testing.T) {
	v := NewBookingValidator(logger.NewNop())

	tests := []struct {
		name      string
		car       *model.Car
		wantField string
	}{
		{name: "valid", car: &model.Car{ID: "testcar1", Model: "Test Model", Seats: 4}},
		{name: "missing id", car: &model.Car{Model: "Test Model", Seats: 4}, wantField: "ID"},
		{name: "path in id", car: &model.Car{ID: "../x", Model: "Test Model", Seats: 4}, wantField: "ID"},
		{name: "missing model", car: &model.Car{ID: "c1", Seats: 4}, wantField: "Model"},
		{name: "zero seats", car: &model.Car{ID: "c1", Model: "Test Model"}, wantField: "Seats"},
		{name: "negative seats", car: &model.Car{ID: "c1", Model: "Test Model", Seats: -1}, wantField: "Seats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateCar(tt.car)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, verrs[0].Field)
			}
		})
	}
}

func TestValidateBooking(t *testing.T) {
	v := NewBookingValidator(logger.NewNop())
	start := model.MustParseDate("2024-01-05")
	end := model.MustParseDate("2024-01-07")

	tests := []struct {
		name    string
		booking *model.Booking
		wantErr string
	}{
		{
			name:    "valid",
			booking: &model.Booking{ID: "b1", CarID: "c1", StartDate: start, EndDate: end},
		},
		{
			name:    "single day",
			booking: &model.Booking{ID: "b1", CarID: "c1", StartDate: start, EndDate: start},
		},
		{
			name:    "reversed",
			booking: &model.Booking{ID: "b1", CarID: "c1", StartDate: end, EndDate: start},
			wantErr: "end_date must not be before start_date",
		},
		{
			name:    "missing dates",
			booking: &model.Booking{ID: "b1", CarID: "c1"},
			wantErr: "start_date is required",
		},
		{
			name:    "missing car",
			booking: &model.Booking{ID: "b1", StartDate: start, EndDate: end},
			wantErr: "CarID is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBooking(tt.booking)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "ID", Message: "ID is required"},
		{Field: "Seats", Message: "Seats must be at least 1"},
	}

	want := "validation failed: 2 error(s): [ID: ID is required; Seats: Seats must be at least 1]"
	if got := errs.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if (ValidationErrors{}).Error() != "" {
		t.Error("empty ValidationErrors should render as empty string")
	}
}

func TestValidateRange(t *testing.T) {
	v := NewBookingValidator(logger.NewNop())
	day := func(s string) model.Date { return model.MustParseDate(s) }

	tests := []struct {
		name    string
		r       model.DateRange
		wantErr string
	}{
		{"single day", model.NewDateRange(day("2025-01-01"), day("2025-01-01")), ""},
		{"several days", model.NewDateRange(day("2025-01-01"), day("2025-01-05")), ""},
		{"reversed", model.NewDateRange(day("2025-01-05"), day("2025-01-01")), "end_date must not be before start_date"},
		{"missing start", model.NewDateRange(model.Date{}, day("2025-01-01")), "start_date is required"},
		{"missing end", model.NewDateRange(day("2025-01-01"), model.Date{}), "end_date is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRange(tt.r)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var errs ValidationErrors
			if !errors.As(err, &errs) {
				t.Fatalf("error = %v, want ValidationErrors", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}
