package availability

import (
	"testing"

	"carrental/pkg/model"
)

func span(start, end string) model.DateRange {
	return model.NewDateRange(model.MustParseDate(start), model.MustParseDate(end))
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b model.DateRange
		want bool
	}{
		{name: "identical", a: span("2024-01-05", "2024-01-07"), b: span("2024-01-05", "2024-01-07"), want: true},
		{name: "end touches start", a: span("2024-01-05", "2024-01-07"), b: span("2024-01-07", "2024-01-09"), want: true},
		{name: "start touches end", a: span("2024-01-07", "2024-01-09"), b: span("2024-01-05", "2024-01-07"), want: true},
		{name: "contained", a: span("2024-01-01", "2024-01-31"), b: span("2024-01-10", "2024-01-11"), want: true},
		{name: "single day inside", a: span("2024-01-06", "2024-01-06"), b: span("2024-01-05", "2024-01-07"), want: true},
		{name: "day after", a: span("2024-01-05", "2024-01-07"), b: span("2024-01-08", "2024-01-10"), want: false},
		{name: "day before", a: span("2024-01-05", "2024-01-07"), b: span("2024-01-01", "2024-01-04"), want: false},
		{name: "across years", a: span("2023-12-30", "2024-01-02"), b: span("2024-01-02", "2024-01-03"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Errorf("Overlaps is not symmetric for %s and %s", tt.a, tt.b)
			}
		})
	}
}

func TestIsAvailable(t *testing.T) {
	existing := []*model.Booking{
		{ID: "b1", CarID: "c1", StartDate: model.MustParseDate("2024-01-05"), EndDate: model.MustParseDate("2024-01-07")},
		{ID: "b2", CarID: "c1", StartDate: model.MustParseDate("2024-02-01"), EndDate: model.MustParseDate("2024-02-03")},
	}

	if !IsAvailable(nil, span("2024-01-01", "2024-12-31")) {
		t.Error("empty booking set must be available")
	}
	if IsAvailable(existing, span("2024-01-05", "2024-01-07")) {
		t.Error("exact match must not be available")
	}
	if !IsAvailable(existing, span("2024-01-08", "2024-01-31")) {
		t.Error("gap between bookings must be available")
	}
	if IsAvailable(existing, span("2024-01-31", "2024-02-01")) {
		t.Error("touching the second booking must not be available")
	}
}

func TestFirstConflict(t *testing.T) {
	b1 := &model.Booking{ID: "b1", CarID: "c1", StartDate: model.MustParseDate("2024-01-05"), EndDate: model.MustParseDate("2024-01-07")}

	if got := FirstConflict([]*model.Booking{b1}, span("2024-01-07", "2024-01-09")); got != b1 {
		t.Errorf("expected b1 as conflict, got %v", got)
	}
	if got := FirstConflict([]*model.Booking{b1}, span("2024-01-08", "2024-01-09")); got != nil {
		t.Errorf("expected no conflict, got %v", got)
	}
}
