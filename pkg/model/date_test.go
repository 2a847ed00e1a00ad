package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "iso date", input: "2024-01-05", want: NewDate(2024, time.January, 5)},
		{name: "surrounding spaces", input: " 2024-02-29 ", want: NewDate(2024, time.February, 29)},
		{name: "not a leap year", input: "2023-02-29", wantErr: true},
		{name: "timestamp", input: "2024-01-05T10:00:00Z", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want.Time) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBookingJSONLayout(t *testing.T) {
	booking := Booking{
		ID:        "1700000000",
		CarID:     "car-1",
		StartDate: MustParseDate("2024-01-05"),
		EndDate:   MustParseDate("2024-01-07"),
	}

	data, err := json.Marshal(booking)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"1700000000","car_id":"car-1","start_date":"2024-01-05","end_date":"2024-01-07"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	var decoded Booking
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Range() != booking.Range() {
		t.Errorf("decoded range %s, want %s", decoded.Range(), booking.Range())
	}
}

func TestDateUnmarshalRejectsNonString(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`20240105`), &d); err == nil {
		t.Error("expected error for numeric date")
	}
}

func TestDateRangeValid(t *testing.T) {
	tests := []struct {
		name  string
		r     DateRange
		valid bool
	}{
		{name: "single day", r: NewDateRange(MustParseDate("2024-01-05"), MustParseDate("2024-01-05")), valid: true},
		{name: "forward", r: NewDateRange(MustParseDate("2024-01-05"), MustParseDate("2024-01-07")), valid: true},
		{name: "reversed", r: NewDateRange(MustParseDate("2024-01-07"), MustParseDate("2024-01-05")), valid: false},
		{name: "zero", r: DateRange{}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestValidID(t *testing.T) {
	valid := []string{"car1", "Tesla-Model_3", "1700000000", "a.b"}
	invalid := []string{"", ".", "..", "../etc", "a/b", ".hidden", "with space"}

	for _, id := range valid {
		if !ValidID(id) {
			t.Errorf("expected %q to be valid", id)
		}
	}
	for _, id := range invalid {
		if ValidID(id) {
			t.Errorf("expected %q to be invalid", id)
		}
	}
}
