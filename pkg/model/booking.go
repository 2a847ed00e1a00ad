package model

// Booking reserves one car for the closed interval [StartDate, EndDate].
type Booking struct {
	ID        string `json:"id" validate:"required,entity_id"`
	CarID     string `json:"car_id" validate:"required,entity_id"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
}

func (b *Booking) Range() DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate}
}
