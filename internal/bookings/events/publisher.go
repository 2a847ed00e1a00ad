package events

import (
	"context"
	"fmt"
	"time"

	"carrental/pkg/kafka"
	"carrental/pkg/logger"
	"carrental/pkg/model"
)

const (
	EventTypeBookingCreated = "booking.created"
	SchemaVersion           = "1"
)

// Publisher announces committed bookings. It is a notification channel only;
// nothing reads events back into the store.
type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking) error
	Close() error
}

// BookingCreatedEvent is the JSON payload of a booking.created message.
type BookingCreatedEvent struct {
	BookingID  string     `json:"booking_id"`
	CarID      string     `json:"car_id"`
	StartDate  model.Date `json:"start_date"`
	EndDate    model.Date `json:"end_date"`
	OccurredAt time.Time  `json:"occurred_at"`
}

type messageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	producer messageProducer
	source   string
	now      func() time.Time
}

// NewKafkaPublisher publishes booking events through producer, keyed by car id
// so every event of one car lands on the same partition.
func NewKafkaPublisher(producer *kafka.Producer, source string) Publisher {
	return newKafkaPublisher(producer, source)
}

func newKafkaPublisher(producer messageProducer, source string) *kafkaPublisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
		now:      time.Now,
	}
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	now := p.now().UTC()
	msg, err := kafka.NewMessage().
		WithKey(booking.CarID).
		WithEventID("").
		WithEventType(EventTypeBookingCreated).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithTimestamp(now).
		WithValue(BookingCreatedEvent{
			BookingID:  booking.ID,
			CarID:      booking.CarID,
			StartDate:  booking.StartDate,
			EndDate:    booking.EndDate,
			OccurredAt: now,
		}).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build booking event: %w", err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish booking event: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct {
	log *logger.Logger
}

// NewNoopPublisher is used when no brokers are configured.
func NewNoopPublisher(log *logger.Logger) Publisher {
	return &noopPublisher{log: log}
}

func (p *noopPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	p.log.Debug("Booking events disabled, skipping publish", "booking_id", booking.ID, "car_id", booking.CarID)
	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}
