package service

import (
	"context"
	"errors"
	"iter"
	"time"

	"carrental/internal/bookings/availability"
	bookingserrors "carrental/internal/bookings/errors"
	"carrental/internal/bookings/events"
	"carrental/internal/bookings/repository"
	"carrental/internal/bookings/validator"
	"carrental/pkg/config"
	apperrors "carrental/pkg/errors"
	"carrental/pkg/model"
	"carrental/pkg/sanitizer"

	"github.com/google/uuid"
)

const (
	MsgCarNotAvailable = "Car not available for the selected dates."

	publishTimeout = 5 * time.Second
)

type BookingService interface {
	AddCar(ctx context.Context, car *model.Car) error
	ExistsCar(ctx context.Context, carID string) (bool, error)
	IsCarAvailable(ctx context.Context, carID string, dates model.DateRange) (bool, error)
	ListAvailableCars(ctx context.Context, dates model.DateRange) iter.Seq2[*model.Car, error]
	BookCar(ctx context.Context, booking *model.Booking) error
}

type bookingService struct {
	repo      repository.CarRepository
	locker    repository.CarLocker
	validator *validator.BookingValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewBookingService(
	repo repository.CarRepository,
	locker repository.CarLocker,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		locker:    locker,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

// AddCar registers car or overwrites its info record. The car's lock is held
// for the write so it never interleaves with a booking.
func (s *bookingService) AddCar(ctx context.Context, car *model.Car) error {
	car.ID = sanitizer.NormalizeID(car.ID)
	car.Model = sanitizer.NormalizeModel(car.Model)

	if err := s.validator.ValidateCar(car); err != nil {
		s.cfg.Log.Warn("Car validation failed", "car_id", car.ID, "error", err)
		return apperrors.Validation("Car validation failed", map[string]any{"error": err.Error()})
	}

	lock, err := s.locker.Acquire(ctx, car.ID)
	if err != nil {
		return s.lockError(car.ID, err)
	}
	defer s.release(lock)

	if err := s.repo.PutCar(ctx, car); err != nil {
		s.cfg.Log.Error("Failed to store car", "car_id", car.ID, "error", err)
		return s.storageError("Failed to store car", err)
	}

	s.cfg.Log.Info("Car stored successfully",
		"car_id", car.ID,
		"model", car.Model,
		"seats", car.Seats,
	)
	return nil
}

func (s *bookingService) ExistsCar(ctx context.Context, carID string) (bool, error) {
	exists, err := s.repo.CarExists(ctx, sanitizer.NormalizeID(carID))
	if err != nil {
		return false, s.storageError("Failed to check car existence", err)
	}
	return exists, nil
}

// IsCarAvailable reads without locking. The car must have an info record. The answer can be stale by the time
// the caller acts on it; BookCar re-checks under the lock.
func (s *bookingService) IsCarAvailable(ctx context.Context, carID string, dates model.DateRange) (bool, error) {
	carID = sanitizer.NormalizeID(carID)

	if err := s.validateRange(dates); err != nil {
		return false, err
	}

	if err := s.requireCar(ctx, carID); err != nil {
		return false, err
	}

	bookings, err := s.repo.ListBookings(ctx, carID)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "car_id", carID, "error", err)
		return false, s.storageError("Failed to list bookings", err)
	}

	return availability.IsAvailable(bookings, dates), nil
}

// ListAvailableCars yields every car free for the whole of dates. Cars are
// read one at a time as the consumer pulls. Cars whose info record is missing
// or malformed are skipped. A storage failure is yielded once and ends the
// sequence.
func (s *bookingService) ListAvailableCars(ctx context.Context, dates model.DateRange) iter.Seq2[*model.Car, error] {
	return func(yield func(*model.Car, error) bool) {
		if err := s.validateRange(dates); err != nil {
			yield(nil, err)
			return
		}

		ids, err := s.repo.ListCarIDs(ctx)
		if err != nil {
			s.cfg.Log.Error("Failed to list cars", "error", err)
			yield(nil, s.storageError("Failed to list cars", err))
			return
		}

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				yield(nil, s.storageError("Listing available cars interrupted", err))
				return
			}

			car, err := s.repo.GetCar(ctx, id)
			if err != nil {
				if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrMalformedRecord) {
					s.cfg.Log.Warn("Skipping car without a readable info record", "car_id", id, "error", err)
					continue
				}
				s.cfg.Log.Error("Failed to read car", "car_id", id, "error", err)
				yield(nil, s.storageError("Failed to read car", err))
				return
			}

			bookings, err := s.repo.ListBookings(ctx, id)
			if err != nil {
				s.cfg.Log.Error("Failed to list bookings", "car_id", id, "error", err)
				yield(nil, s.storageError("Failed to list bookings", err))
				return
			}

			if !availability.IsAvailable(bookings, dates) {
				continue
			}
			if !yield(car, nil) {
				return
			}
		}
	}
}

// BookCar commits booking if no existing booking of the car overlaps it.
// The check and the write happen under the car's lock. The booking.created
// event is published after the lock is released.
func (s *bookingService) BookCar(ctx context.Context, booking *model.Booking) error {
	s.applyDefaults(booking)
	s.sanitize(booking)

	if err := s.validateRange(booking.Range()); err != nil {
		return err
	}
	if err := s.validator.ValidateBooking(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "car_id", booking.CarID, "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.requireCar(ctx, booking.CarID); err != nil {
		return err
	}

	if err := s.commitBooking(ctx, booking); err != nil {
		return err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"car_id", booking.CarID,
		"start_date", booking.StartDate.String(),
		"end_date", booking.EndDate.String(),
	)

	s.publishCreated(ctx, booking)
	return nil
}

func (s *bookingService) commitBooking(ctx context.Context, booking *model.Booking) error {
	lock, err := s.locker.Acquire(ctx, booking.CarID)
	if err != nil {
		return s.lockError(booking.CarID, err)
	}
	defer s.release(lock)

	existing, err := s.repo.LoadBookings(ctx, booking.CarID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrMalformedRecord) {
			s.cfg.Log.Error("Refusing to book over a malformed booking record", "car_id", booking.CarID, "error", err)
			return apperrors.MalformedRecord("booking", booking.CarID, err)
		}
		return s.storageError("Failed to load bookings", err)
	}

	if conflict := availability.FirstConflict(existing, booking.Range()); conflict != nil {
		s.cfg.Log.Info("Booking rejected, dates overlap an existing booking",
			"car_id", booking.CarID,
			"requested", booking.Range().String(),
			"conflicting_booking_id", conflict.ID,
			"conflicting", conflict.Range().String(),
		)
		return apperrors.Conflict(MsgCarNotAvailable).WithDetails(map[string]any{
			"car_id":                 booking.CarID,
			"conflicting_booking_id": conflict.ID,
			"conflicting_start_date": conflict.StartDate.String(),
			"conflicting_end_date":   conflict.EndDate.String(),
		})
	}

	if err := s.repo.PutBooking(ctx, booking); err != nil {
		if errors.Is(err, bookingserrors.ErrDuplicateBooking) {
			return apperrors.Conflict("Booking ID already exists").WithDetails(map[string]any{
				"booking_id": booking.ID,
			})
		}
		s.cfg.Log.Error("Failed to store booking", "car_id", booking.CarID, "id", booking.ID, "error", err)
		return s.storageError("Failed to store booking", err)
	}
	return nil
}

// --- Helpers ---

// requireCar succeeds only when the car has a readable info record. A car
// directory without one, such as one left by a failed AddCar, is not a car.
func (s *bookingService) requireCar(ctx context.Context, carID string) error {
	_, err := s.repo.GetCar(ctx, carID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Car", carID)
	case errors.Is(err, bookingserrors.ErrMalformedRecord):
		s.cfg.Log.Error("Car info record is malformed", "car_id", carID, "error", err)
		return apperrors.MalformedRecord("car", carID, err)
	default:
		return s.storageError("Failed to read car", err)
	}
}

func (s *bookingService) applyDefaults(b *model.Booking) {
	if b.ID != "" {
		return
	}
	id, err := uuid.NewV7()
	if err != nil {
		b.ID = uuid.NewString()
		return
	}
	b.ID = id.String()
}

func (s *bookingService) sanitize(b *model.Booking) {
	b.ID = sanitizer.NormalizeID(b.ID)
	b.CarID = sanitizer.NormalizeID(b.CarID)
}

func (s *bookingService) validateRange(dates model.DateRange) error {
	if err := s.validator.ValidateRange(dates); err != nil {
		return apperrors.InvalidInput("Invalid date range").WithDetails(map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *bookingService) publishCreated(ctx context.Context, booking *model.Booking) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.BookingCreated(pubCtx, booking); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"id", booking.ID,
			"car_id", booking.CarID,
			"error", err,
		)
	}
}

func (s *bookingService) release(lock *repository.CarLock) {
	if err := lock.Release(); err != nil {
		s.cfg.Log.Warn("Failed to release car lock", "car_id", lock.CarID(), "error", err)
	}
}

func (s *bookingService) lockError(carID string, err error) error {
	if errors.Is(err, bookingserrors.ErrLockTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("Timed out waiting for car lock", err).WithDetails(map[string]any{
			"car_id": carID,
		})
	}
	s.cfg.Log.Error("Failed to acquire car lock", "car_id", carID, "error", err)
	return apperrors.Internal("Failed to acquire car lock", err)
}

func (s *bookingService) storageError(message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(message, err)
	}
	return apperrors.Internal(message, err)
}
