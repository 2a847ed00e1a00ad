package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	bookingserrors "carrental/internal/bookings/errors"
	"carrental/pkg/logger"
	"carrental/pkg/model"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
)

const (
	CarsDir      = "cars"
	InfoFile     = "info.json"
	LockFile     = "lock"
	BookingsDir  = "bookings"
	recordSuffix = ".json"

	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// CarRepository stores cars and their bookings as JSON records:
//
//	cars/<car_id>/info.json
//	cars/<car_id>/bookings/<booking_id>.json
//
// Nothing is cached; every call reads the filesystem.
type CarRepository interface {
	PutCar(ctx context.Context, car *model.Car) error
	GetCar(ctx context.Context, carID string) (*model.Car, error)
	CarExists(ctx context.Context, carID string) (bool, error)
	ListCarIDs(ctx context.Context) ([]string, error)
	PutBooking(ctx context.Context, booking *model.Booking) error
	ListBookings(ctx context.Context, carID string) ([]*model.Booking, error)
	LoadBookings(ctx context.Context, carID string) ([]*model.Booking, error)
	Ping(ctx context.Context) error
}

type fileCarRepository struct {
	fs  billy.Filesystem
	log *logger.Logger
}

func NewCarRepository(fs billy.Filesystem, log *logger.Logger) (CarRepository, error) {
	if err := fs.MkdirAll(CarsDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create cars directory: %w", err)
	}
	return &fileCarRepository{
		fs:  fs,
		log: log.With("component", "car_repository"),
	}, nil
}

func carDir(carID string) string {
	return path.Join(CarsDir, carID)
}

func infoPath(carID string) string {
	return path.Join(CarsDir, carID, InfoFile)
}

func bookingsDir(carID string) string {
	return path.Join(CarsDir, carID, BookingsDir)
}

func bookingPath(carID, bookingID string) string {
	return path.Join(CarsDir, carID, BookingsDir, bookingID+recordSuffix)
}

func (r *fileCarRepository) PutCar(ctx context.Context, car *model.Car) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !model.ValidID(car.ID) {
		return fmt.Errorf("invalid car ID %q", car.ID)
	}

	if err := r.fs.MkdirAll(carDir(car.ID), dirPerm); err != nil {
		return fmt.Errorf("failed to create car directory: %w", err)
	}

	data, err := json.Marshal(car)
	if err != nil {
		return fmt.Errorf("failed to encode car: %w", err)
	}
	if err := r.writeAtomic(infoPath(car.ID), data); err != nil {
		return fmt.Errorf("failed to write car info: %w", err)
	}
	return nil
}

func (r *fileCarRepository) GetCar(ctx context.Context, carID string) (*model.Car, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !model.ValidID(carID) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, carID)
	}

	data, err := util.ReadFile(r.fs, infoPath(carID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, carID)
		}
		return nil, fmt.Errorf("failed to read car info: %w", err)
	}

	var car model.Car
	if err := json.Unmarshal(data, &car); err != nil {
		return nil, fmt.Errorf("%w: car %s: %v", bookingserrors.ErrMalformedRecord, carID, err)
	}
	if car.ID != carID {
		return nil, fmt.Errorf("%w: car %s: info.json holds id %q", bookingserrors.ErrMalformedRecord, carID, car.ID)
	}
	return &car, nil
}

func (r *fileCarRepository) CarExists(ctx context.Context, carID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !model.ValidID(carID) {
		return false, nil
	}

	info, err := r.fs.Stat(carDir(carID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat car directory: %w", err)
	}
	return info.IsDir(), nil
}

func (r *fileCarRepository) ListCarIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := r.fs.ReadDir(CarsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() {
			r.log.Warn("Skipping non-directory entry in cars directory", "name", name)
			continue
		}
		if !model.ValidID(name) {
			r.log.Warn("Skipping car directory with invalid name", "name", name)
			continue
		}
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *fileCarRepository) PutBooking(ctx context.Context, booking *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !model.ValidID(booking.CarID) || !model.ValidID(booking.ID) {
		return fmt.Errorf("invalid booking %q for car %q", booking.ID, booking.CarID)
	}

	if err := r.fs.MkdirAll(bookingsDir(booking.CarID), dirPerm); err != nil {
		return fmt.Errorf("failed to create bookings directory: %w", err)
	}

	target := bookingPath(booking.CarID, booking.ID)
	if _, err := r.fs.Stat(target); err == nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateBooking, booking.ID)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat booking: %w", err)
	}

	data, err := json.Marshal(booking)
	if err != nil {
		return fmt.Errorf("failed to encode booking: %w", err)
	}
	if err := r.writeAtomic(target, data); err != nil {
		return fmt.Errorf("failed to write booking: %w", err)
	}
	return nil
}

func (r *fileCarRepository) ListBookings(ctx context.Context, carID string) ([]*model.Booking, error) {
	return r.readBookings(ctx, carID, false)
}

// LoadBookings is the strict form of ListBookings: a malformed record fails
// the call instead of being skipped.
func (r *fileCarRepository) LoadBookings(ctx context.Context, carID string) ([]*model.Booking, error) {
	return r.readBookings(ctx, carID, true)
}

func (r *fileCarRepository) readBookings(ctx context.Context, carID string, strict bool) ([]*model.Booking, error) {
	if !model.ValidID(carID) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, carID)
	}

	dir := bookingsDir(carID)
	entries, err := r.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*model.Booking{}, nil
		}
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]*model.Booking, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		// in-flight temp files and anything else that is not a record
		if entry.IsDir() || !strings.HasSuffix(name, recordSuffix) {
			continue
		}

		data, err := util.ReadFile(r.fs, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read booking %s: %w", name, err)
		}

		booking, err := decodeBooking(carID, strings.TrimSuffix(name, recordSuffix), data)
		if err != nil {
			if strict {
				return nil, err
			}
			r.log.Warn("Skipping malformed booking record",
				"car_id", carID,
				"file", name,
				"error", err,
			)
			continue
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func decodeBooking(carID, bookingID string, data []byte) (*model.Booking, error) {
	var booking model.Booking
	if err := json.Unmarshal(data, &booking); err != nil {
		return nil, fmt.Errorf("%w: booking %s/%s: %v", bookingserrors.ErrMalformedRecord, carID, bookingID, err)
	}
	if booking.ID != bookingID || booking.CarID != carID {
		return nil, fmt.Errorf("%w: booking %s/%s: record holds id %q for car %q",
			bookingserrors.ErrMalformedRecord, carID, bookingID, booking.ID, booking.CarID)
	}
	if !booking.Range().Valid() {
		return nil, fmt.Errorf("%w: booking %s/%s: invalid range %s",
			bookingserrors.ErrMalformedRecord, carID, bookingID, booking.Range())
	}
	return &booking, nil
}

func (r *fileCarRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := r.fs.Stat(CarsDir)
	if err != nil {
		return fmt.Errorf("failed to stat cars directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", CarsDir)
	}
	return nil
}

// writeAtomic writes data next to target and renames it into place so that
// lock-free readers see either nothing or the whole record.
func (r *fileCarRepository) writeAtomic(target string, data []byte) error {
	tmp := path.Join(path.Dir(target), "."+path.Base(target)+".tmp-"+uuid.NewString())

	f, err := r.fs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = r.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = r.fs.Remove(tmp)
		return err
	}
	if err := r.fs.Rename(tmp, target); err != nil {
		_ = r.fs.Remove(tmp)
		return err
	}
	return nil
}
