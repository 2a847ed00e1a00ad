package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bookingserrors "carrental/internal/bookings/errors"
	"carrental/pkg/logger"
	"carrental/pkg/model"

	"golang.org/x/sys/unix"
)

// CarLocker hands out exclusive per-car locks backed by flock(2) on
// cars/<car_id>/lock. The lock is held by the open file description, so it
// excludes other goroutines of this process as well as other processes
// sharing the data directory.
type CarLocker interface {
	Acquire(ctx context.Context, carID string) (*CarLock, error)
}

// CarLock is a held lock. Release must be called on every path, usually via defer.
type CarLock struct {
	carID string
	file  *os.File
	once  sync.Once
	err   error
}

func (l *CarLock) CarID() string {
	return l.carID
}

// Release unlocks and closes the lock file. Calling it more than once is safe.
func (l *CarLock) Release() error {
	l.once.Do(func() {
		unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
		closeErr := l.file.Close()
		l.err = errors.Join(unlockErr, closeErr)
	})
	return l.err
}

type fileCarLocker struct {
	root          string
	timeout       time.Duration
	retryInterval time.Duration
	log           *logger.Logger
}

func NewCarLocker(root string, timeout, retryInterval time.Duration, log *logger.Logger) CarLocker {
	return &fileCarLocker{
		root:          root,
		timeout:       timeout,
		retryInterval: retryInterval,
		log:           log.With("component", "car_locker"),
	}
}

// Acquire blocks until the car's lock is held, the context is done, or the
// lock timeout elapses (ErrLockTimeout). The car directory is created if
// missing.
func (l *fileCarLocker) Acquire(ctx context.Context, carID string) (*CarLock, error) {
	if !model.ValidID(carID) {
		return nil, fmt.Errorf("invalid car ID %q", carID)
	}

	dir := filepath.Join(l.root, CarsDir, carID)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create car directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(dir, LockFile), os.O_CREATE|os.O_RDWR, filePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	start := time.Now()
	deadline := time.NewTimer(l.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			l.log.Debug("Car lock acquired",
				"car_id", carID,
				"attempts", attempt,
				"waited_ms", time.Since(start).Milliseconds(),
			)
			return &CarLock{carID: carID, file: file}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = file.Close()
			return nil, fmt.Errorf("failed to lock car %s: %w", carID, err)
		}

		select {
		case <-ctx.Done():
			_ = file.Close()
			return nil, fmt.Errorf("waiting for lock on car %s: %w", carID, ctx.Err())
		case <-deadline.C:
			_ = file.Close()
			l.log.Warn("Timed out waiting for car lock",
				"car_id", carID,
				"timeout", l.timeout,
				"attempts", attempt,
			)
			return nil, fmt.Errorf("%w: car %s after %s", bookingserrors.ErrLockTimeout, carID, l.timeout)
		case <-ticker.C:
		}
	}
}
