package errors

import "errors"

var (
	ErrNotFound = errors.New("car not found")

	ErrMalformedRecord = errors.New("malformed record")

	ErrDuplicateBooking = errors.New("booking with this ID already exists")

	ErrLockTimeout = errors.New("timed out waiting for car lock")
)
