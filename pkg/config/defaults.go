package config

import "time"

const (
	DefaultDataDirectory = "./data"

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	// A crashed lock holder releases its flock when the process dies, so this
	// only bounds waits behind a live but stuck holder.
	DefaultLockTimeout       = 10 * time.Second
	DefaultLockRetryInterval = 10 * time.Millisecond

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = time.Minute

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultKafkaBookingsTopic = "car-bookings"
	DefaultKafkaCompression   = "snappy"
	DefaultKafkaMaxAttempts   = 3
)
