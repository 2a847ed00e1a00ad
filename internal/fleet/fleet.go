// Package fleet implements the fleet provisioning command line: registering
// cars in a data directory and listing the ones free for a date range.
package fleet

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"carrental/internal/bookings/events"
	"carrental/internal/bookings/repository"
	"carrental/internal/bookings/service"
	"carrental/internal/bookings/validator"
	"carrental/pkg/client"
	"carrental/pkg/config"
	apperrors "carrental/pkg/errors"
	"carrental/pkg/logger"
	"carrental/pkg/model"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
)

type options struct {
	dataDir     string
	logLevel    string
	lockTimeout time.Duration
}

// NewRootCommand builds the fleet command tree. Defaults come from the same
// environment variables the bookings service reads.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "fleet",
		Short:         "Manage the cars in a car-rental data directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	dataDir := os.Getenv(config.EnvDataDirectory)
	if dataDir == "" {
		dataDir = config.DefaultDataDirectory
	}
	logLevel := os.Getenv(config.EnvLogLevel)
	if logLevel == "" {
		logLevel = logger.WARN
	}

	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", dataDir, "data directory shared with the bookings service")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", logLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().DurationVar(&opts.lockTimeout, "lock-timeout", config.DefaultLockTimeout, "how long to wait for a car lock")

	root.AddCommand(newAddCommand(opts), newAvailableCommand(opts), newBookCommand())
	return root
}

func newAddCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <car_id> <model> <seats>",
		Short: "Register a car or overwrite its details",
		Long: `Register a car in the data directory. Adding an existing car id
overwrites its model and seats and keeps its bookings.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			seats, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("seats must be a whole number, got %q", args[2])
			}

			svc, err := newService(opts, cmd)
			if err != nil {
				return err
			}

			car := &model.Car{ID: args[0], Model: args[1], Seats: seats}
			if err := svc.AddCar(cmd.Context(), car); err != nil {
				return fmt.Errorf("failed to add car: %w%s", err, detailsSuffix(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added car %s (%s, %d seats)\n", car.ID, car.Model, car.Seats)
			return nil
		},
	}
}

func newAvailableCommand(opts *options) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "available",
		Short: "List cars free for the whole of a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := model.ParseDateRange(start, end)
			if err != nil {
				return err
			}

			svc, err := newService(opts, cmd)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMODEL\tSEATS")
			for car, err := range svc.ListAvailableCars(cmd.Context(), dates) {
				if err != nil {
					return fmt.Errorf("failed to list available cars: %w", err)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", car.ID, car.Model, car.Seats)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

// newBookCommand books through a running bookings service rather than the
// data directory, so it goes through the same HTTP path as any client.
func newBookCommand() *cobra.Command {
	var start, end, server, idempotencyKey string
	var wait time.Duration

	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = config.DefaultPort
	}

	cmd := &cobra.Command{
		Use:   "book <car_id>",
		Short: "Book a car through the bookings service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := model.ParseDateRange(start, end)
			if err != nil {
				return err
			}

			c := client.NewBookingsClient(server)
			if wait > 0 {
				if err := c.WaitForHealthy(cmd.Context(), wait); err != nil {
					return err
				}
			}
			bookingID, err := c.BookCar(cmd.Context(), args[0], dates, idempotencyKey)
			if err != nil {
				return fmt.Errorf("failed to book car %s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Booked car %s for %s (booking %s)\n", args[0], dates, bookingID)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&server, "server", "http://localhost:"+port, "bookings service base URL")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "replay-safe key for retries")
	cmd.Flags().DurationVar(&wait, "wait", 0, "wait up to this long for the service to report healthy")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func newService(opts *options, cmd *cobra.Command) (service.BookingService, error) {
	log := logger.New(logger.Config{
		Level:   opts.logLevel,
		Format:  logger.TEXT,
		Output:  cmd.ErrOrStderr(),
		Service: "fleet",
	})

	cfg := &config.Config{
		DataDirectory:     opts.dataDir,
		LockTimeout:       opts.lockTimeout,
		LockRetryInterval: config.DefaultLockRetryInterval,
		Log:               log,
	}

	if err := os.MkdirAll(cfg.DataDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	repo, err := repository.NewCarRepository(osfs.New(cfg.DataDirectory), log)
	if err != nil {
		return nil, err
	}
	locker := repository.NewCarLocker(cfg.DataDirectory, cfg.LockTimeout, cfg.LockRetryInterval, log)

	return service.NewBookingService(
		repo,
		locker,
		validator.NewBookingValidator(log),
		events.NewNoopPublisher(log),
		cfg,
	), nil
}

func detailsSuffix(err error) string {
	if !apperrors.IsAppError(err) {
		return ""
	}
	if details := apperrors.AsAppError(err).Details; len(details) > 0 {
		return fmt.Sprintf(" %v", details)
	}
	return ""
}
