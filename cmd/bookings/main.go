package main

import (
	"carrental/internal/bookings/events"
	"carrental/internal/bookings/handler"
	"carrental/internal/bookings/repository"
	"carrental/internal/bookings/service"
	"carrental/internal/bookings/validator"
	"carrental/pkg/app"
	"carrental/pkg/config"
	"carrental/pkg/kafka"
	kafka_middleware "carrental/pkg/kafka/middleware"

	"github.com/go-git/go-billy/v5/osfs"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.LogConfiguration()

	cfg.Log.Info("Starting Bookings service")
	repo := initRepository(cfg)
	publisher := initPublisher(cfg)
	bookingService := initServices(cfg, repo, publisher)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg,
		handler.NewBookingHandler(bookingService, cfg.Log),
		handler.NewHealthHandler(repo, cfg.Log),
		publisher,
	)
	serverApp.Run()
}

func initRepository(cfg *config.Config) repository.CarRepository {
	repo, err := repository.NewCarRepository(osfs.New(cfg.DataDirectory), cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to open data directory", "data_directory", cfg.DataDirectory, "error", err)
	}
	return repo
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.EventsEnabled() {
		cfg.Log.Info("Booking events disabled, no Kafka brokers configured")
		return events.NewNoopPublisher(cfg.Log)
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaBookingsTopic,
		Compression: cfg.KafkaCompression,
		MaxAttempts: cfg.KafkaMaxAttempts,
	}, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log, cfg.KafkaBookingsTopic))

	cfg.Log.Info("Booking events enabled", "topic", producer.Topic(), "brokers", cfg.KafkaBrokers)
	return events.NewKafkaPublisher(producer, ServiceName)
}

func initServices(cfg *config.Config, repo repository.CarRepository, publisher events.Publisher) service.BookingService {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	locker := repository.NewCarLocker(cfg.DataDirectory, cfg.LockTimeout, cfg.LockRetryInterval, cfg.Log)
	bookingService := service.NewBookingService(
		repo,
		locker,
		bookingValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "data_directory", cfg.DataDirectory)
	return bookingService
}
