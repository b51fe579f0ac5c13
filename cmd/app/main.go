package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/bookingservice/api"
	"github.com/Domenick1991/bookingservice/config"
	"github.com/Domenick1991/bookingservice/internal/bootstrap"
	"github.com/Domenick1991/bookingservice/internal/cache"
	"github.com/Domenick1991/bookingservice/internal/dispatch"
	"github.com/Domenick1991/bookingservice/internal/flightclient"
	"github.com/Domenick1991/bookingservice/internal/kafka"
	"github.com/Domenick1991/bookingservice/internal/repository"
	"github.com/Domenick1991/bookingservice/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	seatHolds := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.SeatHoldTTLSeconds)*time.Second)

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	client := flightclient.NewHTTPClient(
		cfg.FlightService.BaseURL,
		time.Duration(cfg.FlightService.RequestTimeoutSeconds)*time.Second,
	)
	breaker := flightclient.NewBreaker(
		cfg.FlightService.BreakerFailures,
		time.Duration(cfg.FlightService.BreakerCooldownSeconds)*time.Second,
		flightclient.IsInfrastructureFailure,
	)
	gateway := flightclient.NewGateway(client, breaker, logger)

	dispatcher := dispatch.New(logger)
	bookingRepo := repository.NewBookingRepository(pool)
	bookingService := booking.NewBookingService(
		bookingRepo,
		gateway,
		dispatcher,
		producer,
		cfg.Kafka.NotificationsTopic,
		time.Duration(cfg.Booking.CancelWindowHours)*time.Hour,
		logger,
		booking.WithSeatHoldCache(seatHolds),
	)

	handler := api.NewBookingHandler(bookingService)

	if err := bootstrap.Run(ctx, cfg, handler); err != nil {
		logger.WithError(err).Fatal("server error")
	}

	// Let already-committed side effects finish before exiting.
	dispatcher.Wait()
}
