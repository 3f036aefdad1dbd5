package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mkazantsev/tablebook/config"
	"github.com/mkazantsev/tablebook/internal/bootstrap"
	"github.com/mkazantsev/tablebook/internal/cache"
	"github.com/mkazantsev/tablebook/internal/kafka"
	"github.com/mkazantsev/tablebook/internal/repository"
	"github.com/mkazantsev/tablebook/internal/service/booking"
	"github.com/mkazantsev/tablebook/internal/service/restaurants"
	"github.com/mkazantsev/tablebook/internal/service/search"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.ListingCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	restaurantRepo := repository.NewRestaurantRepository(pool)
	availabilityRepo := repository.NewAvailabilityRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)

	bookingService := booking.NewBookingService(
		bookingRepo,
		restaurantRepo,
		availabilityRepo,
		notificationRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingEventsTopic,
		time.Duration(cfg.Booking.SlotLockTTLSeconds)*time.Second,
		booking.WithCASRetries(cfg.Booking.AvailabilityRetries),
		booking.WithPublishRetries(cfg.Booking.PublishRetries),
	)
	restaurantService := restaurants.NewRestaurantService(restaurantRepo, availabilityRepo)
	searchService := search.NewSearchService(restaurantRepo, availabilityRepo, reviewRepo, redisCache)

	if err := bootstrap.Run(ctx, cfg, bookingService, restaurantService, searchService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
