package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mkazantsev/tablebook/config"
	"github.com/mkazantsev/tablebook/internal/email"
	"github.com/mkazantsev/tablebook/internal/kafka"
	"github.com/mkazantsev/tablebook/internal/repository"
	"github.com/mkazantsev/tablebook/internal/service/booking"
	"github.com/robfig/cron/v3"
	kafkaGo "github.com/segmentio/kafka-go"
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

	restaurantRepo := repository.NewRestaurantRepository(pool)
	availabilityRepo := repository.NewAvailabilityRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	bookingService := booking.NewBookingService(
		bookingRepo,
		restaurantRepo,
		availabilityRepo,
		notificationRepo,
		nil,
		nil,
		"",
		0,
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	sender := email.NewSender(cfg.SMTP)

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode event: %v", err)
				return nil
			}
			return sender.Send(ctx, event)
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	scheduler := cron.New()

	resetSpec := cfg.Worker.CounterResetSpec
	if resetSpec == "" {
		resetSpec = "0 0 * * *"
	}
	if _, err := scheduler.AddFunc(resetSpec, func() {
		jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		reset, err := restaurantRepo.ResetBookingsToday(jobCtx)
		if err != nil {
			log.Printf("reset daily counters: %v", err)
			return
		}
		log.Printf("reset daily counters on %d restaurants", reset)
	}); err != nil {
		log.Fatalf("schedule counter reset: %v", err)
	}

	auditSpec := cfg.Worker.AuditSpec
	if auditSpec == "" {
		auditSpec = "@hourly"
	}
	if _, err := scheduler.AddFunc(auditSpec, func() {
		jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		faults, err := bookingService.AuditInventory(jobCtx, time.Now())
		if err != nil {
			log.Printf("inventory audit: %v", err)
			return
		}
		if faults > 0 {
			log.Printf("inventory audit found %d faults", faults)
		}
	}); err != nil {
		log.Fatalf("schedule inventory audit: %v", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	<-ctx.Done()
	log.Println("shutting down")
}
