package email

import (
	"context"
	"fmt"
	"log"

	"github.com/mkazantsev/tablebook/config"
	"github.com/mkazantsev/tablebook/internal/kafka"
	gomail "gopkg.in/gomail.v2"
)

type Sender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSender returns an SMTP sender, or a console-only sender when no SMTP
// host is configured (local development).
func NewSender(cfg config.SMTPConfig) *Sender {
	s := &Sender{from: cfg.From}
	if cfg.Host != "" {
		s.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	}
	return s
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if event.Email == "" {
		return nil
	}

	subject, body := compose(event)
	if s.dialer == nil {
		log.Printf("email (console): to=%s subject=%q", event.Email, subject)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", event.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}

func compose(event kafka.BookingEvent) (subject, body string) {
	place := event.RestaurantName
	if place == "" {
		place = event.RestaurantID
	}
	when := fmt.Sprintf("%s at %s", event.Date.Format("Monday, January 2"), event.Time)

	switch event.Type {
	case kafka.EventBookingCancelled:
		subject = fmt.Sprintf("Booking cancelled: %s", place)
		body = fmt.Sprintf("Your reservation at %s for %s has been cancelled.\n\nBooking reference: %s\n", place, when, event.BookingID)
	default:
		subject = fmt.Sprintf("Booking confirmed: %s", place)
		body = fmt.Sprintf("Your table for %d at %s is confirmed for %s.\n\nBooking reference: %s\n", event.PartySize, place, when, event.BookingID)
	}
	return subject, body
}
