package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/bookingservice/internal/kafka"
	"github.com/sirupsen/logrus"
)

// Sender turns booking events into notification mails. Actual delivery
// transport (SMTP, templating) lives outside this service; the worker hands
// the rendered message to it.
type Sender struct {
	log *logrus.Logger
}

func NewSender(log *logrus.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	subject, body := render(event)

	s.log.WithFields(logrus.Fields{
		"to":      event.UserEmail,
		"pnr":     event.PNR,
		"subject": subject,
		"body":    body,
	}).Info("notification dispatched")
	return nil
}

func render(event kafka.BookingEvent) (subject, body string) {
	seats := strings.Join(event.SeatNumbers, ", ")
	if seats == "" {
		seats = "assigned at check-in"
	}

	switch event.Type {
	case kafka.EventBookingCancelled:
		subject = fmt.Sprintf("Booking %s cancelled", event.PNR)
		body = fmt.Sprintf("Your booking %s for flight %d has been cancelled.", event.PNR, event.FlightID)
	default:
		subject = fmt.Sprintf("Booking %s confirmed", event.PNR)
		body = fmt.Sprintf("Your booking %s for flight %d is confirmed. Seats: %s. Total: %.2f.",
			event.PNR, event.FlightID, seats, event.TotalPrice)
	}
	return subject, body
}
