package flightclient

import (
	"context"

	"github.com/Domenick1991/bookingservice/internal/domain"
	"github.com/sirupsen/logrus"
)

// Gateway wraps the seat inventory client with the circuit breaker. The read
// path surfaces an unavailable error when the circuit is open; the write
// paths (seat lock/release after commit) log failures and swallow them, the
// committed booking record being the source of truth.
type Gateway struct {
	client  SeatInventoryClient
	breaker *Breaker
	log     *logrus.Logger
}

func NewGateway(client SeatInventoryClient, breaker *Breaker, log *logrus.Logger) *Gateway {
	return &Gateway{client: client, breaker: breaker, log: log}
}

// IsInfrastructureFailure is the breaker classifier: only connectivity,
// timeout and 5xx-class outcomes count. Business responses pass through
// without affecting breaker state.
func IsInfrastructureFailure(err error) bool {
	return domain.KindOf(err) == domain.KindUnavailable
}

func (g *Gateway) GetFlight(ctx context.Context, flightID int64) (*domain.Flight, error) {
	if err := g.breaker.Allow(); err != nil {
		g.log.WithField("flight_id", flightID).Warn("flight lookup short-circuited, breaker open")
		return nil, domain.Errorf(domain.KindUnavailable, "Flight service unavailable. Try again later.")
	}

	flight, err := g.client.GetFlight(ctx, flightID)
	g.breaker.Record(err)
	if err != nil {
		return nil, err
	}
	return flight, nil
}

func (g *Gateway) BookSeats(ctx context.Context, flightID int64, seats []domain.SeatBooking) {
	log := g.log.WithFields(logrus.Fields{"flight_id": flightID, "seats": len(seats)})

	if err := g.breaker.Allow(); err != nil {
		log.Warn("seat lock skipped, breaker open")
		return
	}

	err := g.client.BookSeats(ctx, flightID, seats)
	g.breaker.Record(err)
	if err != nil {
		log.WithError(err).Error("failed to lock seats with flight service")
		return
	}
	log.Info("seats locked with flight service")
}

func (g *Gateway) ReleaseSeats(ctx context.Context, flightID int64, seatNumbers []string) {
	log := g.log.WithFields(logrus.Fields{"flight_id": flightID, "seats": len(seatNumbers)})

	if err := g.breaker.Allow(); err != nil {
		log.Warn("seat release skipped, breaker open")
		return
	}

	err := g.client.ReleaseSeats(ctx, flightID, seatNumbers)
	g.breaker.Record(err)
	if err != nil {
		log.WithError(err).Error("failed to release seats with flight service")
		return
	}
	log.Info("seats released with flight service")
}
