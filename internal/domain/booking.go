package domain

import "time"

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "ACTIVE"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	ID          int64
	PNR         string
	FlightID    int64
	UserEmail   string
	NumSeats    int
	TotalPrice  float64
	Status      BookingStatus
	CreatedAt   time.Time
	CancelledAt *time.Time
	Passengers  []Passenger
}

type Passenger struct {
	ID             int64
	BookingID      int64
	Name           string
	Age            int
	Gender         string
	SeatNumber     string
	MealPreference string
}

// SeatNumbers returns the seat numbers explicitly assigned to the booking's
// passengers. Passengers without a seat selection are skipped.
func (b *Booking) SeatNumbers() []string {
	seats := make([]string, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		if p.SeatNumber != "" {
			seats = append(seats, p.SeatNumber)
		}
	}
	return seats
}
