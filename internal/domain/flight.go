package domain

import "strings"

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "AVAILABLE"
	SeatStatusBooked    SeatStatus = "BOOKED"
)

type Seat struct {
	SeatNumber string
	Status     SeatStatus
}

// Flight is the seat map of a flight as reported by the flight service.
type Flight struct {
	ID           int64
	PricePerSeat float64
	Seats        []Seat
}

func (f *Flight) AvailableSeatCount() int {
	count := 0
	for _, s := range f.Seats {
		if s.Status == SeatStatusAvailable {
			count++
		}
	}
	return count
}

// SeatMap indexes the flight's seats by upper-cased seat number.
func (f *Flight) SeatMap() map[string]Seat {
	m := make(map[string]Seat, len(f.Seats))
	for _, s := range f.Seats {
		if s.SeatNumber == "" {
			continue
		}
		m[strings.ToUpper(s.SeatNumber)] = s
	}
	return m
}

// SeatBooking is a single seat assignment sent to the flight service when
// locking seats for a booking.
type SeatBooking struct {
	SeatNumber    string `json:"seatNumber"`
	PassengerName string `json:"passengerName"`
}
