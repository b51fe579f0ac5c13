package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlight_AvailableSeatCount(t *testing.T) {
	flight := &Flight{
		ID: 1,
		Seats: []Seat{
			{SeatNumber: "A1", Status: SeatStatusAvailable},
			{SeatNumber: "A2", Status: SeatStatusBooked},
			{SeatNumber: "B1", Status: SeatStatusAvailable},
		},
	}
	assert.Equal(t, 2, flight.AvailableSeatCount())
}

func TestFlight_SeatMap(t *testing.T) {
	flight := &Flight{
		Seats: []Seat{
			{SeatNumber: "a1", Status: SeatStatusAvailable},
			{SeatNumber: "", Status: SeatStatusAvailable},
		},
	}

	m := flight.SeatMap()
	assert.Len(t, m, 1)
	assert.Equal(t, SeatStatusAvailable, m["A1"].Status)
}

func TestBooking_SeatNumbers(t *testing.T) {
	b := &Booking{Passengers: []Passenger{
		{Name: "Alice", SeatNumber: "A1"},
		{Name: "Bob"},
		{Name: "Carol", SeatNumber: "C3"},
	}}
	assert.Equal(t, []string{"A1", "C3"}, b.SeatNumbers())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(Errorf(KindNotFound, "missing")))
	assert.Equal(t, KindConflict, KindOf(WrapError(KindConflict, errors.New("boom"), "seat taken")))
	assert.Equal(t, KindInternal, KindOf(errors.New("unclassified")))
}
